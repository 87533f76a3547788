package database

import (
	"golang.org/x/crypto/bcrypt"
)

const (
	minHandleLen   = 3
	maxHandleLen   = 20
	minPasswordLen = 4
	maxBioLen      = 200
	maxStatusLen   = 50
)

// Register create an account with a bcrypt hashed credential.
// handle 大小写不敏感，统一小写后存储
func (s *SQLStore) Register(handle, password string) error {
	handle = NormalizeHandle(handle)
	if len(handle) < minHandleLen || len(handle) > maxHandleLen {
		return ErrInvalidHandle
	}
	if len(password) < minPasswordLen {
		return ErrInvalidPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.engine.Insert(&Account{Handle: handle, Password: string(hashed)})
	if isDupErr(err) {
		return ErrDuplicateHandle
	}
	return err
}

// Authenticate verify credential, returns the canonical handle
// and refreshes last seen
func (s *SQLStore) Authenticate(handle, password string) (string, error) {
	handle = NormalizeHandle(handle)

	var acc Account
	has, err := s.engine.Where("handle = ?", handle).Get(&acc)
	if err != nil {
		return "", err
	}
	if !has {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.Password), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	s.TouchLastSeen(handle)
	return handle, nil
}

// GetProfile GetProfile
func (s *SQLStore) GetProfile(handle string) (*Account, error) {
	handle = NormalizeHandle(handle)

	var acc Account
	has, err := s.engine.Where("handle = ?", handle).Get(&acc)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, ErrUnknownUser
	}
	acc.Password = ""
	return &acc, nil
}

// SetProfile update bio and status, over-length values are truncated
func (s *SQLStore) SetProfile(handle, bio, status string) error {
	handle = NormalizeHandle(handle)
	if len(bio) > maxBioLen {
		bio = bio[:maxBioLen]
	}
	if len(status) > maxStatusLen {
		status = status[:maxStatusLen]
	}

	_, err := s.engine.Where("handle = ?", handle).
		Cols("bio", "status").
		Update(&Account{Bio: bio, Status: status})
	return err
}

// TouchLastSeen refresh last seen timestamp
func (s *SQLStore) TouchLastSeen(handle string) error {
	handle = NormalizeHandle(handle)
	_, err := s.engine.Where("handle = ?", handle).
		Cols("last_seen").
		Update(&Account{LastSeen: nowMillis()})
	return err
}

// AccountExists AccountExists
func (s *SQLStore) AccountExists(handle string) (bool, error) {
	return s.engine.Where("handle = ?", NormalizeHandle(handle)).Exist(&Account{})
}
