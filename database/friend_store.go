package database

// RequestFriend insert a pending row for the ordered pair.
// 重复请求（无论当前状态）一律当作成功，方便客户端重试
func (s *SQLStore) RequestFriend(requester, receiver string) error {
	requester = NormalizeHandle(requester)
	receiver = NormalizeHandle(receiver)
	if requester == "" || receiver == "" || requester == receiver {
		return ErrInvalidPair
	}

	exists, err := s.AccountExists(receiver)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUnknownUser
	}

	_, err = s.engine.Insert(&Friend{
		Requester: requester,
		Receiver:  receiver,
		Status:    FriendPending,
	})
	if isDupErr(err) {
		// 行已存在，保持原状态
		return nil
	}
	return err
}

// RespondToRequest accept or decline a pending request.
// 只有 receiver 本人可以处理
func (s *SQLStore) RespondToRequest(requester, receiver, actor string, accept bool) error {
	requester = NormalizeHandle(requester)
	receiver = NormalizeHandle(receiver)
	actor = NormalizeHandle(actor)

	if actor != receiver {
		return ErrForbidden
	}

	status := FriendDeclined
	if accept {
		status = FriendAccepted
	}

	affected, err := s.engine.
		Where("requester = ? AND receiver = ? AND status = ?", requester, receiver, FriendPending).
		Cols("status").
		Update(&Friend{Status: status})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AreFriends true iff an accepted row exists in either ordering
func (s *SQLStore) AreFriends(a, b string) (bool, error) {
	a = NormalizeHandle(a)
	b = NormalizeHandle(b)
	return s.engine.
		Where("status = ? AND ((requester = ? AND receiver = ?) OR (requester = ? AND receiver = ?))",
			FriendAccepted, a, b, b, a).
		Exist(&Friend{})
}

// ListFriends all accepted rows touching handle
func (s *SQLStore) ListFriends(handle string) ([]Friend, error) {
	handle = NormalizeHandle(handle)
	var friends []Friend
	err := s.engine.
		Where("status = ? AND (requester = ? OR receiver = ?)", FriendAccepted, handle, handle).
		Find(&friends)
	return friends, err
}

// ListIncoming pending rows where handle is the receiver
func (s *SQLStore) ListIncoming(handle string) ([]Friend, error) {
	handle = NormalizeHandle(handle)
	var friends []Friend
	err := s.engine.
		Where("status = ? AND receiver = ?", FriendPending, handle).
		Find(&friends)
	return friends, err
}

// ListOutgoing pending rows where handle is the requester
func (s *SQLStore) ListOutgoing(handle string) ([]Friend, error) {
	handle = NormalizeHandle(handle)
	var friends []Friend
	err := s.engine.
		Where("status = ? AND requester = ?", FriendPending, handle).
		Find(&friends)
	return friends, err
}
