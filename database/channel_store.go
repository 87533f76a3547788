package database

const (
	minChannelLen = 2
	maxChannelLen = 50
)

// CreateChannel create a channel. 频道行、creator 成员、admin 授权
// 在同一个事务内写入，不允许出现没有管理员的频道
func (s *SQLStore) CreateChannel(name, creator string, isPrivate bool) error {
	name = NormalizeChannel(name)
	creator = NormalizeHandle(creator)
	if len(name) < minChannelLen || len(name) > maxChannelLen {
		return ErrInvalidName
	}

	session := s.engine.NewSession()
	defer session.Close()

	if err := session.Begin(); err != nil {
		return err
	}
	if _, err := session.Insert(&Channel{Name: name, Creator: creator, IsPrivate: isPrivate}); err != nil {
		session.Rollback()
		if isDupErr(err) {
			return ErrNameTaken
		}
		return err
	}
	if _, err := session.Insert(&ChannelMember{Channel: name, Handle: creator, Role: RoleAdmin}); err != nil {
		session.Rollback()
		return err
	}
	if _, err := session.Insert(&ChannelAdmin{Channel: name, Handle: creator}); err != nil {
		session.Rollback()
		return err
	}
	return session.Commit()
}

// ListChannels all channels ordered by name
func (s *SQLStore) ListChannels() ([]Channel, error) {
	var channels []Channel
	err := s.engine.Asc("name").Find(&channels)
	return channels, err
}

// GetChannel GetChannel
func (s *SQLStore) GetChannel(name string) (*Channel, error) {
	var ch Channel
	has, err := s.engine.Where("name = ?", NormalizeChannel(name)).Get(&ch)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, ErrChannelNotFound
	}
	return &ch, nil
}

// Join join a channel. 检查顺序: 存在 -> 封禁 -> 私有。
// 公开频道 join 总是成功并顺带补一条成员记录
func (s *SQLStore) Join(channel, handle string) error {
	channel = NormalizeChannel(channel)
	handle = NormalizeHandle(handle)

	ch, err := s.GetChannel(channel)
	if err != nil {
		return err
	}

	banned, err := s.IsBanned(channel, handle)
	if err != nil {
		return err
	}
	if banned {
		return ErrBanned
	}

	if ch.IsPrivate {
		member, err := s.IsMember(channel, handle)
		if err != nil {
			return err
		}
		if !member {
			return ErrMembershipRequired
		}
		return nil
	}

	return s.upsertMember(channel, handle)
}

// Invite invite into a private channel, admin grant required
func (s *SQLStore) Invite(channel, inviter, invitee string) error {
	channel = NormalizeChannel(channel)
	inviter = NormalizeHandle(inviter)
	invitee = NormalizeHandle(invitee)

	ch, err := s.GetChannel(channel)
	if err != nil {
		return err
	}
	if !ch.IsPrivate {
		return ErrNotPrivate
	}

	admin, err := s.IsAdmin(channel, inviter)
	if err != nil {
		return err
	}
	if !admin {
		return ErrForbidden
	}

	return s.upsertMember(channel, invitee)
}

// Kick remove a member, admin grant required
func (s *SQLStore) Kick(channel, admin, target string) error {
	channel = NormalizeChannel(channel)
	admin = NormalizeHandle(admin)
	target = NormalizeHandle(target)

	isAdmin, err := s.IsAdmin(channel, admin)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrForbidden
	}

	_, err = s.engine.Where("channel = ? AND handle = ?", channel, target).Delete(&ChannelMember{})
	return err
}

// Ban ban an account, removes any membership. 重复 ban 当作成功
func (s *SQLStore) Ban(channel, admin, target string) error {
	channel = NormalizeChannel(channel)
	admin = NormalizeHandle(admin)
	target = NormalizeHandle(target)

	isAdmin, err := s.IsAdmin(channel, admin)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrForbidden
	}

	if _, err := s.engine.Where("channel = ? AND handle = ?", channel, target).Delete(&ChannelMember{}); err != nil {
		return err
	}
	_, err = s.engine.Insert(&ChannelBan{Channel: channel, Handle: target, BannedBy: admin})
	if isDupErr(err) {
		return nil
	}
	return err
}

// DeleteChannel delete a channel with all memberships, grants, bans and
// messages in one transaction. 只有 creator 可以删除
func (s *SQLStore) DeleteChannel(channel, actor string) error {
	channel = NormalizeChannel(channel)
	actor = NormalizeHandle(actor)

	ch, err := s.GetChannel(channel)
	if err != nil {
		return err
	}
	if ch.Creator != actor {
		return ErrForbidden
	}

	session := s.engine.NewSession()
	defer session.Close()

	if err := session.Begin(); err != nil {
		return err
	}
	if _, err := session.Where("name = ?", channel).Delete(&Channel{}); err != nil {
		session.Rollback()
		return err
	}
	if _, err := session.Where("channel = ?", channel).Delete(&ChannelMember{}); err != nil {
		session.Rollback()
		return err
	}
	if _, err := session.Where("channel = ?", channel).Delete(&ChannelAdmin{}); err != nil {
		session.Rollback()
		return err
	}
	if _, err := session.Where("channel = ?", channel).Delete(&ChannelBan{}); err != nil {
		session.Rollback()
		return err
	}
	if _, err := session.Where("channel = ?", channel).Delete(&ChannelMessage{}); err != nil {
		session.Rollback()
		return err
	}
	return session.Commit()
}

// IsAdmin reads the authoritative admin grant relation
func (s *SQLStore) IsAdmin(channel, handle string) (bool, error) {
	return s.engine.
		Where("channel = ? AND handle = ?", NormalizeChannel(channel), NormalizeHandle(handle)).
		Exist(&ChannelAdmin{})
}

// IsMember IsMember
func (s *SQLStore) IsMember(channel, handle string) (bool, error) {
	return s.engine.
		Where("channel = ? AND handle = ?", NormalizeChannel(channel), NormalizeHandle(handle)).
		Exist(&ChannelMember{})
}

// IsBanned IsBanned
func (s *SQLStore) IsBanned(channel, handle string) (bool, error) {
	return s.engine.
		Where("channel = ? AND handle = ?", NormalizeChannel(channel), NormalizeHandle(handle)).
		Exist(&ChannelBan{})
}

// upsertMember 幂等插入成员记录，唯一约束兜底
func (s *SQLStore) upsertMember(channel, handle string) error {
	_, err := s.engine.Insert(&ChannelMember{Channel: channel, Handle: handle, Role: RoleMember})
	if isDupErr(err) {
		return nil
	}
	return err
}
