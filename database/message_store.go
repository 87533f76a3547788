package database

import (
	"strings"
	"time"
)

const (
	maxMessageLen = 2000
	// HistoryLimit 历史回放上限。升序 + limit 返回的是最老的一批，
	// 与来源系统保持一致
	HistoryLimit = 500
	// SearchLimit 搜索结果上限
	SearchLimit = 50
)

func nowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// AppendChannelMessage append a channel message with a server-assigned
// millisecond timestamp. 空消息或超长消息静默丢弃，返回 nil
func (s *SQLStore) AppendChannelMessage(channel, user, text string) (*ChannelMessage, error) {
	channel = NormalizeChannel(channel)
	user = NormalizeHandle(user)
	text = strings.TrimSpace(text)
	if channel == "" || text == "" || len(text) > maxMessageLen {
		return nil, nil
	}

	msg := &ChannelMessage{
		Channel:   channel,
		User:      user,
		Text:      text,
		Timestamp: nowMillis(),
	}
	if _, err := s.engine.Insert(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ChannelHistory messages of a channel in ascending timestamp order,
// capped at limit (HistoryLimit when limit <= 0)
func (s *SQLStore) ChannelHistory(channel string, limit int) ([]ChannelMessage, error) {
	if limit <= 0 {
		limit = HistoryLimit
	}
	var msgs []ChannelMessage
	err := s.engine.
		Where("channel = ?", NormalizeChannel(channel)).
		Asc("timestamp").
		Limit(limit).
		Find(&msgs)
	return msgs, err
}

// SearchMessages case-insensitive substring match, newest first
func (s *SQLStore) SearchMessages(query, channel string, limit int) ([]ChannelMessage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = SearchLimit
	}

	session := s.engine.Where("lower(text) LIKE ?", "%"+strings.ToLower(query)+"%")
	if channel = NormalizeChannel(channel); channel != "" {
		session = session.And("channel = ?", channel)
	}

	var msgs []ChannelMessage
	err := session.Desc("timestamp").Limit(limit).Find(&msgs)
	return msgs, err
}

// AppendDirectMessage append a direct message. 好友关系由这里把关，
// 非 accepted 关系静默丢弃
func (s *SQLStore) AppendDirectMessage(sender, receiver, text string) (*DirectMessage, error) {
	sender = NormalizeHandle(sender)
	receiver = NormalizeHandle(receiver)
	text = strings.TrimSpace(text)
	if sender == "" || receiver == "" || text == "" || len(text) > maxMessageLen {
		return nil, nil
	}

	friends, err := s.AreFriends(sender, receiver)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, nil
	}

	msg := &DirectMessage{
		Sender:    sender,
		Receiver:  receiver,
		Text:      text,
		Timestamp: nowMillis(),
	}
	if _, err := s.engine.Insert(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DirectHistory direct messages between a and b in ascending order.
// 非好友返回空序列而不是错误，避免通过错误码泄露好友状态
func (s *SQLStore) DirectHistory(a, b string, limit int) ([]DirectMessage, error) {
	a = NormalizeHandle(a)
	b = NormalizeHandle(b)
	if limit <= 0 {
		limit = HistoryLimit
	}

	friends, err := s.AreFriends(a, b)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, nil
	}

	var msgs []DirectMessage
	err = s.engine.
		Where("(sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)", a, b, b, a).
		Asc("timestamp").
		Limit(limit).
		Find(&msgs)
	return msgs, err
}
