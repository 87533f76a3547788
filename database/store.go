package database

import (
	"strings"

	"github.com/go-xorm/xorm"
)

// AccountStore account operations
type AccountStore interface {
	Register(handle, password string) error
	Authenticate(handle, password string) (string, error)
	GetProfile(handle string) (*Account, error)
	SetProfile(handle, bio, status string) error
	TouchLastSeen(handle string) error
	AccountExists(handle string) (bool, error)
}

// FriendStore friend state machine operations
type FriendStore interface {
	RequestFriend(requester, receiver string) error
	RespondToRequest(requester, receiver, actor string, accept bool) error
	AreFriends(a, b string) (bool, error)
	ListFriends(handle string) ([]Friend, error)
	ListIncoming(handle string) ([]Friend, error)
	ListOutgoing(handle string) ([]Friend, error)
}

// ChannelStore channel authorization operations
type ChannelStore interface {
	CreateChannel(name, creator string, isPrivate bool) error
	ListChannels() ([]Channel, error)
	GetChannel(name string) (*Channel, error)
	Join(channel, handle string) error
	Invite(channel, inviter, invitee string) error
	Kick(channel, admin, target string) error
	Ban(channel, admin, target string) error
	DeleteChannel(channel, actor string) error
	IsAdmin(channel, handle string) (bool, error)
	IsMember(channel, handle string) (bool, error)
	IsBanned(channel, handle string) (bool, error)
}

// MessageStore message log operations
type MessageStore interface {
	AppendChannelMessage(channel, user, text string) (*ChannelMessage, error)
	ChannelHistory(channel string, limit int) ([]ChannelMessage, error)
	SearchMessages(query, channel string, limit int) ([]ChannelMessage, error)
	AppendDirectMessage(sender, receiver, text string) (*DirectMessage, error)
	DirectHistory(a, b string, limit int) ([]DirectMessage, error)
}

// Store 聚合所有持久层操作
type Store interface {
	AccountStore
	FriendStore
	ChannelStore
	MessageStore
}

// SQLStore xorm store, one authoritative relational store behind every engine
type SQLStore struct {
	engine *xorm.Engine
}

// NewSQLStore new a SQLStore, creates tables and unique indexes
func NewSQLStore(engine *xorm.Engine) (*SQLStore, error) {
	err := engine.Sync2(
		new(Account),
		new(Channel),
		new(ChannelMember),
		new(ChannelAdmin),
		new(ChannelBan),
		new(Friend),
		new(ChannelMessage),
		new(DirectMessage),
	)
	if err != nil {
		return nil, err
	}
	return &SQLStore{engine: engine}, nil
}

// NormalizeHandle trim + lowercase, 所有入口统一调用
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// NormalizeChannel channel names keep their case, only trimmed
func NormalizeChannel(name string) string {
	return strings.TrimSpace(name)
}
