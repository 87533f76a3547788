package database

import (
	"time"
)

// Friend.Status values
const (
	FriendPending  = "pending"
	FriendAccepted = "accepted"
	FriendDeclined = "declined"
)

// ChannelMember.Role values. Role is a cached view of the admin grant,
// channel_admin is the authoritative relation.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Account 账号实体，handle 全局唯一（统一小写存储）
type Account struct {
	ID       int64  `xorm:"pk autoincr 'id'"`
	Handle   string `xorm:"varchar(20) unique notnull"`
	Password string `xorm:"varchar(60) notnull"`
	Bio      string `xorm:"varchar(200)"`
	Status   string `xorm:"varchar(50)"`
	// LastSeen 最后在线时间, millisecond
	LastSeen int64
}

// Channel 频道实体，name 全局唯一
type Channel struct {
	ID        int64     `xorm:"pk autoincr 'id'"`
	Name      string    `xorm:"varchar(50) unique notnull"`
	Creator   string    `xorm:"varchar(20) notnull"`
	IsPrivate bool
	CreatedAt time.Time `xorm:"created"`
}

// ChannelMember channel 成员，(channel, handle) 唯一
type ChannelMember struct {
	ID      int64  `xorm:"pk autoincr 'id'"`
	Channel string `xorm:"varchar(50) unique(member) notnull"`
	Handle  string `xorm:"varchar(20) unique(member) notnull"`
	Role    string `xorm:"varchar(10)"`
}

// ChannelAdmin 频道管理授权, invite/kick/ban 以此为准
type ChannelAdmin struct {
	ID      int64  `xorm:"pk autoincr 'id'"`
	Channel string `xorm:"varchar(50) unique(admin) notnull"`
	Handle  string `xorm:"varchar(20) unique(admin) notnull"`
}

// ChannelBan 封禁记录，存在即禁止 join
type ChannelBan struct {
	ID       int64     `xorm:"pk autoincr 'id'"`
	Channel  string    `xorm:"varchar(50) unique(ban) notnull"`
	Handle   string    `xorm:"varchar(20) unique(ban) notnull"`
	BannedBy string    `xorm:"varchar(20) notnull"`
	BannedAt time.Time `xorm:"created"`
}

// Friend 好友关系，按有序 (requester, receiver) 唯一
type Friend struct {
	ID        int64     `xorm:"pk autoincr 'id'"`
	Requester string    `xorm:"varchar(20) unique(pair) notnull"`
	Receiver  string    `xorm:"varchar(20) unique(pair) notnull"`
	Status    string    `xorm:"varchar(10) notnull"`
	CreatedAt time.Time `xorm:"created"`
}

// ChannelMessage 频道消息，只增不删
type ChannelMessage struct {
	ID      int64  `xorm:"pk autoincr 'id'"`
	Channel string `xorm:"varchar(50) index(chan_ts) notnull"`
	User    string `xorm:"varchar(20) notnull"`
	Text    string `xorm:"varchar(2000) notnull"`
	// Timestamp 服务端写入时间, millisecond
	Timestamp int64 `xorm:"index(chan_ts)"`
}

// DirectMessage 私聊消息，只有 accepted 好友可见
type DirectMessage struct {
	ID        int64  `xorm:"pk autoincr 'id'"`
	Sender    string `xorm:"varchar(20) index notnull"`
	Receiver  string `xorm:"varchar(20) index notnull"`
	Text      string `xorm:"varchar(2000) notnull"`
	Timestamp int64
}
