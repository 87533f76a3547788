package database

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	engine, err := InitDb("sqlite3", filepath.Join(t.TempDir(), "chat.db"))
	require.Nil(t, err)

	store, err := NewSQLStore(engine)
	require.Nil(t, err)
	return store
}

func mustRegister(t *testing.T, s *SQLStore, handles ...string) {
	for _, handle := range handles {
		require.Nil(t, s.Register(handle, "secret"))
	}
}

func TestRegister(t *testing.T) {
	s := newTestStore(t)

	require.Nil(t, s.Register("  Alice ", "secret"))

	// handle 大小写不敏感
	assert.Equal(t, ErrDuplicateHandle, s.Register("ALICE", "other"))

	exists, err := s.AccountExists("alice")
	require.Nil(t, err)
	assert.True(t, exists)

	assert.Equal(t, ErrInvalidHandle, s.Register("ab", "secret"))
	assert.Equal(t, ErrInvalidHandle, s.Register(strings.Repeat("a", 21), "secret"))
	assert.Equal(t, ErrInvalidPassword, s.Register("bob", "abc"))
}

func TestAuthenticate(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice")

	handle, err := s.Authenticate("Alice", "secret")
	require.Nil(t, err)
	assert.Equal(t, "alice", handle)

	_, err = s.Authenticate("alice", "wrong")
	assert.Equal(t, ErrInvalidCredentials, err)

	_, err = s.Authenticate("nobody", "secret")
	assert.Equal(t, ErrInvalidCredentials, err)

	acc, err := s.GetProfile("alice")
	require.Nil(t, err)
	assert.True(t, acc.LastSeen > 0)
}

func TestProfile(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice")

	_, err := s.GetProfile("nobody")
	assert.Equal(t, ErrUnknownUser, err)

	require.Nil(t, s.SetProfile("alice", strings.Repeat("b", 300), strings.Repeat("s", 80)))

	acc, err := s.GetProfile("ALICE")
	require.Nil(t, err)
	assert.Equal(t, "alice", acc.Handle)
	assert.Equal(t, 200, len(acc.Bio))
	assert.Equal(t, 50, len(acc.Status))
	// 口令散列不外泄
	assert.Equal(t, "", acc.Password)
}

func TestFriendRequest(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice", "bob")

	assert.Equal(t, ErrInvalidPair, s.RequestFriend("alice", "alice"))
	assert.Equal(t, ErrUnknownUser, s.RequestFriend("alice", "nobody"))

	require.Nil(t, s.RequestFriend("alice", "bob"))
	// 重复请求是 no-op
	require.Nil(t, s.RequestFriend("alice", "bob"))

	incoming, err := s.ListIncoming("bob")
	require.Nil(t, err)
	require.Equal(t, 1, len(incoming))
	assert.Equal(t, "alice", incoming[0].Requester)

	outgoing, err := s.ListOutgoing("alice")
	require.Nil(t, err)
	assert.Equal(t, 1, len(outgoing))

	friends, err := s.AreFriends("alice", "bob")
	require.Nil(t, err)
	assert.False(t, friends)
}

func TestFriendAccept(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice", "bob")
	require.Nil(t, s.RequestFriend("alice", "bob"))

	// 只有 receiver 能处理
	assert.Equal(t, ErrForbidden, s.RespondToRequest("alice", "bob", "alice", true))

	require.Nil(t, s.RespondToRequest("alice", "bob", "bob", true))

	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		friends, err := s.AreFriends(pair[0], pair[1])
		require.Nil(t, err)
		assert.True(t, friends)
	}

	friends, err := s.ListFriends("bob")
	require.Nil(t, err)
	assert.Equal(t, 1, len(friends))

	incoming, err := s.ListIncoming("bob")
	require.Nil(t, err)
	assert.Equal(t, 0, len(incoming))

	// 已处理过的请求不能再处理
	assert.Equal(t, ErrNotFound, s.RespondToRequest("alice", "bob", "bob", false))
}

func TestFriendDecline(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice", "bob")
	require.Nil(t, s.RequestFriend("alice", "bob"))
	require.Nil(t, s.RespondToRequest("alice", "bob", "bob", false))

	friends, err := s.AreFriends("alice", "bob")
	require.Nil(t, err)
	assert.False(t, friends)

	// declined 的有序对永久占位，再次请求静默成功且不产生新 pending
	require.Nil(t, s.RequestFriend("alice", "bob"))
	incoming, err := s.ListIncoming("bob")
	require.Nil(t, err)
	assert.Equal(t, 0, len(incoming))
	assert.Equal(t, ErrNotFound, s.RespondToRequest("alice", "bob", "bob", true))

	// 反向请求是另一个有序对，照常可用
	require.Nil(t, s.RequestFriend("bob", "alice"))
	require.Nil(t, s.RespondToRequest("bob", "alice", "alice", true))
	friends, err = s.AreFriends("alice", "bob")
	require.Nil(t, err)
	assert.True(t, friends)
}

func TestCreateChannel(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice")

	assert.Equal(t, ErrInvalidName, s.CreateChannel("a", "alice", false))
	assert.Equal(t, ErrInvalidName, s.CreateChannel(strings.Repeat("c", 51), "alice", false))

	require.Nil(t, s.CreateChannel(" General ", "alice", false))
	assert.Equal(t, ErrNameTaken, s.CreateChannel("General", "alice", false))

	// 频道名保留大小写
	ch, err := s.GetChannel("General")
	require.Nil(t, err)
	assert.Equal(t, "General", ch.Name)
	assert.Equal(t, "alice", ch.Creator)

	member, err := s.IsMember("General", "alice")
	require.Nil(t, err)
	assert.True(t, member)
	admin, err := s.IsAdmin("General", "alice")
	require.Nil(t, err)
	assert.True(t, admin)

	require.Nil(t, s.CreateChannel("dev", "alice", true))
	channels, err := s.ListChannels()
	require.Nil(t, err)
	require.Equal(t, 2, len(channels))
	assert.Equal(t, "General", channels[0].Name)
	assert.Equal(t, "dev", channels[1].Name)
}

func TestJoinPublicChannel(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice", "bob")
	require.Nil(t, s.CreateChannel("general", "alice", false))

	assert.Equal(t, ErrChannelNotFound, s.Join("nosuch", "bob"))

	require.Nil(t, s.Join("general", "bob"))
	// 重复 join 幂等，成员记录只有一条
	require.Nil(t, s.Join("general", "bob"))

	count, err := s.engine.Where("channel = ? AND handle = ?", "general", "bob").Count(&ChannelMember{})
	require.Nil(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPrivateChannel(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice", "bob", "carol")
	require.Nil(t, s.CreateChannel("secret", "alice", true))
	require.Nil(t, s.CreateChannel("general", "alice", false))

	assert.Equal(t, ErrMembershipRequired, s.Join("secret", "bob"))

	assert.Equal(t, ErrNotPrivate, s.Invite("general", "alice", "bob"))
	assert.Equal(t, ErrForbidden, s.Invite("secret", "bob", "carol"))

	require.Nil(t, s.Invite("secret", "alice", "bob"))
	require.Nil(t, s.Invite("secret", "alice", "bob"))
	require.Nil(t, s.Join("secret", "bob"))

	count, err := s.engine.Where("channel = ? AND handle = ?", "secret", "bob").Count(&ChannelMember{})
	require.Nil(t, err)
	assert.Equal(t, int64(1), count)
}

func TestKick(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice", "bob")
	require.Nil(t, s.CreateChannel("general", "alice", false))
	require.Nil(t, s.Join("general", "bob"))

	assert.Equal(t, ErrForbidden, s.Kick("general", "bob", "alice"))

	require.Nil(t, s.Kick("general", "alice", "bob"))
	member, err := s.IsMember("general", "bob")
	require.Nil(t, err)
	assert.False(t, member)

	// 没被封禁，公开频道可以重进
	require.Nil(t, s.Join("general", "bob"))
}

func TestBan(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice", "bob")
	require.Nil(t, s.CreateChannel("general", "alice", false))
	require.Nil(t, s.CreateChannel("secret", "alice", true))
	require.Nil(t, s.Join("general", "bob"))

	assert.Equal(t, ErrForbidden, s.Ban("general", "bob", "alice"))

	require.Nil(t, s.Ban("general", "alice", "bob"))
	// 重复 ban 幂等
	require.Nil(t, s.Ban("general", "alice", "bob"))

	member, err := s.IsMember("general", "bob")
	require.Nil(t, err)
	assert.False(t, member)
	assert.Equal(t, ErrBanned, s.Join("general", "bob"))

	// 封禁先于私有检查
	require.Nil(t, s.Invite("secret", "alice", "bob"))
	require.Nil(t, s.Ban("secret", "alice", "bob"))
	assert.Equal(t, ErrBanned, s.Join("secret", "bob"))
}

func TestDeleteChannel(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice", "bob")
	require.Nil(t, s.CreateChannel("general", "alice", false))
	require.Nil(t, s.Join("general", "bob"))
	require.Nil(t, s.Ban("general", "alice", "bob"))
	_, err := s.AppendChannelMessage("general", "alice", "hello")
	require.Nil(t, err)

	assert.Equal(t, ErrForbidden, s.DeleteChannel("general", "bob"))

	require.Nil(t, s.DeleteChannel("general", "alice"))
	_, err = s.GetChannel("general")
	assert.Equal(t, ErrChannelNotFound, err)

	for _, bean := range []interface{}{&ChannelMember{}, &ChannelAdmin{}, &ChannelBan{}, &ChannelMessage{}} {
		count, err := s.engine.Where("channel = ?", "general").Count(bean)
		require.Nil(t, err)
		assert.Equal(t, int64(0), count)
	}
}

func TestAppendChannelMessage(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice")
	require.Nil(t, s.CreateChannel("general", "alice", false))

	msg, err := s.AppendChannelMessage("general", "alice", "  hello  ")
	require.Nil(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "hello", msg.Text)
	assert.True(t, msg.Timestamp > 0)

	// 空消息与超长消息静默丢弃
	msg, err = s.AppendChannelMessage("general", "alice", "   ")
	require.Nil(t, err)
	assert.Nil(t, msg)
	msg, err = s.AppendChannelMessage("general", "alice", strings.Repeat("x", 2001))
	require.Nil(t, err)
	assert.Nil(t, msg)

	msgs, err := s.ChannelHistory("general", 0)
	require.Nil(t, err)
	assert.Equal(t, 1, len(msgs))
}

func TestChannelHistoryOrder(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice")
	require.Nil(t, s.CreateChannel("general", "alice", false))

	for _, text := range []string{"one", "two", "three"} {
		_, err := s.AppendChannelMessage("general", "alice", text)
		require.Nil(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	msgs, err := s.ChannelHistory("general", 0)
	require.Nil(t, err)
	require.Equal(t, 3, len(msgs))
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "three", msgs[2].Text)

	msgs, err = s.ChannelHistory("general", 2)
	require.Nil(t, err)
	require.Equal(t, 2, len(msgs))
	// 升序 + limit, 留下的是最老的一批
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "two", msgs[1].Text)
}

func TestSearchMessages(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice")
	require.Nil(t, s.CreateChannel("general", "alice", false))
	require.Nil(t, s.CreateChannel("dev", "alice", false))

	for _, m := range []struct{ channel, text string }{
		{"general", "Hello World"},
		{"general", "goodbye"},
		{"dev", "hello again"},
	} {
		_, err := s.AppendChannelMessage(m.channel, "alice", m.text)
		require.Nil(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	// 大小写不敏感，全频道，新的在前
	msgs, err := s.SearchMessages("HELLO", "", 0)
	require.Nil(t, err)
	require.Equal(t, 2, len(msgs))
	assert.Equal(t, "hello again", msgs[0].Text)

	msgs, err = s.SearchMessages("hello", "general", 0)
	require.Nil(t, err)
	require.Equal(t, 1, len(msgs))
	assert.Equal(t, "Hello World", msgs[0].Text)

	msgs, err = s.SearchMessages("   ", "", 0)
	require.Nil(t, err)
	assert.Equal(t, 0, len(msgs))
}

func TestDirectMessages(t *testing.T) {
	s := newTestStore(t)
	mustRegister(t, s, "alice", "bob", "carol")

	// 非好友静默丢弃
	msg, err := s.AppendDirectMessage("alice", "bob", "hi")
	require.Nil(t, err)
	assert.Nil(t, msg)

	require.Nil(t, s.RequestFriend("alice", "bob"))
	require.Nil(t, s.RespondToRequest("alice", "bob", "bob", true))

	msg, err = s.AppendDirectMessage("alice", "bob", "hi bob")
	require.Nil(t, err)
	require.NotNil(t, msg)
	time.Sleep(2 * time.Millisecond)
	msg, err = s.AppendDirectMessage("bob", "alice", "hi alice")
	require.Nil(t, err)
	require.NotNil(t, msg)

	// 两个方向都在，按时间升序
	msgs, err := s.DirectHistory("bob", "alice", 0)
	require.Nil(t, err)
	require.Equal(t, 2, len(msgs))
	assert.Equal(t, "hi bob", msgs[0].Text)
	assert.Equal(t, "hi alice", msgs[1].Text)

	// 非好友读历史得到空序列
	msgs, err = s.DirectHistory("alice", "carol", 0)
	require.Nil(t, err)
	assert.Equal(t, 0, len(msgs))

	msg, err = s.AppendDirectMessage("alice", "bob", strings.Repeat("x", 2001))
	require.Nil(t, err)
	assert.Nil(t, msg)
}
