package hub

import (
	"log"

	"github.com/gorilla/websocket"
	"github.com/ws-chat/database"
	"github.com/ws-chat/peer"
	"github.com/ws-chat/wire"
)

// ClientPeer 代表一个客户端连接。实时事件没有应答通道，
// 任何校验失败都按约定静默丢弃
type ClientPeer struct {
	*peer.Peer
	hub *Hub

	// handle 只在本连接的读协程内读写, joinUser 之前为空
	handle string
}

func newClientPeer(id string, h *Hub, conn *websocket.Conn) *ClientPeer {
	clientPeer := &ClientPeer{
		hub: h,
	}

	p := peer.NewPeer(id, &peer.Config{
		Listeners: &peer.MessageListeners{
			OnEvent:      clientPeer.OnEvent,
			OnDisconnect: clientPeer.OnDisconnect,
		},
		MaxMessageSize: h.config.Peer.MaxMessageSize,
		WriteWait:      h.config.Peer.WriteWait,
		PongWait:       h.config.Peer.PongWait,
		PingPeriod:     h.config.Peer.PingPeriod,
	})

	clientPeer.Peer = p
	clientPeer.SetConnection(conn)

	return clientPeer
}

// OnEvent 接收事件
func (p *ClientPeer) OnEvent(ev *wire.Event) error {
	switch ev.Name {
	case wire.EvJoinUser:
		return p.onJoinUser(ev)
	case wire.EvJoinChannel:
		return p.onJoinChannel(ev)
	case wire.EvSendMessage:
		return p.onSendMessage(ev)
	case wire.EvTyping:
		return p.onTyping(ev)
	case wire.EvSendDirectMessage:
		return p.onSendDirectMessage(ev)
	case wire.EvTypingDm:
		return p.onTypingDm(ev)
	}
	// 未知事件直接丢弃
	return nil
}

// OnDisconnect 接连断开
func (p *ClientPeer) OnDisconnect() error {
	if p.handle != "" {
		p.hub.store.TouchLastSeen(p.handle)
	}
	p.hub.packetQueue <- &Packet{use: useForUnregister, peer: p}
	return nil
}

func (p *ClientPeer) onJoinUser(ev *wire.Event) error {
	var body wire.JoinUser
	if err := ev.DecodeData(&body); err != nil {
		return nil
	}
	handle := database.NormalizeHandle(body.Username)
	if handle == "" {
		return nil
	}
	p.handle = handle
	p.hub.store.TouchLastSeen(handle)
	p.hub.packetQueue <- &Packet{use: useForRegister, peer: p, handle: handle}
	return nil
}

func (p *ClientPeer) onJoinChannel(ev *wire.Event) error {
	var body wire.JoinChannel
	if err := ev.DecodeData(&body); err != nil {
		return nil
	}
	channel := database.NormalizeChannel(body.Channel)
	if channel == "" || p.handle == "" {
		return nil
	}

	// 重新做一遍 join 校验（封禁/私有/成员），客户端可能是中途重连的
	if err := p.hub.store.Join(channel, p.handle); err != nil {
		if err != database.ErrBanned &&
			err != database.ErrMembershipRequired &&
			err != database.ErrChannelNotFound {
			log.Printf("joinChannel %v/%v: %v", channel, p.handle, err)
		}
		return nil
	}

	p.hub.packetQueue <- &Packet{use: useForSubscribe, peer: p, handle: p.handle, channel: channel}
	return nil
}

func (p *ClientPeer) onSendMessage(ev *wire.Event) error {
	var body wire.ChatPayload
	if err := ev.DecodeData(&body); err != nil {
		return nil
	}
	if p.handle == "" {
		return nil
	}

	// 持久化成功后才广播，同一频道内写入与投递顺序一致
	msg, err := p.hub.store.AppendChannelMessage(body.Channel, p.handle, body.Message)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}

	out, err := wire.MakeEvent(wire.EvNewMessage, &wire.ChannelMsg{
		Channel:   msg.Channel,
		User:      msg.User,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		return err
	}
	// 发送者自己也在组内，走同一条广播路径
	p.hub.packetQueue <- &Packet{use: useForPublish, channel: msg.Channel, event: out}
	return nil
}

func (p *ClientPeer) onTyping(ev *wire.Event) error {
	var body wire.Typing
	if err := ev.DecodeData(&body); err != nil {
		return nil
	}
	channel := database.NormalizeChannel(body.Channel)
	if channel == "" || p.handle == "" {
		return nil
	}

	out, err := wire.MakeEvent(wire.EvUserTyping, &wire.Typing{Channel: channel, User: p.handle})
	if err != nil {
		return err
	}
	// 输入提示不落库，尽力而为，发送者自己不收
	p.hub.packetQueue <- &Packet{use: useForPublish, channel: channel, event: out, exclude: p.handle}
	return nil
}

func (p *ClientPeer) onSendDirectMessage(ev *wire.Event) error {
	var body wire.DirectPayload
	if err := ev.DecodeData(&body); err != nil {
		return nil
	}
	if p.handle == "" {
		return nil
	}
	receiver := database.NormalizeHandle(body.To)
	if receiver == "" {
		return nil
	}

	// 好友校验在存储层，非好友静默丢弃
	msg, err := p.hub.store.AppendDirectMessage(p.handle, receiver, body.Message)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}

	out, err := wire.MakeEvent(wire.EvDirectMessage, &wire.DirectMsg{
		Sender:    msg.Sender,
		Receiver:  msg.Receiver,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		return err
	}
	p.hub.packetQueue <- &Packet{use: useForDirect, handle: receiver, event: out}
	// 总是回显给发送者
	p.PushEvent(out, nil)
	return nil
}

func (p *ClientPeer) onTypingDm(ev *wire.Event) error {
	var body wire.TypingDm
	if err := ev.DecodeData(&body); err != nil {
		return nil
	}
	if p.handle == "" {
		return nil
	}
	receiver := database.NormalizeHandle(body.To)
	if receiver == "" {
		return nil
	}

	out, err := wire.MakeEvent(wire.EvUserTypingDm, &wire.TypingDm{From: p.handle})
	if err != nil {
		return err
	}
	p.hub.packetQueue <- &Packet{use: useForDirect, handle: receiver, event: out}
	return nil
}
