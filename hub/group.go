package hub

import (
	"github.com/ws-chat/wire"
)

const (
	useForJoin    = uint8(1)
	useForLeave   = uint8(3)
	useForMessage = uint8(5)
	useForExit    = uint8(7)
)

// groupPacket use for join / leave / message
type groupPacket struct {
	use     uint8
	peer    *ClientPeer
	handle  string
	event   *wire.Event
	exclude string
}

// Group 一个频道的广播组，订阅关系只存在于进程内
type Group struct {
	Name    string
	members map[string]*ClientPeer
	packet  chan *groupPacket
}

// NewGroup NewGroup
func NewGroup(name string) *Group {
	group := &Group{
		Name:    name,
		members: make(map[string]*ClientPeer),
		packet:  make(chan *groupPacket, 50),
	}
	go group.loop()

	return group
}

func (g *Group) loop() {
	for packet := range g.packet {
		switch packet.use {
		case useForMessage:
			for handle, peer := range g.members {
				if handle == packet.exclude {
					continue
				}
				peer.PushEvent(packet.event, nil)
			}
		case useForJoin:
			g.members[packet.handle] = packet.peer
		case useForLeave:
			// 只移除同一个连接，防止把重连后的新连接踢出组
			if current, ok := g.members[packet.handle]; ok && current == packet.peer {
				delete(g.members, packet.handle)
			}
		case useForExit:
			return
		}
	}
}

// Join add a subscriber, replacing a previous connection of the same handle
func (g *Group) Join(handle string, peer *ClientPeer) {
	g.packet <- &groupPacket{use: useForJoin, handle: handle, peer: peer}
}

// Leave remove a subscriber
func (g *Group) Leave(handle string, peer *ClientPeer) {
	g.packet <- &groupPacket{use: useForLeave, handle: handle, peer: peer}
}

// Publish broadcast an event to every subscriber, except exclude if set
func (g *Group) Publish(ev *wire.Event, exclude string) {
	g.packet <- &groupPacket{use: useForMessage, event: ev, exclude: exclude}
}

// Exit stop group loop
func (g *Group) Exit() {
	g.packet <- &groupPacket{use: useForExit}
}
