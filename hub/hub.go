package hub

import (
	"log"
	"net/http"
	"strings"

	mapset "github.com/deckarep/golang-set"
	"github.com/gorilla/websocket"
	"github.com/ws-chat/config"
	"github.com/ws-chat/database"
	"github.com/ws-chat/wire"
)

const (
	useForAddConn    = uint8(1)
	useForRegister   = uint8(2)
	useForUnregister = uint8(3)
	useForSubscribe  = uint8(4)
	useForPublish    = uint8(5)
	useForDirect     = uint8(6)
	useForClean      = uint8(7)
)

// Packet to hub. 所有状态变更都经过同一条队列，保证先订阅后投递
// 这类顺序不被打乱
type Packet struct {
	use     uint8
	peer    *ClientPeer
	handle  string
	channel string
	event   *wire.Event
	exclude string
	done    chan struct{}
}

// Hub 是服务中心。连接表、在线表和频道广播组都是进程内状态，
// 只在 packetHandler 协程里变更
type Hub struct {
	upgrader *websocket.Upgrader
	config   *config.Config
	store    database.Store

	// connections 所有连接，含未 joinUser 的
	connections map[*ClientPeer]struct{}
	// clientPeers handle -> 当前连接
	clientPeers map[string]*ClientPeer
	// peerHandles 反查表
	peerHandles map[*ClientPeer]string
	online      mapset.Set
	groups      map[string]*Group

	presenceCache database.PresenceCache

	packetQueue chan *Packet
	quit        chan struct{}
}

// NewHub 创建一个 Hub 对象，并初始化
func NewHub(cfg *config.Config, store database.Store, presence database.PresenceCache) (*Hub, error) {
	var upgrader = &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if cfg.Server.Origin == "*" {
				return true
			}
			rOrigin := r.Header.Get("Origin")
			if strings.Contains(cfg.Server.Origin, rOrigin) {
				return true
			}
			log.Println("refuse", rOrigin)
			return false
		},
	}

	if presence == nil {
		presence = database.NewMemPresenceCache()
	}

	hub := &Hub{
		upgrader:      upgrader,
		config:        cfg,
		store:         store,
		connections:   make(map[*ClientPeer]struct{}, 1000),
		clientPeers:   make(map[string]*ClientPeer, 1000),
		peerHandles:   make(map[*ClientPeer]string, 1000),
		online:        mapset.NewThreadUnsafeSet(),
		groups:        make(map[string]*Group),
		presenceCache: presence,
		packetQueue:   make(chan *Packet, 100),
		quit:          make(chan struct{}),
	}

	go hub.packetHandler()

	return hub, nil
}

// Run start the http listener, blocks until Close
func (h *Hub) Run() {
	go httplisten(h, &h.config.Server)

	<-h.quit
}

func (h *Hub) packetHandler() {
	log.Println("start packetHandler")
	for {
		select {
		case packet := <-h.packetQueue:
			switch packet.use {
			case useForAddConn:
				h.connections[packet.peer] = struct{}{}
			case useForRegister:
				h.handleRegister(packet)
			case useForUnregister:
				h.handleUnregister(packet)
			case useForSubscribe:
				group, ok := h.groups[packet.channel]
				if !ok {
					group = NewGroup(packet.channel)
					h.groups[packet.channel] = group
				}
				group.Join(packet.handle, packet.peer)
			case useForPublish:
				if group, ok := h.groups[packet.channel]; ok {
					group.Publish(packet.event, packet.exclude)
				}
			case useForDirect:
				if receiver, ok := h.clientPeers[packet.handle]; ok {
					receiver.PushEvent(packet.event, nil)
				}
			case useForClean:
				h.clean()
			}
			if packet.done != nil {
				packet.done <- struct{}{}
			}
		case <-h.quit:
			return
		}
	}
}

func (h *Hub) handleRegister(packet *Packet) {
	// 同名 handle 已登录时踢掉旧连接，旧连接断开后走 unregister 清理
	if oldpeer, ok := h.clientPeers[packet.handle]; ok && oldpeer != packet.peer {
		log.Printf("kick client %v", oldpeer.ID())
		oldpeer.Close()
	}

	h.connections[packet.peer] = struct{}{}
	h.clientPeers[packet.handle] = packet.peer
	h.peerHandles[packet.peer] = packet.handle
	h.online.Add(packet.handle)
	h.presenceCache.AddPresence(packet.handle, packet.peer.ID())

	log.Printf("client %v connected as %v", packet.peer.ID(), packet.handle)

	if online, err := wire.MakeEvent(wire.EvUserOnline, &wire.Presence{Username: packet.handle}); err == nil {
		h.broadcastAll(online)
	}

	// 给新连接回一份当前在线名单
	usernames := make([]string, 0, h.online.Cardinality())
	for _, v := range h.online.ToSlice() {
		usernames = append(usernames, v.(string))
	}
	if snapshot, err := wire.MakeEvent(wire.EvOnlineUsers, &wire.OnlineUsers{Usernames: usernames}); err == nil {
		packet.peer.PushEvent(snapshot, nil)
	}
}

func (h *Hub) handleUnregister(packet *Packet) {
	delete(h.connections, packet.peer)

	handle, ok := h.peerHandles[packet.peer]
	if !ok {
		return
	}
	delete(h.peerHandles, packet.peer)

	for _, group := range h.groups {
		group.Leave(handle, packet.peer)
	}

	// 被踢的旧连接断开时，presence 已经指向新连接，不再广播下线
	if current, ok := h.clientPeers[handle]; !ok || current != packet.peer {
		return
	}
	delete(h.clientPeers, handle)
	h.online.Remove(handle)
	h.presenceCache.DelPresence(handle)

	log.Printf("client %v disconnected", handle)

	if offline, err := wire.MakeEvent(wire.EvUserOffline, &wire.Presence{Username: handle}); err == nil {
		h.broadcastAll(offline)
	}
}

func (h *Hub) broadcastAll(ev *wire.Event) {
	for peer := range h.connections {
		peer.PushEvent(ev, nil)
	}
}

// Close close hub
func (h *Hub) Close() {
	done := make(chan struct{})
	h.packetQueue <- &Packet{use: useForClean, done: done}
	<-done
	close(h.quit)
}

// clean clean hub
func (h *Hub) clean() {
	for peer := range h.connections {
		peer.Close()
	}
	for handle := range h.clientPeers {
		h.presenceCache.DelPresence(handle)
	}
	for _, group := range h.groups {
		group.Exit()
	}
}
