package peer

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ws-chat/wire"
)

const (
	// Time allowed to write a message to the peer.
	defaultWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	defaultPongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	defaultPingPeriod = (defaultPongWait * 8) / 10

	// Maximum message size allowed from peer.
	defaultMaxMessageSize = 4096

	defaultQueueLen = 32
)

// MessageListeners 消息监听
type MessageListeners struct {
	// OnEvent is invoked for every event decoded from the connection.
	OnEvent func(ev *wire.Event) error

	OnDisconnect func() error
}

// Config 节点配置
type Config struct {

	// Time allowed to write a message to the peer.
	WriteWait time.Duration
	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration
	// Send pings to peer with this period. Must be less than pongWait.
	PingPeriod time.Duration
	// Maximum message size allowed from peer.
	MaxMessageSize int

	// EventQueueLen send queue length
	EventQueueLen int

	Listeners *MessageListeners
}

type outEvent struct {
	event *wire.Event
	done  chan<- struct{}
}

// Peer 封装了 websocket 通信底层接口
type Peer struct {
	id     string
	config *Config
	conn   *websocket.Conn
	send   chan outEvent
	quit   chan struct{}

	timeConnected time.Time

	connected int32
}

// NewPeer 创建一个新的节点
func NewPeer(id string, config *Config) *Peer {
	if config.WriteWait == 0 {
		config.WriteWait = defaultWriteWait
	}
	if config.PongWait == 0 {
		config.PongWait = defaultPongWait
	}
	if config.PingPeriod == 0 {
		config.PingPeriod = defaultPingPeriod
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = defaultMaxMessageSize
	}
	if config.EventQueueLen == 0 {
		config.EventQueueLen = defaultQueueLen
	}

	if config.PingPeriod >= config.PongWait {
		config.PingPeriod = (config.PongWait * 9) / 10
	}
	return &Peer{
		id:     id,
		config: config,
		send:   make(chan outEvent, config.EventQueueLen),
		quit:   make(chan struct{}),
	}
}

// ID peer id
func (p *Peer) ID() string {
	return p.id
}

// SetConnection bind connection , start
func (p *Peer) SetConnection(conn *websocket.Conn) {
	// Already connected?
	if !atomic.CompareAndSwapInt32(&p.connected, 0, 1) {
		return
	}

	p.conn = conn
	p.timeConnected = time.Now()

	p.start()
}

func (p *Peer) start() {
	go p.handleRead()
	go p.handleWrite()
}

func (p *Peer) handleRead() {
	defer func() {
		p.config.Listeners.OnDisconnect()
		p.disconnect()
	}()
	p.conn.SetReadLimit(int64(p.config.MaxMessageSize))
	p.conn.SetReadDeadline(time.Now().Add(p.config.PongWait))
	p.conn.SetPongHandler(func(string) error { p.conn.SetReadDeadline(time.Now().Add(p.config.PongWait)); return nil })
	for {
		messageType, message, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}
		if messageType == websocket.CloseMessage {
			log.Printf("closed: %v", p.id)
			break
		}

		ev, err := wire.Unmarshal(message)
		if err != nil {
			// 按约定丢弃无法解析的事件
			continue
		}
		// 同一连接的事件按到达顺序处理
		if err := p.config.Listeners.OnEvent(ev); err != nil {
			log.Printf("event %v from %v: %v", ev.Name, p.id, err)
		}
	}
}

func (p *Peer) handleWrite() {
	ticker := time.NewTicker(p.config.PingPeriod)
	defer func() {
		ticker.Stop()
		p.disconnect()
	}()
	for {
		select {
		case <-p.quit:
			p.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case out := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteWait))

			raw, err := wire.Marshal(out.event)
			if err != nil {
				if out.done != nil {
					out.done <- struct{}{}
				}
				continue
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
			if out.done != nil {
				out.done <- struct{}{}
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// PushEvent 把事件写到发送队列，连接已断开时直接完成
func (p *Peer) PushEvent(ev *wire.Event, doneChan chan<- struct{}) {
	done := func() {
		if doneChan != nil {
			go func() {
				doneChan <- struct{}{}
			}()
		}
	}
	if atomic.LoadInt32(&p.connected) == 0 {
		done()
		return
	}
	select {
	case p.send <- outEvent{event: ev, done: doneChan}:
	case <-p.quit:
		done()
	}
}

// Close close conn
func (p *Peer) Close() {
	p.disconnect()
}

// 断开连接
func (p *Peer) disconnect() {
	if !atomic.CompareAndSwapInt32(&p.connected, 1, 0) {
		return
	}
	close(p.quit)
	p.conn.Close()
}
