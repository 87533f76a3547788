// Package chat is a small client library for the ws-chat realtime
// protocol, used by bots and integration tests.
package chat

import (
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ws-chat/wire"
)

const (
	dialTimeout   = 3 * time.Second
	eventQueueLen = 64
)

// Client 一个已连接的客户端
type Client struct {
	Username string

	conn    *websocket.Conn
	events  chan *wire.Event
	quit    chan struct{}
	closing sync.Once
}

// Dial connect to a server and announce the username over joinUser
func Dial(addr, username string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}

	dialer := &websocket.Dialer{
		HandshakeTimeout: dialTimeout,
	}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	client := &Client{
		Username: username,
		conn:     conn,
		events:   make(chan *wire.Event, eventQueueLen),
		quit:     make(chan struct{}),
	}
	go client.readLoop()

	if err := client.send(wire.EvJoinUser, &wire.JoinUser{Username: username}); err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

// Events received events, closed on disconnect
func (c *Client) Events() <-chan *wire.Event {
	return c.events
}

// JoinChannel subscribe to a channel
func (c *Client) JoinChannel(channel string) error {
	return c.send(wire.EvJoinChannel, &wire.JoinChannel{Channel: channel})
}

// SendMessage send a channel message
func (c *Client) SendMessage(channel, message string) error {
	return c.send(wire.EvSendMessage, &wire.ChatPayload{Channel: channel, Message: message})
}

// Typing send a typing hint to a channel
func (c *Client) Typing(channel string) error {
	return c.send(wire.EvTyping, &wire.Typing{Channel: channel, User: c.Username})
}

// SendDirectMessage send a direct message
func (c *Client) SendDirectMessage(to, message string) error {
	return c.send(wire.EvSendDirectMessage, &wire.DirectPayload{To: to, Message: message})
}

// TypingDm send a typing hint to a friend
func (c *Client) TypingDm(to string) error {
	return c.send(wire.EvTypingDm, &wire.TypingDm{To: to, From: c.Username})
}

// Close Close, safe to call more than once
func (c *Client) Close() error {
	var err error
	c.closing.Do(func() {
		close(c.quit)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) send(name string, body interface{}) error {
	ev, err := wire.MakeEvent(name, body)
	if err != nil {
		return err
	}
	raw, err := wire.Marshal(ev)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		ev, err := wire.Unmarshal(raw)
		if err != nil {
			continue
		}
		select {
		case c.events <- ev:
		case <-c.quit:
			return
		}
	}
}
