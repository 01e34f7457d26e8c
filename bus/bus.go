// bus.go
package bus

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Wildcard tokens. "+" matches exactly one level, "#" matches zero or more
// trailing levels and must be the last token of a subscription.
const (
	WildOne  = "+"
	WildRest = "#"
)

// Topic is a sequence of string tokens, e.g. {"power","cmd","trigger"}.
type Topic []string

// T builds a topic from tokens. Empty tokens are not allowed.
func T(tokens ...string) Topic {
	for _, tok := range tokens {
		if tok == "" {
			panic("bus: empty topic token")
		}
	}
	return Topic(tokens)
}

func (t Topic) Len() int        { return len(t) }
func (t Topic) At(i int) string { return t[i] }
func (t Topic) Last() string    { return t[len(t)-1] }

// Append returns a new topic; t is never modified.
func (t Topic) Append(tok ...string) Topic {
	out := make(Topic, 0, len(t)+len(tok))
	out = append(out, t...)
	return append(out, tok...)
}

// String joins the tokens with "/".
func (t Topic) String() string {
	n := 0
	for _, tok := range t {
		n += len(tok) + 1
	}
	b := make([]byte, 0, n)
	for i, tok := range t {
		if i > 0 {
			b = append(b, '/')
		}
		b = append(b, tok...)
	}
	return string(b)
}

// Equal reports whether two topics have identical tokens.
func (t Topic) Equal(o Topic) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if t[i] != o[i] {
			return false
		}
	}
	return true
}

// Match reports whether a concrete topic matches a (possibly wildcard) filter.
func Match(filter, topic Topic) bool {
	for i, tok := range filter {
		if tok == WildRest {
			return true
		}
		if i >= len(topic) {
			return false
		}
		if tok != WildOne && tok != topic[i] {
			return false
		}
	}
	return len(filter) == len(topic)
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection // owning connection
	once  sync.Once
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

func (s *Subscription) close() { s.once.Do(func() { close(s.ch) }) }

// deliver never blocks: when the queue is full the oldest message is dropped.
func (s *Subscription) deliver(m *Message) {
	for {
		select {
		case s.ch <- m:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[string]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok string, create bool) *node {
	if c, ok := n.children[tok]; ok {
		return c
	}
	if !create {
		return nil
	}
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c := &node{}
	n.children[tok] = c
	return c
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu     sync.Mutex
	root   *node
	qLen   int
	nextID atomic.Uint32
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{
		root: &node{},
		qLen: queueLen,
	}
}

// NewMessage is a small convenience constructor.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// addSubscription inserts a subscription into the trie and replays every
// retained message its filter matches.
func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range sub.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	b.replayRetained(b.root, sub.topic, 0, sub)
}

func (b *Bus) replayRetained(n *node, filter Topic, depth int, sub *Subscription) {
	if depth == len(filter) {
		if n.retained != nil {
			sub.deliver(n.retained)
		}
		return
	}
	switch tok := filter[depth]; tok {
	case WildRest:
		walkRetained(n, sub)
	case WildOne:
		for _, c := range n.children {
			b.replayRetained(c, filter, depth+1, sub)
		}
	default:
		if c := n.child(tok, false); c != nil {
			b.replayRetained(c, filter, depth+1, sub)
		}
	}
}

func walkRetained(n *node, sub *Subscription) {
	if n.retained != nil {
		sub.deliver(n.retained)
	}
	for _, c := range n.children {
		walkRetained(c, sub)
	}
}

// Publish delivers a message to all subscribers whose filter matches its
// topic. Retained messages are stored; a retained nil payload clears.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.collect(b.root, msg.Topic, 0, msg)

	if !msg.Retained {
		return
	}
	n := b.root
	for _, tok := range msg.Topic {
		n = n.child(tok, msg.Payload != nil)
		if n == nil {
			return
		}
	}
	if msg.Payload == nil {
		n.retained = nil
	} else {
		n.retained = msg
	}
}

func (b *Bus) collect(n *node, topic Topic, depth int, msg *Message) {
	if c := n.child(WildRest, false); c != nil {
		for _, s := range c.subs {
			s.deliver(msg)
		}
	}
	if depth == len(topic) {
		for _, s := range n.subs {
			s.deliver(msg)
		}
		return
	}
	if c := n.child(topic[depth], false); c != nil {
		b.collect(c, topic, depth+1, msg)
	}
	if c := n.child(WildOne, false); c != nil {
		b.collect(c, topic, depth+1, msg)
	}
}

// unsubscribe removes a subscription from the trie and prunes empty nodes.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	stack := make([]*node, 0, len(sub.topic))
	for _, tok := range sub.topic {
		c := n.child(tok, false)
		if c == nil {
			return
		}
		stack = append(stack, n)
		n = c
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := sub.topic[i]
		c := parent.children[key]
		if len(c.subs) == 0 && len(c.children) == 0 && c.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{
		bus: b,
		id:  id,
	}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	sub.close()
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		sub.close()
	}
}

// -----------------------------------------------------------------------------
// Request / Reply
// -----------------------------------------------------------------------------

// Request assigns a private reply topic to msg, subscribes to it and
// publishes msg. The caller owns the returned subscription.
func (c *Connection) Request(msg *Message) *Subscription {
	id := c.bus.nextID.Add(1)
	msg.ReplyTo = Topic{"_reply", c.id, strconv.FormatUint(uint64(id), 10)}
	sub := c.Subscribe(msg.ReplyTo)
	c.Publish(msg)
	return sub
}

// RequestWait sends msg and blocks until the first reply or ctx is done.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case reply, ok := <-sub.Channel():
		if !ok {
			return nil, context.Canceled
		}
		return reply, nil
	}
}

// Reply answers a request. Messages without ReplyTo are ignored.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if req == nil || len(req.ReplyTo) == 0 {
		return
	}
	c.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}
