package bus

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DoneToken is an mqtt.Token that is already complete.
type DoneToken struct {
	Err error
}

func (t DoneToken) Wait() bool { return true }
func (t DoneToken) WaitTimeout(time.Duration) bool { return true }
func (t DoneToken) Error() error { return t.Err }

func (t DoneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Message is a minimal mqtt.Message.
type Message struct {
	TopicName string
	Body      []byte
}

func (m Message) Duplicate() bool { return false }
func (m Message) Qos() byte { return 0 }
func (m Message) Retained() bool { return false }
func (m Message) Topic() string { return m.TopicName }
func (m Message) MessageID() uint16 { return 0 }
func (m Message) Payload() []byte { return m.Body }
func (m Message) Ack() {}

// Loopback is an in-process broker stand-in implementing Publisher and
// Subscriber. Publishing delivers synchronously to handlers subscribed to
// the exact topic.
type Loopback struct {
	mu        sync.Mutex
	handlers  map[string]mqtt.MessageHandler
	Published []Message
	Err       error
}

// NewLoopback returns an empty loopback.
func NewLoopback() *Loopback {
	return &Loopback{handlers: make(map[string]mqtt.MessageHandler)}
}

func (l *Loopback) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	var body []byte
	switch p := payload.(type) {
	case []byte:
		body = p
	case string:
		body = []byte(p)
	}
	l.mu.Lock()
	if l.Err != nil {
		err := l.Err
		l.mu.Unlock()
		return DoneToken{Err: err}
	}
	msg := Message{TopicName: topic, Body: body}
	l.Published = append(l.Published, msg)
	h := l.handlers[topic]
	l.mu.Unlock()

	if h != nil {
		h(nil, msg)
	}
	return DoneToken{}
}

func (l *Loopback) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	l.mu.Lock()
	l.handlers[topic] = callback
	l.mu.Unlock()
	return DoneToken{}
}

func (l *Loopback) Unsubscribe(topics ...string) mqtt.Token {
	l.mu.Lock()
	for _, t := range topics {
		delete(l.handlers, t)
	}
	l.mu.Unlock()
	return DoneToken{}
}

// Subscribed reports whether a handler is registered for topic.
func (l *Loopback) Subscribed(topic string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.handlers[topic]
	return ok
}

// Messages returns a copy of everything published so far.
func (l *Loopback) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Message(nil), l.Published...)
}
