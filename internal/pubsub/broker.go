package pubsub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Broker is an in-memory pub/sub system that retains the latest message of each
// topic, so a new subscriber immediately sees the current state.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan []byte // topic -> list of subscriber channels
	retained    map[string][]byte        // topic -> last published message
	bufferSize  int
}

type WsMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

func NewBroker(bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Broker{
		subscribers: make(map[string][]chan []byte),
		retained:    make(map[string][]byte),
		bufferSize:  bufferSize,
	}
}

// LeaderboardTopic is the topic a contest's leaderboard updates are published on.
func LeaderboardTopic(contestID string) string {
	return "leaderboard:" + contestID
}

// Subscribe subscribes to a topic. The retained message, if any, is delivered
// first. The returned function unsubscribes and closes the channel.
func (b *Broker) Subscribe(topic string) (<-chan []byte, func()) {
	b.mu.Lock()
	ch := make(chan []byte, b.bufferSize)
	if msg, ok := b.retained[topic]; ok {
		ch <- msg
	}
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subscribers := b.subscribers[topic]
			for i, sub := range subscribers {
				if sub == ch {
					b.subscribers[topic] = append(subscribers[:i], subscribers[i+1:]...)
					close(ch)
					break
				}
			}
			if len(b.subscribers[topic]) == 0 {
				delete(b.subscribers, topic)
			}
			zap.S().Debugf("unsubscribed from topic %s", topic)
		})
	}

	zap.S().Debugf("new subscription to topic %s", topic)
	return ch, unsubscribe
}

// Publish retains msg for the topic and delivers it to live subscribers.
func (b *Broker) Publish(topic string, msg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.retained[topic] = msg

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		default:
			// A slow subscriber misses this update; the next one carries the full state.
		}
	}
}

// Subscribers returns the number of live subscribers of a topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// CloseTopic closes all subscriber channels and drops the retained message.
func (b *Broker) CloseTopic(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers[topic] {
		close(ch)
	}
	delete(b.subscribers, topic)
	delete(b.retained, topic)
	zap.S().Infof("closed pubsub topic %s", topic)
}

// FormatMessage wraps data as a {"stream": ..., "data": ...} frame.
func FormatMessage(streamType string, data interface{}) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		return []byte(`{"stream": "error", "data": "json format error"}`)
	}
	bytes, err := json.Marshal(WsMessage{Stream: streamType, Data: raw})
	if err != nil {
		return []byte(`{"stream": "error", "data": "json format error"}`)
	}
	return bytes
}
