// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mqtt

import (
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// mockBroker implements paho.Client in memory
type mockBroker struct {
	mu        sync.Mutex
	opts      *paho.ClientOptions
	connected bool
	connErr   error
	published []mockMsg
	subs      map[string]paho.MessageHandler
	pubErr    error
}

func newMockBroker() *mockBroker {
	return &mockBroker{subs: make(map[string]paho.MessageHandler)}
}

func (m *mockBroker) newClient(opts *paho.ClientOptions) paho.Client {
	m.opts = opts
	return m
}

// deliver hands a message to the subscriber of topic
func (m *mockBroker) deliver(t testing.TB, topic string, payload []byte) {
	m.mu.Lock()
	h, ok := m.subs[topic]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("not subscribed for topic=%s", topic)
	}
	h(m, mockMsg{topic: topic, payload: payload})
}

func (m *mockBroker) IsConnected() bool { return m.connected }

func (m *mockBroker) IsConnectionOpen() bool { return m.connected }

func (m *mockBroker) Connect() paho.Token {
	if m.connErr == nil {
		m.connected = true
		if h := m.opts.OnConnect; h != nil {
			h(m)
		}
	}
	return newMockToken(m.connErr)
}

func (m *mockBroker) Disconnect(uint) { m.connected = false }

func (m *mockBroker) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pubErr != nil {
		return newMockToken(m.pubErr)
	}
	m.published = append(m.published, mockMsg{topic: topic, payload: payload.([]byte), qos: qos, retained: retained})
	return newMockToken(nil)
}

func (m *mockBroker) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[topic] = callback
	return newMockToken(nil)
}

func (m *mockBroker) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	panic("not implemented")
}

func (m *mockBroker) Unsubscribe(...string) paho.Token { panic("not implemented") }

func (m *mockBroker) AddRoute(string, paho.MessageHandler) { panic("not implemented") }

func (m *mockBroker) OptionsReader() paho.ClientOptionsReader { panic("not implemented") }

type mockToken struct {
	err  error
	done chan struct{}
}

func newMockToken(err error) *mockToken {
	t := &mockToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *mockToken) Wait() bool                     { return true }
func (t *mockToken) WaitTimeout(time.Duration) bool { return true }
func (t *mockToken) Done() <-chan struct{}          { return t.done }
func (t *mockToken) Error() error                   { return t.err }

type mockMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func (m mockMsg) Duplicate() bool   { return false }
func (m mockMsg) Qos() byte         { return m.qos }
func (m mockMsg) Retained() bool    { return m.retained }
func (m mockMsg) Topic() string     { return m.topic }
func (m mockMsg) MessageID() uint16 { return 0 }
func (m mockMsg) Payload() []byte   { return m.payload }
func (m mockMsg) Ack()              {}
