// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mqtt

import (
	"context"
	"errors"
	"testing"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Thermoquad/aldestat/internal/config"
)

func newTestClient(t *testing.T) (*Client, *mockBroker) {
	t.Helper()
	cfg := config.Default().MQTT
	cfg.QoS = 1
	cfg.Retain = true
	cfg.Username = "aldes"
	cfg.Password = "pw"

	broker := newMockBroker()
	c := New(cfg, zap.NewNop())
	c.newClient = broker.newClient
	return c, broker
}

func TestClient_ConnectOptions(t *testing.T) {
	c, broker := newTestClient(t)
	require.NoError(t, c.Connect(context.Background()))

	require.Len(t, broker.opts.Servers, 1)
	assert.Equal(t, "tcp://localhost:1883", broker.opts.Servers[0].String())
	assert.Equal(t, "aldes", broker.opts.ClientID)
	assert.Equal(t, "aldes", broker.opts.Username)
	assert.Equal(t, int64(60), broker.opts.KeepAlive)
	assert.True(t, broker.opts.AutoReconnect)
}

func TestClient_ConnectError(t *testing.T) {
	c, broker := newTestClient(t)
	broker.connErr = errors.New("not authorized")

	err := c.Connect(context.Background())
	assert.ErrorContains(t, err, "not authorized")
}

func TestClient_Publish(t *testing.T) {
	c, broker := newTestClient(t)
	assert.ErrorIs(t, c.Publish("aldes/Etat", []byte("1")), ErrNotConnected)

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Publish("aldes/Etat", []byte("1")))

	require.Len(t, broker.published, 1)
	msg := broker.published[0]
	assert.Equal(t, "aldes/Etat", msg.topic)
	assert.Equal(t, []byte("1"), msg.payload)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)

	broker.pubErr = errors.New("queue full")
	assert.ErrorContains(t, c.Publish("aldes/Etat", []byte("1")), "mqtt publish aldes/Etat: queue full")
}

func TestClient_SubscribeBeforeConnect(t *testing.T) {
	c, broker := newTestClient(t)

	var got []byte
	require.NoError(t, c.SubscribeCommands(func(p []byte) { got = p }))
	assert.Empty(t, broker.subs, "subscription should wait for the connection")

	require.NoError(t, c.Connect(context.Background()))
	broker.deliver(t, "aldes/commands", []byte(`{"type":"auto"}`))
	assert.Equal(t, `{"type":"auto"}`, string(got))
}

func TestClient_ResubscribeOnReconnect(t *testing.T) {
	c, broker := newTestClient(t)
	require.NoError(t, c.Connect(context.Background()))

	calls := 0
	require.NoError(t, c.Subscribe("aldes/commands", func([]byte) { calls++ }))

	// Broker restart drops subscriptions; paho calls OnConnect again
	broker.subs = make(map[string]paho.MessageHandler)
	broker.opts.OnConnect(broker)

	broker.deliver(t, "aldes/commands", []byte("{}"))
	assert.Equal(t, 1, calls)
}

func TestClient_Close(t *testing.T) {
	c, broker := newTestClient(t)
	c.Close() // before Connect

	require.NoError(t, c.Connect(context.Background()))
	c.Close()
	assert.False(t, broker.connected)
}
