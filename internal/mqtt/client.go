// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package mqtt connects the bridge to an MQTT broker
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/Thermoquad/aldestat/internal/config"
)

// DefaultTimeout bounds publish and subscribe round trips
const DefaultTimeout = 10 * time.Second

// ErrNotConnected is returned by Publish before Connect succeeds
var ErrNotConnected = errors.New("mqtt client not connected")

// Publisher sends one payload to a topic
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Client wraps a paho client with the bridge's topic and QoS settings.
// Command subscriptions are restored after every reconnect.
type Client struct {
	log     *zap.Logger
	cfg     config.MQTTConfig
	timeout time.Duration

	newClient func(*paho.ClientOptions) paho.Client
	c         paho.Client

	mu   sync.Mutex
	subs map[string]func([]byte)
}

// New creates a client; nothing is sent until Connect
func New(cfg config.MQTTConfig, log *zap.Logger) *Client {
	stdLog := zap.NewStdLog(log.Named("paho"))
	paho.ERROR = stdLog
	paho.CRITICAL = stdLog

	return &Client{
		log:       log,
		cfg:       cfg,
		timeout:   DefaultTimeout,
		newClient: paho.NewClient,
		subs:      make(map[string]func([]byte)),
	}
}

func (c *Client) options() *paho.ClientOptions {
	opts := paho.NewClientOptions().
		AddBroker(c.cfg.Broker).
		SetClientID(c.cfg.ClientID).
		SetKeepAlive(c.cfg.KeepAlive).
		SetPingTimeout(c.cfg.KeepAlive / 2).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(time.Minute).
		SetOrderMatters(false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}
	return opts
}

// Connect dials the broker and waits for the first connection. With
// connect-retry enabled paho keeps trying in the background, so ctx
// bounds the wait.
func (c *Client) Connect(ctx context.Context) error {
	c.c = c.newClient(c.options())
	c.log.Info("connecting to broker", zap.String("broker", c.cfg.Broker), zap.String("client_id", c.cfg.ClientID))

	token := c.c.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect %s: %w", c.cfg.Broker, err)
		}
		return nil
	case <-ctx.Done():
		c.c.Disconnect(0)
		return fmt.Errorf("mqtt connect %s: %w", c.cfg.Broker, ctx.Err())
	}
}

// Publish sends payload with the configured QoS and retain flag
func (c *Client) Publish(topic string, payload []byte) error {
	if c.c == nil {
		return ErrNotConnected
	}
	token := c.c.Publish(topic, c.cfg.QoS, c.cfg.Retain, payload)
	return c.wait(token, "publish "+topic)
}

// SubscribeCommands routes messages on the command topic to handler
func (c *Client) SubscribeCommands(handler func(payload []byte)) error {
	return c.Subscribe(c.cfg.TopicCommand, handler)
}

// Subscribe registers handler for topic and subscribes when connected
func (c *Client) Subscribe(topic string, handler func(payload []byte)) error {
	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()

	if c.c == nil || !c.c.IsConnectionOpen() {
		// onConnect subscribes once the connection is up
		return nil
	}
	return c.subscribe(c.c, topic, handler)
}

func (c *Client) subscribe(pc paho.Client, topic string, handler func([]byte)) error {
	token := pc.Subscribe(topic, c.cfg.QoS, func(_ paho.Client, msg paho.Message) {
		c.log.Debug("message received", zap.String("topic", msg.Topic()), zap.Int("bytes", len(msg.Payload())))
		handler(msg.Payload())
		msg.Ack()
	})
	if err := c.wait(token, "subscribe "+topic); err != nil {
		return err
	}
	c.log.Info("subscribed", zap.String("topic", topic))
	return nil
}

// Close disconnects, allowing in-flight messages 250 ms to complete
func (c *Client) Close() {
	if c.c == nil {
		return
	}
	c.c.Disconnect(250)
	c.log.Info("disconnected from broker")
}

func (c *Client) onConnect(pc paho.Client) {
	c.log.Info("connected to broker", zap.String("broker", c.cfg.Broker))

	c.mu.Lock()
	subs := make(map[string]func([]byte), len(c.subs))
	for topic, h := range c.subs {
		subs[topic] = h
	}
	c.mu.Unlock()

	for topic, h := range subs {
		if err := c.subscribe(pc, topic, h); err != nil {
			c.log.Error("resubscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}

func (c *Client) onConnectionLost(_ paho.Client, err error) {
	c.log.Warn("connection to broker lost", zap.Error(err))
}

func (c *Client) wait(token paho.Token, op string) error {
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("mqtt %s: timed out after %s", op, c.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt %s: %w", op, err)
	}
	return nil
}
