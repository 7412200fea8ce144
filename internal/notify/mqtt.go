package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rozadev/roza/pkg/logger"
	"github.com/rozadev/roza/pkg/rozalib"
)

const (
	DefaultTopic = "roza/alerts"
	DefaultQoS   = byte(1)
)

// Publisher is the subset of mqtt.Client used here.
type Publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes notifications as JSON to a broker topic.
type MQTT struct {
	client  Publisher
	topic   string
	qos     byte
	timeout time.Duration
}

// MQTTOptions configures Connect.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
	Log      logger.Logger
}

// ConnectMQTT dials the broker and returns a ready channel.
func ConnectMQTT(opts MQTTOptions) (*MQTT, mqtt.Client, error) {
	if opts.ClientID == "" {
		opts.ClientID = "roza"
	}
	if opts.Log == nil {
		opts.Log = logger.NewNopLogger()
	}
	l := opts.Log
	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	co.SetAutoReconnect(true)
	co.SetConnectTimeout(10 * time.Second)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	co.OnConnect = func(mqtt.Client) {
		l.Info("connected to MQTT broker %s", opts.Broker)
	}
	co.OnConnectionLost = func(_ mqtt.Client, err error) {
		l.Warning("MQTT connection lost: %v", err)
	}
	c := mqtt.NewClient(co)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return NewMQTT(c, opts.Topic), c, nil
}

// NewMQTT wraps an existing client.
func NewMQTT(c Publisher, topic string) *MQTT {
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTT{client: c, topic: topic, qos: DefaultQoS, timeout: 5 * time.Second}
}

func (m *MQTT) Name() string { return "mqtt" }

// Permission is true while the client is connected.
func (m *MQTT) Permission() bool {
	return m.client != nil && m.client.IsConnected()
}

func (m *MQTT) Notify(_ context.Context, n rozalib.Notification) error {
	if !m.Permission() {
		return ErrNotificationUnavailable
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.topic, m.qos, false, payload)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("publish to %s timed out", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", m.topic, err)
	}
	return nil
}
