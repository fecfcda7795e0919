package broadcast

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/models"
)

// MQTTConfig configures the broker connection of MQTTPublisher.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Root     string // snapshots go to <Root>/<topic>
	QoS      byte
	Retained bool
	Timeout  time.Duration
	Username string
	Password string
}

// MQTTPublisher publishes snapshots as JSON to an MQTT broker.
type MQTTPublisher struct {
	client  mqtt.Client
	root    string
	qos     byte
	retain  bool
	timeout time.Duration
}

// NewMQTTClientOptions returns paho options for cfg.
func NewMQTTClientOptions(cfg MQTTConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	return opts
}

// ConnectMQTT connects to the broker in cfg.
func ConnectMQTT(cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	client := mqtt.NewClient(NewMQTTClientOptions(cfg))
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	log.WithFields(log.Fields{
		"broker":    cfg.Broker,
		"client_id": cfg.ClientID,
	}).Info("Connected to MQTT broker")
	return NewMQTTPublisher(client, cfg), nil
}

// NewMQTTPublisher wraps an already configured client.
func NewMQTTPublisher(client mqtt.Client, cfg MQTTConfig) *MQTTPublisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MQTTPublisher{
		client:  client,
		root:    strings.TrimSuffix(cfg.Root, "/"),
		qos:     cfg.QoS,
		retain:  cfg.Retained,
		timeout: cfg.Timeout,
	}
}

// BrokerTopic maps a logical topic onto the broker namespace.
func (p *MQTTPublisher) BrokerTopic(topic string) string {
	if p.root == "" {
		return topic
	}
	return p.root + "/" + topic
}

// Publish marshals snap and waits for the broker to accept it.
func (p *MQTTPublisher) Publish(topic string, snap models.Snapshot) error {
	if p.client == nil {
		return fmt.Errorf("mqtt client is nil")
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	token := p.client.Publish(p.BrokerTopic(topic), p.qos, p.retain, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("mqtt publish to %s timed out", topic)
	}
	return token.Error()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
