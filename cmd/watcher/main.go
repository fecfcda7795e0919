// Command watcher subscribes to the simulation's MQTT snapshots and logs them,
// raising driver notifications for low battery and high speed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/advisory"
	"github.com/ukydev/fleet-replay/internal/broadcast"
	"github.com/ukydev/fleet-replay/internal/models"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// subscription returns the wildcard filter matching every vehicle topic under root.
func subscription(root string) string {
	root = strings.TrimSuffix(root, "/")
	if root == "" {
		return "+"
	}
	return root + "/+"
}

// handleMessage decodes one snapshot and logs it. It returns the notification text, if any.
func handleMessage(topic string, payload []byte) (string, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return "", fmt.Errorf("decode snapshot on %s: %w", topic, err)
	}
	if snap.VIN == "" {
		return "", fmt.Errorf("snapshot on %s has no vin", topic)
	}

	fields := log.Fields{
		"topic":          topic,
		"vin":            snap.VIN,
		"lat":            snap.Latitude,
		"lon":            snap.Longitude,
		"speed":          snap.Speed,
		"battery_level":  snap.BatteryLevel,
		"traffic":        snap.TrafficCondition,
		"recommendation": snap.Recommendation,
		"tick_id":        snap.TickID,
	}
	log.WithFields(fields).Info("Received snapshot")

	note := advisory.Notification(advisory.Input{BatteryLevel: snap.BatteryLevel, Speed: snap.Speed})
	if note != "" {
		log.WithField("vin", snap.VIN).Warn(note)
	}
	return note, nil
}

func main() {
	_ = godotenv.Load()

	broker := flag.String("broker", getenv("MQTT_BROKER", "tcp://localhost:1883"), "MQTT broker URL")
	root := flag.String("root", getenv("MQTT_TOPIC_ROOT", "fleet"), "topic root the simulation publishes under")
	vin := flag.String("vin", "", "watch a single vehicle")
	flag.Parse()

	filter := subscription(*root)
	if *vin != "" {
		filter = strings.TrimSuffix(*root, "/") + "/" + broadcast.Topic(*vin)
	}

	opts := broadcast.NewMQTTClientOptions(broadcast.MQTTConfig{
		Broker:   *broker,
		ClientID: getenv("MQTT_CLIENT_ID", "fleet-replay-watcher"),
		Timeout:  5 * time.Second,
		Username: os.Getenv("MQTT_USERNAME"),
		Password: os.Getenv("MQTT_PASSWORD"),
	})
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).Fatal("Failed to connect to MQTT broker")
	}
	defer client.Disconnect(250)

	token := client.Subscribe(filter, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if _, err := handleMessage(msg.Topic(), msg.Payload()); err != nil {
			log.WithError(err).Warn("Dropping message")
		}
	})
	if token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).Fatal("Failed to subscribe")
	}
	log.WithFields(log.Fields{"broker": *broker, "filter": filter}).Info("Watching simulation snapshots")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("Watcher stopped")
}
