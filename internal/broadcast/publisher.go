// Package broadcast delivers vehicle snapshots to subscribers.
package broadcast

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/models"
)

// TopicPrefix is prepended to the VIN to form a vehicle's logical topic.
const TopicPrefix = "simulation."

// Publisher delivers a snapshot to the subscribers of a topic.
type Publisher interface {
	Publish(topic string, snap models.Snapshot) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(topic string, snap models.Snapshot) error

// Publish calls f(topic, snap).
func (f PublisherFunc) Publish(topic string, snap models.Snapshot) error {
	return f(topic, snap)
}

// Topic returns the logical topic of a vehicle.
func Topic(vin string) string {
	return TopicPrefix + vin
}

// Fanout publishes to every sink. Delivery is best effort: sink errors and
// panics are logged and never reach the caller.
type Fanout struct {
	sinks []Publisher
}

// NewFanout builds a Fanout over the non-nil sinks.
func NewFanout(sinks ...Publisher) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Publish always returns nil.
func (f *Fanout) Publish(topic string, snap models.Snapshot) error {
	for _, s := range f.sinks {
		if err := safePublish(s, topic, snap); err != nil {
			log.WithFields(log.Fields{
				"topic": topic,
				"vin":   snap.VIN,
				"sink":  fmt.Sprintf("%T", s),
			}).WithError(err).Warn("Failed to publish snapshot")
		}
	}
	return nil
}

func safePublish(p Publisher, topic string, snap models.Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publisher panic: %v", r)
		}
	}()
	return p.Publish(topic, snap)
}
