// Package catalog holds the immutable per-class trip lists replayed by the simulation.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/models"
	"gopkg.in/yaml.v3"
)

// TimestampLayout is the layout of trip timestamps in catalog files.
const TimestampLayout = "2006-01-02 15:04:05"

// Format selects the catalog file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// LoadError reports a malformed catalog source. The process must not start with one.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load catalog %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Class is the trip list shared by every vehicle of one class.
type Class struct {
	Name       string
	InitialSoc float64
	Trips      []models.Trip
}

// Catalog maps vehicle classes to their ordered trips. It is read-only after construction.
type Catalog struct {
	classes map[string]Class
	names   []string
}

// New builds a catalog from already validated classes.
func New(classes ...Class) *Catalog {
	c := &Catalog{classes: make(map[string]Class, len(classes))}
	for _, cl := range classes {
		trips := make([]models.Trip, len(cl.Trips))
		for i, t := range cl.Trips {
			trips[i] = t.Clone()
		}
		cl.Trips = trips
		c.classes[cl.Name] = cl
	}
	c.names = make([]string, 0, len(c.classes))
	for name := range c.classes {
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c
}

// file shapes, shared by the JSON and YAML decoders
type classFile struct {
	InitialSoc float64    `json:"initial_soc" yaml:"initial_soc"`
	Trips      []tripFile `json:"trips" yaml:"trips"`
}

type tripFile struct {
	Timestamp        string           `json:"timestamp" yaml:"timestamp"`
	FromLocation     string           `json:"from_location" yaml:"from_location"`
	ToLocation       string           `json:"to_location" yaml:"to_location"`
	DistanceKm       *float64         `json:"distance_km" yaml:"distance_km"`
	EnergyConsumedWh *float64         `json:"energy_consumed_wh" yaml:"energy_consumed_wh"`
	SocPercentage    *float64         `json:"soc_percentage" yaml:"soc_percentage"`
	StartPosition    *models.Position `json:"start_position" yaml:"start_position"`
	EndPosition      *models.Position `json:"end_position" yaml:"end_position"`
	Path             *[]string        `json:"path" yaml:"path"`
}

// Load reads a catalog file. The format follows the file extension (.yaml/.yml, otherwise JSON).
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	c, err := Parse(b, format)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = path
		}
		return nil, err
	}
	for _, name := range c.names {
		log.WithFields(log.Fields{
			"class": name,
			"trips": len(c.classes[name].Trips),
		}).Info("Loaded trips for vehicle class")
	}
	return c, nil
}

// Parse decodes and validates catalog bytes.
func Parse(data []byte, format Format) (*Catalog, error) {
	raw := map[string]classFile{}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatJSON, "":
		err = json.Unmarshal(data, &raw)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, &LoadError{Source: string(format), Err: err}
	}

	classes := make([]Class, 0, len(raw))
	for name, cf := range raw {
		if strings.TrimSpace(name) == "" {
			return nil, &LoadError{Source: string(format), Err: errors.New("empty vehicle class name")}
		}
		cl := Class{Name: name, InitialSoc: cf.InitialSoc, Trips: make([]models.Trip, 0, len(cf.Trips))}
		for i, tf := range cf.Trips {
			trip, err := tf.toTrip()
			if err != nil {
				return nil, &LoadError{Source: string(format), Err: fmt.Errorf("class %q trip %d: %w", name, i, err)}
			}
			cl.Trips = append(cl.Trips, trip)
		}
		classes = append(classes, cl)
	}
	return New(classes...), nil
}

func (tf tripFile) toTrip() (models.Trip, error) {
	var missing []string
	if tf.DistanceKm == nil {
		missing = append(missing, "distance_km")
	}
	if tf.EnergyConsumedWh == nil {
		missing = append(missing, "energy_consumed_wh")
	}
	if tf.SocPercentage == nil {
		missing = append(missing, "soc_percentage")
	}
	if tf.Path == nil {
		missing = append(missing, "path")
	}
	if tf.StartPosition == nil {
		missing = append(missing, "start_position")
	}
	if tf.EndPosition == nil {
		missing = append(missing, "end_position")
	}
	if len(missing) > 0 {
		return models.Trip{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	trip := models.Trip{
		FromLocation:     tf.FromLocation,
		ToLocation:       tf.ToLocation,
		DistanceKm:       *tf.DistanceKm,
		EnergyConsumedWh: *tf.EnergyConsumedWh,
		SocPercentage:    *tf.SocPercentage,
		StartPosition:    *tf.StartPosition,
		EndPosition:      *tf.EndPosition,
		Path:             append([]string{}, (*tf.Path)...),
	}
	if tf.Timestamp != "" {
		ts, err := time.ParseInLocation(TimestampLayout, tf.Timestamp, time.UTC)
		if err != nil {
			return models.Trip{}, fmt.Errorf("invalid timestamp %q: %w", tf.Timestamp, err)
		}
		trip.Timestamp = ts
	}
	return trip, nil
}

// Classes returns the class names in sorted order.
func (c *Catalog) Classes() []string {
	return append([]string(nil), c.names...)
}

// Has reports whether the class is present (possibly with zero trips).
func (c *Catalog) Has(class string) bool {
	_, ok := c.classes[class]
	return ok
}

// Trips returns a deep copy of the class's trips, nil for unknown classes.
func (c *Catalog) Trips(class string) []models.Trip {
	cl, ok := c.classes[class]
	if !ok {
		return nil
	}
	out := make([]models.Trip, len(cl.Trips))
	for i, t := range cl.Trips {
		out[i] = t.Clone()
	}
	return out
}

// Trip returns one trip of a class.
func (c *Catalog) Trip(class string, index int) (models.Trip, bool) {
	cl, ok := c.classes[class]
	if !ok || index < 0 || index >= len(cl.Trips) {
		return models.Trip{}, false
	}
	return cl.Trips[index].Clone(), true
}

// TripCount returns the number of trips of a class.
func (c *Catalog) TripCount(class string) int {
	return len(c.classes[class].Trips)
}

// PathLen returns the number of waypoints of a trip, 0 if it does not exist.
func (c *Catalog) PathLen(class string, index int) int {
	cl, ok := c.classes[class]
	if !ok || index < 0 || index >= len(cl.Trips) {
		return 0
	}
	return len(cl.Trips[index].Path)
}

// InitialSoc returns the initial state of charge declared for a class.
func (c *Catalog) InitialSoc(class string) (float64, bool) {
	cl, ok := c.classes[class]
	return cl.InitialSoc, ok
}
