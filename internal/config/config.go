// Package config loads process settings from defaults, an optional YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Mongo      MongoConfig      `mapstructure:"mongo"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SimulationConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	CatalogPath  string        `mapstructure:"catalog_path"`
	SeedVehicles bool          `mapstructure:"seed_vehicles"`
}

// MongoConfig is optional: an empty URI selects the in-memory vehicle directory.
type MongoConfig struct {
	URI                string `mapstructure:"uri"`
	Database           string `mapstructure:"database"`
	VehicleCollection  string `mapstructure:"vehicle_collection"`
	SnapshotCollection string `mapstructure:"snapshot_collection"`
}

// MQTTConfig is optional: an empty broker disables MQTT publishing.
type MQTTConfig struct {
	Broker    string        `mapstructure:"broker"`
	ClientID  string        `mapstructure:"client_id"`
	TopicRoot string        `mapstructure:"topic_root"`
	QoS       int           `mapstructure:"qos"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	TokenExpiry     time.Duration `mapstructure:"token_expiry"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// environment variable for every key
var envBindings = map[string]string{
	"server.port":               "PORT",
	"server.shutdown_timeout":   "SHUTDOWN_TIMEOUT",
	"simulation.tick_interval":  "SIM_TICK_INTERVAL",
	"simulation.catalog_path":   "CATALOG_PATH",
	"simulation.seed_vehicles":  "SEED_VEHICLES",
	"mongo.uri":                 "MONGO_URI",
	"mongo.database":            "MONGO_DB",
	"mongo.vehicle_collection":  "MONGO_VEHICLE_COLLECTION",
	"mongo.snapshot_collection": "MONGO_SNAPSHOT_COLLECTION",
	"mqtt.broker":               "MQTT_BROKER",
	"mqtt.client_id":            "MQTT_CLIENT_ID",
	"mqtt.topic_root":           "MQTT_TOPIC_ROOT",
	"mqtt.qos":                  "MQTT_QOS",
	"mqtt.username":             "MQTT_USERNAME",
	"mqtt.password":             "MQTT_PASSWORD",
	"mqtt.timeout":              "MQTT_TIMEOUT",
	"auth.enabled":              "AUTH_ENABLED",
	"auth.jwt_secret":           "JWT_SECRET",
	"auth.token_expiry":         "JWT_EXPIRY",
	"auth.rate_limit":           "RATE_LIMIT",
	"auth.rate_limit_window":    "RATE_LIMIT_WINDOW",
	"log.level":                 "LOG_LEVEL",
	"log.format":                "LOG_FORMAT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("simulation.tick_interval", 5*time.Second)
	v.SetDefault("simulation.catalog_path", "data/ev_simulation_logs.json")
	v.SetDefault("simulation.seed_vehicles", true)
	v.SetDefault("mongo.database", "fleet")
	v.SetDefault("mongo.vehicle_collection", "vehicles")
	v.SetDefault("mongo.snapshot_collection", "simulation_snapshots")
	v.SetDefault("mqtt.client_id", "fleet-replay")
	v.SetDefault("mqtt.topic_root", "fleet")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.timeout", 5*time.Second)
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.token_expiry", 24*time.Hour)
	v.SetDefault("auth.rate_limit", 120)
	v.SetDefault("auth.rate_limit_window", time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration. path names an optional YAML file; an empty path
// skips it. A .env file in the working directory is loaded when present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c Config) Validate() error {
	if c.Simulation.CatalogPath == "" {
		return fmt.Errorf("simulation.catalog_path is required")
	}
	if c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("simulation.tick_interval must be positive")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}
