package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/auth"
	"github.com/ukydev/fleet-replay/internal/broadcast"
	"github.com/ukydev/fleet-replay/internal/catalog"
	"github.com/ukydev/fleet-replay/internal/config"
	"github.com/ukydev/fleet-replay/internal/db"
	"github.com/ukydev/fleet-replay/internal/handlers"
	"github.com/ukydev/fleet-replay/internal/middleware"
	"github.com/ukydev/fleet-replay/internal/simulation"
	"golang.org/x/sync/errgroup"
)

// app is the wired simulation server.
type app struct {
	service   *simulation.Service
	scheduler *simulation.Scheduler
	handler   http.Handler
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// storage selects the vehicle directory and the optional snapshot sink.
type storage struct {
	directory simulation.Directory
	vehicles  db.VehicleStore
	snapshots broadcast.Publisher
	close     func()
}

func openStorage(ctx context.Context, cfg config.MongoConfig) (storage, error) {
	if cfg.URI == "" {
		log.Info("MONGO_URI not set, using in-memory vehicle directory")
		mem := db.NewMemoryDirectory()
		return storage{directory: mem, vehicles: mem, close: func() {}}, nil
	}

	client, err := db.ConnectMongo(ctx, cfg.URI)
	if err != nil {
		return storage{}, err
	}
	log.WithField("database", cfg.Database).Info("Connected to MongoDB")

	database := client.Database(cfg.Database)
	vehicles := &db.MongoCollection{Collection: database.Collection(cfg.VehicleCollection)}
	return storage{
		directory: &db.VehicleDirectory{Vehicles: vehicles},
		vehicles:  vehicles,
		snapshots: &db.SnapshotSink{Snapshots: &db.MongoSnapshotCollection{Collection: database.Collection(cfg.SnapshotCollection)}},
		close: func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.WithError(err).Warn("MongoDB disconnect failed")
			}
		},
	}, nil
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	cat, err := catalog.Load(cfg.Simulation.CatalogPath)
	if err != nil {
		return nil, err
	}

	a := &app{}
	store, err := openStorage(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.close)

	if cfg.Simulation.SeedVehicles {
		n, err := db.SeedFromCatalog(ctx, store.vehicles, cat)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("seed vehicles: %w", err)
		}
		log.WithField("inserted", n).Info("Vehicle seeding completed")
	}

	hub := broadcast.NewHub()
	sinks := []broadcast.Publisher{hub, store.snapshots}
	if cfg.MQTT.Broker != "" {
		pub, err := broadcast.ConnectMQTT(broadcast.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Root:     cfg.MQTT.TopicRoot,
			QoS:      byte(cfg.MQTT.QoS),
			Timeout:  cfg.MQTT.Timeout,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		if err != nil {
			// snapshots still reach websocket subscribers
			log.WithError(err).Warn("MQTT unavailable, publishing in-process only")
		} else {
			sinks = append(sinks, pub)
			a.closers = append(a.closers, pub.Close)
		}
	}

	a.service = simulation.NewService(cat, store.directory, broadcast.NewFanout(sinks...))
	a.scheduler = simulation.NewScheduler(a.service, cfg.Simulation.TickInterval)

	opts := handlers.RouterOptions{
		RateLimiter:     middleware.NewRateLimitMiddleware(),
		RateLimit:       cfg.Auth.RateLimit,
		RateLimitWindow: cfg.Auth.RateLimitWindow,
	}
	if cfg.Auth.Enabled {
		tokens, err := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
		if err != nil {
			a.close()
			return nil, err
		}
		opts.Auth = middleware.NewAuthMiddleware(tokens)
	}
	a.handler = handlers.NewRouter(handlers.NewSimulationHandler(a.service, hub), opts)
	return a, nil
}

func run(ctx context.Context, cfg config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.scheduler.Run(gctx)
	})
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := config.ConfigureLogging(cfg.Log); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"catalog":       cfg.Simulation.CatalogPath,
		"tick_interval": cfg.Simulation.TickInterval.String(),
		"mqtt":          cfg.MQTT.Broker != "",
		"mongo":         cfg.Mongo.URI != "",
	}).Info("Starting fleet replay simulation")

	if err := run(ctx, cfg); err != nil {
		var loadErr *catalog.LoadError
		if errors.As(err, &loadErr) {
			log.WithError(err).Fatal("Trip catalog is invalid")
		}
		log.WithError(err).Fatal("Simulation server stopped")
	}
	log.Info("Simulation server stopped")
}
