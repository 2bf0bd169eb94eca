package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/backoffice-core/internal/api"
	"github.com/nerrad567/backoffice-core/internal/auth"
	"github.com/nerrad567/backoffice-core/internal/authstats"
	"github.com/nerrad567/backoffice-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/backoffice-core/internal/infrastructure/mqtt"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

// runServe is the server lifecycle, separated from cobra for testability.
// It returns nil on clean shutdown after ctx is cancelled.
func runServe(ctx context.Context, configFlag string) error {
	a, err := openApp(ctx, configFlag)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.log.Error("error closing database", "error", closeErr)
		}
	}()
	cfg, log := a.cfg, a.log

	log.Info("starting back-office core",
		"version", version,
		"commit", commit,
		"build_date", date,
		"site", cfg.Site.ID,
		"site_name", cfg.Site.Name,
	)

	created, err := a.dir.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seeding default users: %w", err)
	}
	if created > 0 {
		log.Warn("default users created, change their passwords", "count", created)
	}

	sessions := auth.NewSessionManager(cfg.SessionTTL())
	log.Info("session manager initialised", "ttl", sessions.TTL().String())

	reporter := authstats.New(cfg.Site.ID, sessions.Count, log.Logger)
	telemetry := map[string]api.HealthChecker{}

	// Connect to MQTT broker (optional)
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		reporter.AddSink(authstats.NewMQTTSink(mqttClient))
		telemetry["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		reporter.AddSink(authstats.NewInfluxSink(influxClient))
		telemetry["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	srv, err := api.New(api.Deps{
		Config:    cfg.API,
		Logger:    log,
		Directory: a.dir,
		Sessions:  sessions,
		Stats:     reporter,
		Database:  a.store.health,
		Version:   version,
		Telemetry: telemetry,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}

	sweeper := auth.NewSweeper(sessions, cfg.SweepInterval(), log.Logger)
	sweeper.OnSweep = reporter.SessionsSwept

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Close()
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		return reporter.Run(gctx, cfg.StatsInterval())
	})

	log.Info("back-office core running", "address", srv.Addr())

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
