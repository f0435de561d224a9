package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/speedwagon-io/trafo-telemetry/internal/agent"
	"github.com/speedwagon-io/trafo-telemetry/internal/broker"
	"github.com/speedwagon-io/trafo-telemetry/internal/config"
	"github.com/speedwagon-io/trafo-telemetry/internal/health"
	"github.com/speedwagon-io/trafo-telemetry/internal/journal"
	"github.com/speedwagon-io/trafo-telemetry/internal/lib/logger/sl"
	"github.com/speedwagon-io/trafo-telemetry/internal/metrics"
	"github.com/speedwagon-io/trafo-telemetry/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	bootID := uuid.New().String()

	log.Info("starting trafo telemetry agent",
		slog.String("env", cfg.Env),
		slog.String("client_id", cfg.Device.ClientID),
		slog.String("boot_id", bootID),
	)

	sensorsCfg := config.MustLoadSensors(cfg.Device.SensorsPath)

	log.Info("loaded sensors config",
		slog.String("site", sensorsCfg.Site),
		slog.Int("groups", len(sensorsCfg.Groups)),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var jrnl journal.Journal
	var sqliteJrnl *journal.SQLiteJournal
	if !cfg.Journal.Disabled {
		var err error
		sqliteJrnl, err = journal.NewSQLiteJournal(log, cfg.Journal.Path, bootID)
		if err != nil {
			log.Error("failed to open journal", sl.Err(err))
			os.Exit(1)
		}
		jrnl = sqliteJrnl
		if err := jrnl.Record(context.Background(), journal.NewEvent(journal.KindBoot, 0, cfg.Device.ClientID)); err != nil {
			log.Error("failed to journal boot", sl.Err(err))
		}
		log.Info("journal enabled", slog.String("path", cfg.Journal.Path))
	}

	groups, closeBuses, err := buildGroups(log, sensorsCfg)
	if err != nil {
		log.Error("failed to set up sensors", sl.Err(err))
		os.Exit(1)
	}

	transport := broker.NewPahoTransport(log, broker.PahoConfig{
		Host:           cfg.Broker.Host,
		Port:           cfg.Broker.Port,
		KeepAlive:      cfg.Broker.KeepAlive,
		ConnectTimeout: cfg.Broker.ConnectTimeout,
		PublishTimeout: cfg.Broker.PublishTimeout,
		QoS:            byte(cfg.Broker.QoS),
		Retain:         cfg.Broker.Retain,
	})

	conn := broker.NewManager(
		log,
		transport,
		broker.Credentials{
			ClientID: cfg.Device.ClientID,
			Username: cfg.Broker.Username,
			Password: cfg.Broker.Password,
		},
		cfg.Broker.Subscriptions,
		broker.NewFixedBackoff(cfg.Broker.Backoff),
		m,
		jrnl,
	)

	healthServer := health.NewServer(log, cfg.Health.Address)
	healthServer.AddChecker(health.NewBrokerHealthChecker(conn.Connected, conn.Status))
	healthServer.SetMetrics(reg)

	if sqliteJrnl != nil {
		healthServer.AddChecker(health.NewJournalHealthChecker(sqliteJrnl.Count, cfg.Journal.MaxRows))
		healthServer.SetEvents(sqliteJrnl.Recent)
	}

	if err := healthServer.Start(); err != nil {
		log.Error("failed to start health server", sl.Err(err))
		os.Exit(1)
	}

	clock := scheduler.NewMonotonicClock()

	var agentRef *agent.Agent
	cleanup := func() {
		conn.Close()
		if agentRef != nil {
			agentRef.Close()
		}
		closeBuses()
		if jrnl != nil {
			if err := jrnl.Close(); err != nil {
				log.Error("failed to close journal", sl.Err(err))
			}
		}
	}

	var watchdog *agent.Watchdog
	if !cfg.Watchdog.Disabled {
		var restarter agent.Restarter
		switch cfg.Watchdog.Mode {
		case "exit":
			restarter = &agent.ExitRestarter{Log: log, Code: 1, Before: cleanup}
		default:
			restarter = &agent.ExecRestarter{Log: log, Before: cleanup}
		}

		watchdog, err = agent.NewWatchdog(log, clock, cfg.Watchdog.Uptime, restarter, jrnl)
		if err != nil {
			log.Error("failed to create watchdog", sl.Err(err))
			os.Exit(1)
		}
		log.Info("watchdog armed",
			slog.Duration("uptime", cfg.Watchdog.Uptime),
			slog.String("mode", cfg.Watchdog.Mode),
		)
	}

	agentRef, err = agent.New(log, clock, conn, groups, agent.Options{
		ConnectionInterval: cfg.Schedule.ConnectionInterval,
		IdleSleep:          cfg.Schedule.IdleSleep,
		Watchdog:           watchdog,
		Metrics:            m,
		Journal:            jrnl,
		JournalMaxAge:      cfg.Journal.MaxAge,
		CleanupInterval:    cfg.Journal.CleanupInterval,
	})
	if err != nil {
		log.Error("failed to create agent", sl.Err(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
	}()

	if watchdog != nil {
		stopWatchdog := watchdog.Arm(ctx)
		defer stopWatchdog()
	}

	agentRef.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := healthServer.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop health server", sl.Err(err))
	}

	cleanup()

	log.Info("agent stopped")
}
