// bulbsyncd keeps a fleet of MagicHome LED bulbs synchronised.
//
// It maintains a cached view of each bulb's power and colour state,
// serialises and throttles outbound commands per bulb, polls bulbs in the
// background with adaptive backoff, and exposes the whole thing over a
// REST/WebSocket API and an MQTT bridge, with optional InfluxDB telemetry
// and a SQLite state history.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wrenfold/bulbsync/internal/api"
	"github.com/wrenfold/bulbsync/internal/bulb"
	"github.com/wrenfold/bulbsync/internal/infrastructure/config"
	"github.com/wrenfold/bulbsync/internal/infrastructure/database"
	"github.com/wrenfold/bulbsync/internal/infrastructure/influxdb"
	"github.com/wrenfold/bulbsync/internal/infrastructure/logging"
	"github.com/wrenfold/bulbsync/internal/infrastructure/mqtt"
	"github.com/wrenfold/bulbsync/internal/magichome"
	"github.com/wrenfold/bulbsync/internal/provision"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// startupRefreshTimeout bounds the initial full-fleet refresh. Bulbs
// that stay silent simply start offline; startup never blocks on them.
const startupRefreshTimeout = 45 * time.Second

func main() {
	// Local overrides for development; missing .env is not an error.
	//nolint:errcheck // Absent .env files are expected outside development
	godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Startup order: config, logger, database, engine (with an initial fleet
// refresh), poller, MQTT, InfluxDB, provisioner, API. Deferred Close()
// calls tear the stack down in reverse.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting bulbsync",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "bulbs", len(cfg.Bulbs), "groups", len(cfg.Groups))

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database and apply the schema
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("preparing database schema: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	history := bulb.NewSQLiteHistoryRepository(db.DB)

	// Build the synchronisation engine over real bulb transports
	engine := buildEngine(cfg, log)
	engine.SetLogger(log.Component("engine"))
	engine.SetHistory(history)

	// Rebuild the in-memory state cache from the network
	log.Info("running initial fleet refresh")
	refreshCtx, refreshCancel := context.WithTimeout(ctx, startupRefreshTimeout)
	results := engine.ForceRefreshAll(refreshCtx)
	refreshCancel()
	online := 0
	for _, ok := range results {
		if ok {
			online++
		}
	}
	log.Info("initial refresh complete", "online", online, "total", len(cfg.Bulbs))

	// Adaptive background poller
	var poller *bulb.Poller
	if cfg.Poller.Enabled {
		poller = bulb.NewPoller(engine, bulb.PollerOptions{
			Cadence:          time.Duration(cfg.Poller.Cadence) * time.Second,
			SkipAfterCommand: time.Duration(cfg.Poller.SkipAfterCommand) * time.Second,
			RoundTimeout:     time.Duration(cfg.Poller.RoundTimeout) * time.Second,
			MaxConcurrent:    cfg.Poller.MaxConcurrent,
		})
		poller.SetLogger(log.Component("poller"))
		if startErr := poller.Start(ctx); startErr != nil {
			return fmt.Errorf("starting poller: %w", startErr)
		}
		defer func() {
			log.Info("stopping poller")
			poller.Stop()
		}()
		log.Info("poller started", "cadence_s", cfg.Poller.Cadence)
	} else {
		log.Info("poller disabled")
	}

	// MQTT bridge (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge := mqtt.NewBridge(mqttClient, engine, byte(cfg.MQTT.QoS))
		bridge.SetLogger(log.Component("mqtt-bridge"))
		if startErr := bridge.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			bridge.Stop()
		}()
		log.Info("MQTT bridge started")
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB telemetry (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		// Mirror every state event into the time-series store.
		telemetrySub := engine.Subscribe(func(event bulb.Event) {
			influxClient.WriteBulbState(event.State)
		})
		defer engine.Unsubscribe(telemetrySub)

		// Poll health metrics: failure streaks and backoff tiers.
		if poller != nil {
			poller.SetHealthSink(influxClient.WritePollHealth)
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	// Wi-Fi provisioner watch loop (optional, needs root)
	if cfg.Provisioner.Enabled {
		provisioner := provision.NewProvisioner(cfg.Provisioner, cfg.Bulbs)
		provisioner.SetLogger(log.Component("provision"))
		if startErr := provisioner.Start(ctx); startErr != nil {
			return fmt.Errorf("starting provisioner: %w", startErr)
		}
		defer func() {
			log.Info("stopping provisioner")
			provisioner.Stop()
		}()
		log.Info("provisioner watch started", "interface", cfg.Provisioner.Interface)
	} else {
		log.Info("provisioner disabled")
	}

	// HTTP API and WebSocket server
	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log.Component("api"),
		Engine:  engine,
		History: history,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	// Deferred Close() calls run in reverse order:
	// API, provisioner, InfluxDB, MQTT bridge, MQTT, poller, database.

	log.Info("bulbsync stopped")
	return nil
}

// buildEngine constructs the synchronisation engine with a transport
// factory producing one protocol client per configured bulb.
func buildEngine(cfg *config.Config, log *logging.Logger) *bulb.Engine {
	connectTimeout := time.Duration(cfg.Transport.ConnectTimeout) * time.Second
	readTimeout := time.Duration(cfg.Transport.ReadTimeout) * time.Second
	transportLog := log.Component("transport")

	factory := func(address string) bulb.Transport {
		return magichome.NewController(address,
			magichome.WithConnectTimeout(connectTimeout),
			magichome.WithReadTimeout(readTimeout),
			magichome.WithLogger(transportLog),
		)
	}

	return bulb.NewEngine(cfg.Bulbs, cfg.Groups, factory, bulb.Options{
		MinCommandInterval:  time.Duration(cfg.Engine.MinCommandInterval) * time.Millisecond,
		GroupCommandSpacing: time.Duration(cfg.Engine.GroupCommandSpacing) * time.Millisecond,
		RecentCommandGuard:  time.Duration(cfg.Engine.RecentCommandGuard) * time.Second,
		RefreshAllTimeout:   time.Duration(cfg.Engine.RefreshAllTimeout) * time.Second,
		RefreshConcurrency:  cfg.Poller.MaxConcurrent,
	})
}

// getConfigPath returns the configuration file path.
// Uses the BULBSYNC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BULBSYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure components are healthy.
// Optional components may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
