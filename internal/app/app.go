package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"analyst/internal/app/server"
	"analyst/internal/config"
	"analyst/internal/database"
	"analyst/internal/events"
	"analyst/internal/geolite"
	"analyst/internal/metrics"
	"analyst/internal/support"
)

const metricsShutdownTimeout = 5 * time.Second

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	configPath := flag.String("config", support.GetEnv("CONFIG_FILE_PATH", config.DefaultConfigPath), "Path to the YAML configuration file")
	portFlag := flag.Int("port", 0, "Port for API server (overrides server.port)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log.SetLevel(cfg.LogLevel())
	if support.GetEnvBool("LOG_JSON", false) {
		log.SetFormatter(log.JSONFormatter)
	}

	port := cfg.Server.Port
	if *portFlag != 0 {
		port = *portFlag
	}
	port = resolvePort("PORT", "ANALYST_PORT", port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.OpenFromConfig(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("error closing database", "error", err)
		}
	}()

	geo, err := geolite.Open(cfg.ASNPath, cfg.GeoPath)
	if err != nil {
		log.Warn("GeoIP lookups degraded", "error", err)
	}
	defer func() {
		if err := geo.Close(); err != nil {
			log.Warn("error closing GeoIP databases", "error", err)
		}
	}()

	publisher := newPublisher(ctx, cfg.Redis.URL)
	if closer, ok := publisher.(*events.RedisPublisher); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Warn("error closing redis client", "error", err)
			}
		}()
	}

	collectors := metrics.New()
	api := server.New(server.Deps{
		DB:         db,
		Geo:        geo,
		Events:     publisher,
		Metrics:    collectors,
		APIVersion: cfg.Version,
	})

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return api.Serve(groupCtx, port, cfg.Server.MaxConnections)
	})

	if cfg.Server.MetricsPort > 0 {
		group.Go(func() error {
			return serveMetrics(groupCtx, collectors.Server(cfg.Server.MetricsPort))
		})
	}

	if cfg.GeoLiteAutoUpdate() {
		updater := geolite.NewUpdater(geo, cfg.GeoLite.LicenseKey, cfg.GeoLite.DownloadURL)
		group.Go(func() error {
			updater.Run(groupCtx, cfg.GeoLite.UpdateInterval)
			return nil
		})
	}

	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	group.Go(func() error {
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-hangup:
				if err := geo.Reload(); err != nil {
					log.Warn("GeoIP reload incomplete", "error", err)
					continue
				}
				log.Info("GeoIP databases reloaded")
			}
		}
	})

	return group.Wait()
}

// newPublisher returns a redis-backed publisher when redisURL is set and
// reachable, otherwise a no-op.
func newPublisher(ctx context.Context, redisURL string) events.Publisher {
	client, err := support.NewRedisClient(ctx, redisURL)
	if err != nil {
		log.Warn("List events disabled", "error", err)
		return events.Nop{}
	}
	if client == nil {
		return events.Nop{}
	}
	log.Info("Publishing list events", "channel", events.Channel)
	return events.NewRedisPublisher(client)
}

func serveMetrics(ctx context.Context, srv *http.Server) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("Serving metrics on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}

func resolvePort(primaryEnv, legacyEnv string, fallback int) int {
	if port := readPort(primaryEnv); port != 0 {
		return port
	}
	if port := readPort(legacyEnv); port != 0 {
		return port
	}
	return fallback
}

func readPort(envKey string) int {
	raw := os.Getenv(envKey)
	if raw == "" {
		return 0
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port == 0 {
		log.Warn("invalid port override", "env", envKey, "value", raw)
		return 0
	}
	return port
}
