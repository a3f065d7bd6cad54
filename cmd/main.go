package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"home_gateway/internal/handlers"
	"home_gateway/internal/logger"
	"home_gateway/internal/repository"
	"home_gateway/internal/repository/db"
	"home_gateway/internal/server"
	"home_gateway/internal/service"

	"github.com/spf13/viper"
)

func main() {
	log := logger.Get(logger.InfoLevel)

	// load configs/config.yml
	if err := loadConfig(); err != nil {
		log.Fatalw("error reading config", "err", err)
	}

	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	services, err := service.NewService(ctx, repos, serviceConfig(), log)
	if err != nil {
		log.Fatalw("failed to build services", "err", err)
	}
	apiHandler := handlers.NewHandler(services, log)

	// background loops: irrigation scheduler and link liveness
	go services.Scheduler.Run(ctx, durationSetting("scheduler.tick_seconds", service.DefaultTick))
	go services.Link.Run(ctx, durationSetting("link.check_seconds", 60*time.Second))

	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	viper.SetDefault("log.level", logger.InfoLevel)
	// The weather credential never lives in the file.
	_ = viper.BindEnv("weather.api_key", "OPENWEATHER_API_KEY")
	return viper.ReadInConfig()
}

// serviceConfig collects the service-layer tunables from viper.
func serviceConfig() service.Config {
	return service.Config{
		Weather: service.WeatherConfig{
			APIKey:   viper.GetString("weather.api_key"),
			Lat:      viper.GetFloat64("weather.lat"),
			Lon:      viper.GetFloat64("weather.lon"),
			Timeout:  durationSetting("weather.timeout_seconds", 8*time.Second),
			CacheTTL: durationSetting("weather.cache_ttl_seconds", 10*time.Minute),
		},
		LinkTimeout: durationSetting("link.timeout_seconds", 120*time.Second),
		Tolerance:   durationSetting("scheduler.tolerance_seconds", service.DefaultTolerance),
		SigningKey:  viper.GetString("auth.signing_key"),
	}
}

// durationSetting reads a seconds value, falling back when unset.
func durationSetting(key string, fallback time.Duration) time.Duration {
	if v := viper.GetInt(key); v > 0 {
		return time.Duration(v) * time.Second
	}
	return fallback
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "gateway.db")
		dbPath = "gateway.db"
	}
	return db.InitDB(dbPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines (also cancels any pending shutoff timer)
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
