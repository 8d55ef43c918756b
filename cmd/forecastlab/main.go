package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aouyang1/forecastlab"
	"github.com/aouyang1/forecastlab/config"
	"github.com/aouyang1/forecastlab/logger"
	"github.com/aouyang1/forecastlab/server"
	"github.com/aouyang1/forecastlab/session"
	"github.com/gin-gonic/gin"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
)

var configPath = flag.String("config", "", "Path to configuration file, defaults and FORECASTLAB_ environment variables are used when empty")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// the model packages log through the standard logger
	logger.Configure(logrus.StandardLogger(), cfg.Logging.Level, cfg.Logging.Format)
	logrus.SetOutput(os.Stdout)
	appLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	stopProfile := startProfile(cfg.Profile.Mode, cfg.Profile.Path)

	err = run(cfg, appLog)
	stopProfile()
	if err != nil {
		appLog.WithError(err).Error("server stopped with error")
		os.Exit(1)
	}
}

// startProfile starts a cpu or mem profile and returns the function stopping it
func startProfile(mode, path string) func() {
	var p interface{ Stop() }
	switch mode {
	case "cpu":
		p = profile.Start(profile.CPUProfile, profile.ProfilePath(path), profile.NoShutdownHook)
	case "mem":
		p = profile.Start(profile.MemProfile, profile.ProfilePath(path), profile.NoShutdownHook)
	default:
		return func() {}
	}
	return p.Stop
}

func run(cfg *config.Config, appLog *logrus.Logger) error {
	engineOpt, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	csvOpt, err := cfg.CSVOptions()
	if err != nil {
		return err
	}

	store := session.NewStore(cfg.Server.SessionTTL, &session.Options{
		Runner:     forecastlab.NewPipeline(engineOpt),
		SamplePath: cfg.Sample.Path,
		CSVOptions: csvOpt,
		Logger:     appLog,
	})

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv, err := server.New(server.Options{
		Store:          store,
		Logger:         appLog,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go store.Run(ctx, cfg.Server.SweepInterval)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.WithField("addr", cfg.Server.Addr).Info("starting forecastlab server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLog.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("server stopped")
	return nil
}
