package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/scrapehub/scrapehub/internal/config"
	"github.com/scrapehub/scrapehub/internal/engine"
	"github.com/scrapehub/scrapehub/internal/server"
)

const (
	commandUse              = "server"
	commandShortDescription = "Serve the marketplace scrape orchestration API over HTTP"
	flagHostName            = "host"
	flagHostDescription     = "Host interface for the HTTP server (overrides SCRAPEHUB_HOST)"
	flagPortName            = "port"
	flagPortDescription     = "Port for the HTTP server (overrides SCRAPEHUB_PORT)"
	errMessageLoggerCreate  = "create logger"
	errMessageConfigLoad    = "load configuration"
	errMessageListenAndServe = "listen and serve"
	logMessageStartingServer = "starting HTTP server"
	logMessageServerStopped  = "server stopped"
	logMessageListenError    = "server listen failure"
	logMessageConfigFinding  = "configuration finding"
	logMessageShuttingDown   = "shutting down"
	logFieldAddress          = "address"
	shutdownGracePeriod      = 15 * time.Second
)

func main() {
	cobra.CheckErr(newServerCommand().Execute())
}

func newServerCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   commandUse,
		Short: commandShortDescription,
		RunE:  runServerCommand,
	}

	command.Flags().String(flagHostName, "", flagHostDescription)
	command.Flags().Int(flagPortName, 0, flagPortDescription)
	bindFlagToViper(command, flagHostName)
	bindFlagToViper(command, flagPortName)

	return command
}

func bindFlagToViper(command *cobra.Command, flagName string) {
	cobra.CheckErr(viper.BindPFlag(flagName, command.Flags().Lookup(flagName)))
}

func runServerCommand(command *cobra.Command, _ []string) error {
	cfg, findings, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageConfigLoad, err)
	}
	if hostFlag, _ := command.Flags().GetString(flagHostName); hostFlag != "" {
		cfg.Host = hostFlag
	}
	if portFlag, _ := command.Flags().GetInt(flagPortName); portFlag != 0 {
		cfg.Port = portFlag
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageLoggerCreate, err)
	}
	defer func() { _ = logger.Sync() }()

	for _, finding := range findings {
		logger.Warn(logMessageConfigFinding, zap.String("finding", string(finding)))
	}

	eng := engine.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go eng.RunProber(ctx)

	router := server.NewRouter(server.RouterConfig{Engine: eng, Logger: logger})
	address := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	httpServer := &http.Server{Addr: address, Handler: router}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(logMessageStartingServer, zap.String(logFieldAddress, address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info(logMessageShuttingDown)
	case err := <-serveErr:
		if err != nil {
			logger.Error(logMessageListenError, zap.Error(err))
			eng.Shutdown()
			return fmt.Errorf("%s: %w", errMessageListenAndServe, err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown timed out", zap.Error(err))
	}
	eng.Shutdown()

	logger.Info(logMessageServerStopped)
	return nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Debug || strings.EqualFold(cfg.LogLevel, "debug") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
