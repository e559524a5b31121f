package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/totegamma/gamecatalog/internal/config"
	"github.com/totegamma/gamecatalog/internal/infrastructure/providers"
	"github.com/totegamma/gamecatalog/internal/infrastructure/tracing"
	"github.com/totegamma/gamecatalog/internal/present/rest"
	"github.com/totegamma/gamecatalog/internal/schema"
	"github.com/totegamma/gamecatalog/internal/usecase"
)

const serviceName = "gamecatalog"

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		slog.Error("server stopped", slog.String("error", err.Error()), slog.String("module", "main"))
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if conf.Server.EnableTrace {
		shutdownTracing, err := tracing.Setup(ctx, serviceName, conf.Server.TraceEndpoint)
		if err != nil {
			return err
		}
		defer func() {
			_ = shutdownTracing(context.Background())
		}()
	}

	store, err := providers.NewStore(ctx, conf.Server)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			slog.Error("failed to close store", slog.String("error", err.Error()), slog.String("module", "main"))
		}
	}()

	opts := usecase.ResourceOptions{
		Cache:             providers.NewRecordCache(conf.Server),
		BaseURL:           conf.Server.BaseURL,
		MalformedIDStatus: conf.MalformedIDStatus(),
	}
	signalService := providers.NewSignal(ctx, conf.Server)
	if signalService != nil {
		opts.Events = signalService
	}

	var resources []*usecase.ResourceUsecase
	for _, entity := range schema.Catalog() {
		resources = append(resources, usecase.NewResourceUsecase(entity, store.Collection(entity.Name), opts))
	}

	e := rest.NewEcho(serviceName, logger)
	rest.NewHandler(store, resources, signalService).RegisterRoutes(e)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", conf.Server.Port)
		slog.Info("listening", slog.String("addr", addr), slog.String("driver", conf.Server.StoreDriver), slog.String("module", "main"))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", slog.String("module", "main"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
