// Command songstored serves the songs CRUD API backed by DynamoDB.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/oklog/run"
	"go.uber.org/zap"

	"github.com/nisimpson/songstore"
	"github.com/nisimpson/songstore/api"
	"github.com/nisimpson/songstore/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Fatal("failed to load aws config", zap.Error(err))
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})

	store := songstore.NewStore(client, cfg.TableName)
	songs := songstore.NewService(store)

	probe(ctx, logger, songs, cfg.TableName)

	handler := api.New(songs, logger)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Router(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var g run.Group
	g.Add(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("table", cfg.TableName),
			zap.String("version", songstore.Version),
		)
		return server.ListenAndServe()
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})
	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	err = g.Run()

	var sig run.SignalError
	switch {
	case errors.As(err, &sig):
		logger.Info("shutting down", zap.String("signal", sig.Signal.String()))
	case errors.Is(err, http.ErrServerClosed):
	case err != nil:
		logger.Fatal("server error", zap.Error(err))
	}
}

// probe checks storage connectivity once at startup by listing songs.
// A missing table is fatal: the process cannot become ready until it is
// provisioned. A connectivity fault is only a warning; the health
// endpoint keeps reporting it and the transport retries.
func probe(ctx context.Context, logger *zap.Logger, songs *songstore.Service, table string) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := songs.List(probeCtx)
	switch {
	case errors.Is(err, songstore.ErrTableNotFound):
		logger.Fatal("songs table does not exist", zap.String("table", table), zap.Error(err))
	case err != nil:
		logger.Warn("storage not reachable at startup", zap.Error(err))
	default:
		logger.Info("storage connection ok", zap.String("table", table))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg := zap.NewProductionConfig()
	logCfg.Level = parsed
	return logCfg.Build()
}
