// Package config loads process settings from the environment.
package config

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the settings songstored needs at startup. Everything is
// sourced from the environment with deployment-friendly defaults.
type Config struct {
	ListenAddr       string // address the HTTP server binds to
	AWSRegion        string // region of the songs table
	TableName        string // DynamoDB table holding songs
	DynamoDBEndpoint string // optional endpoint override, e.g. DynamoDB Local
	LogLevel         string // zap level name: debug, info, warn, error
}

// Load reads the environment and returns the resolved configuration.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("LISTEN_ADDR", ":8000")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("DYNAMODB_TABLE_NAME", "TBL_SONG")
	v.SetDefault("DYNAMODB_ENDPOINT", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	cfg := &Config{
		ListenAddr:       v.GetString("LISTEN_ADDR"),
		AWSRegion:        v.GetString("AWS_REGION"),
		TableName:        v.GetString("DYNAMODB_TABLE_NAME"),
		DynamoDBEndpoint: v.GetString("DYNAMODB_ENDPOINT"),
		LogLevel:         v.GetString("LOG_LEVEL"),
	}

	if _, err := zap.ParseAtomicLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	return cfg, nil
}
