package logging

import (
	"fmt"

	"go.uber.org/zap"

	"exchangerates/internal/config"
)

const serviceName = "exchange-rates"

// New builds the process logger. Production gets JSON output without stack
// traces; anything else gets the colored console encoder.
func New(cfg config.Log) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
		zapConfig.DisableStacktrace = true
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zapConfig.Level = atomicLevel
	zapConfig.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
