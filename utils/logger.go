package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bankdemo/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger создает zap-логгер по настройкам конфигурации
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		return nil, fmt.Errorf("неверный уровень логирования %q: %w", cfg.Log.Level, err)
	}

	// Создаем директории для файловых логов, если они не существуют
	for _, path := range cfg.Log.OutputPaths {
		if path == "stdout" || path == "stderr" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("не удалось создать директорию для логов: %w", err)
		}
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Log.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Log.Development,
		DisableCaller:     !cfg.Log.Development,
		DisableStacktrace: !cfg.Log.Development,
		Encoding:          cfg.Log.Format,
		EncoderConfig:     encoderConfig,
		OutputPaths:       cfg.Log.OutputPaths,
		ErrorOutputPaths:  []string{"stderr"},
	}

	return zapConfig.Build()
}

// LogOperation логирует завершение операции с длительностью
func LogOperation(logger *zap.Logger, operation string, startTime time.Time, err error) {
	duration := time.Since(startTime)
	if err != nil {
		logger.Error("Операция завершилась ошибкой",
			zap.String("operation", operation),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}
	logger.Info("Операция выполнена",
		zap.String("operation", operation),
		zap.Duration("duration", duration),
	)
}
