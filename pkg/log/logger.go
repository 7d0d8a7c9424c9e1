// Package log builds the logger used by batch commands such as reportctl.
package log

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/loobook/internal/config"
	"github.com/smallbiznis/loobook/pkg/log/ctxlogger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger writes to stderr so command output on stdout stays parseable.
// An empty level falls back to the configured LOG_LEVEL. The logger becomes
// the zap global.
func NewLogger(cfg config.Config, level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Sampling = nil
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Observability.LogFormat == "console" {
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	level = strings.TrimSpace(level)
	if level == "" {
		level = cfg.Observability.LogLevel
	}
	if level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("--log-level: %w", err)
		}
	}

	logger, err := zapCfg.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("env", cfg.Environment), zap.String("version", cfg.AppVersion))

	ctxlogger.SetServiceName(cfg.AppName)
	zap.ReplaceGlobals(logger)
	return logger, nil
}
