package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

const queryComponent = "reporting.sql"

// QueryLoggerConfig configures SQL statement logging. A nil Base logs
// through the zap global.
type QueryLoggerConfig struct {
	Base          *zap.Logger
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
}

// ParseQueryLevel maps silent, error, warn and info to GORM levels. Anything
// else is warn.
func ParseQueryLevel(value string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "silent", "off":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// QueryLogger writes GORM statements as structured entries tagged with the
// statement kind and target table. Bound values are never logged and a
// missing record is not an error: report lookups miss routinely.
type QueryLogger struct {
	base          *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewQueryLogger(cfg QueryLoggerConfig) *QueryLogger {
	return &QueryLogger{
		base:          cfg.Base,
		level:         cfg.Level,
		slowThreshold: cfg.SlowThreshold,
	}
}

func (l *QueryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *QueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *QueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *QueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	if errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	var level zapcore.Level
	switch {
	case err != nil && l.level >= gormlogger.Error:
		level = zapcore.ErrorLevel
	case slow && l.level >= gormlogger.Warn:
		level = zapcore.WarnLevel
	case l.level >= gormlogger.Info:
		level = zapcore.DebugLevel
	default:
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.String("component", queryComponent),
		zap.String("sql", strings.TrimSpace(sql)),
		zap.String("statement", statementKind(sql)),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
		zap.Bool("slow", slow),
	}
	if table := statementTable(sql); table != "" {
		fields = append(fields, zap.String("table", table))
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if ce := l.logger(ctx).Check(level, "sql.statement"); ce != nil {
		ce.Write(fields...)
	}
}

// ParamsFilter drops bound values so record contents stay out of the logs.
func (l *QueryLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *QueryLogger) message(ctx context.Context, threshold gormlogger.LogLevel, level zapcore.Level, msg string, data []interface{}) {
	if l.level < threshold {
		return
	}
	fields := []zap.Field{zap.String("component", queryComponent)}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	if ce := l.logger(ctx).Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l *QueryLogger) logger(ctx context.Context) *zap.Logger {
	if l.base == nil {
		return FromContext(ctx)
	}
	return WithContext(ctx, l.base)
}

func statementKind(sql string) string {
	for _, token := range strings.Fields(strings.ToUpper(sql)) {
		token = strings.Trim(token, "();")
		switch token {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			return token
		}
	}
	return "OTHER"
}

// statementTable returns the first table named after FROM, INTO or UPDATE.
func statementTable(sql string) string {
	tokens := strings.Fields(sql)
	for i := 0; i < len(tokens)-1; i++ {
		switch strings.ToUpper(tokens[i]) {
		case "FROM", "INTO", "UPDATE":
			name := strings.Trim(tokens[i+1], "`\"();,")
			if name == "" || strings.EqualFold(name, "SELECT") {
				continue
			}
			if dot := strings.LastIndex(name, "."); dot >= 0 {
				name = strings.Trim(name[dot+1:], "`\"")
			}
			return name
		}
	}
	return ""
}

var _ gormlogger.Interface = (*QueryLogger)(nil)
