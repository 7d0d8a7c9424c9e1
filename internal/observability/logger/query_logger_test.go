package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseQueryLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, ParseQueryLevel("off"))
	assert.Equal(t, gormlogger.Error, ParseQueryLevel(" ERROR "))
	assert.Equal(t, gormlogger.Info, ParseQueryLevel("debug"))
	assert.Equal(t, gormlogger.Warn, ParseQueryLevel(""))
}

func TestStatementKindAndTable(t *testing.T) {
	cases := []struct {
		sql, kind, table string
	}{
		{`SELECT * FROM "report_snapshots" WHERE business_id = $1`, "SELECT", "report_snapshots"},
		{"INSERT INTO `audit_logs` (`id`) VALUES (?)", "INSERT", "audit_logs"},
		{`UPDATE public.businesses SET name = $1`, "UPDATE", "businesses"},
		{`WITH t AS (SELECT 1) DELETE FROM records`, "SELECT", "records"},
		{`VACUUM`, "OTHER", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, statementKind(tc.sql), tc.sql)
		assert.Equal(t, tc.table, statementTable(tc.sql), tc.sql)
	}
}

func traceOnce(l *QueryLogger, elapsed time.Duration, err error) {
	l.Trace(context.Background(), time.Now().Add(-elapsed), func() (string, int64) {
		return `SELECT * FROM "booking_records"`, 3
	}, err)
}

func TestQueryLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewQueryLogger(QueryLoggerConfig{
		Base:          zap.New(core),
		Level:         gormlogger.Warn,
		SlowThreshold: 100 * time.Millisecond,
	})

	traceOnce(l, time.Millisecond, nil)
	assert.Zero(t, logs.Len())

	traceOnce(l, time.Millisecond, gormlogger.ErrRecordNotFound)
	assert.Zero(t, logs.Len())

	traceOnce(l, time.Second, nil)
	traceOnce(l, time.Millisecond, errors.New("connection reset"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, true, entries[0].ContextMap()["slow"])
	assert.Equal(t, "booking_records", entries[0].ContextMap()["table"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, int64(3), entries[1].ContextMap()["rows"])
}

func TestQueryLoggerSilent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewQueryLogger(QueryLoggerConfig{Base: zap.New(core), Level: gormlogger.Info})

	silent := l.LogMode(gormlogger.Silent).(*QueryLogger)
	traceOnce(silent, time.Second, errors.New("boom"))
	silent.Error(context.Background(), "ignored")
	assert.Zero(t, logs.Len())

	traceOnce(l, time.Millisecond, nil)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
}

func TestParamsFilterDropsValues(t *testing.T) {
	sql, params := NewQueryLogger(QueryLoggerConfig{}).ParamsFilter(context.Background(), "SELECT 1", "secret")
	assert.Equal(t, "SELECT 1", sql)
	assert.Nil(t, params)
}
