package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"gorm.io/gorm"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "default config", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing host", mutate: func(c *Config) { c.Host = "" }, wantErr: true},
		{name: "invalid port", mutate: func(c *Config) { c.Port = 70000 }, wantErr: true},
		{name: "missing user", mutate: func(c *Config) { c.User = "" }, wantErr: true},
		{name: "missing db name", mutate: func(c *Config) { c.DBName = "" }, wantErr: true},
		{name: "invalid ssl mode", mutate: func(c *Config) { c.SSLMode = "prefer-maybe" }, wantErr: true},
		{name: "invalid log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: true},
		{name: "idle exceeds open", mutate: func(c *Config) { c.MaxIdleConns = 20; c.MaxOpenConns = 10 }, wantErr: true},
		{name: "negative slow threshold", mutate: func(c *Config) { c.SlowThreshold = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "db.internal"
	cfg.Password = "secret"

	dsn := cfg.DSN()
	for _, part := range []string{"host=db.internal", "port=5432", "password=secret", "dbname=skynotes", "sslmode=disable", "TimeZone=UTC"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN() = %q, missing %q", dsn, part)
		}
	}
}

func TestErrorClassifiers(t *testing.T) {
	if !IsRecordNotFoundError(fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound)) {
		t.Error("wrapped ErrRecordNotFound not detected")
	}
	if IsRecordNotFoundError(errors.New("other")) {
		t.Error("unrelated error classified as not found")
	}
	if !IsDuplicateKeyError(gorm.ErrDuplicatedKey) {
		t.Error("ErrDuplicatedKey not detected")
	}
	if !IsForeignKeyError(gorm.ErrForeignKeyViolated) {
		t.Error("ErrForeignKeyViolated not detected")
	}
}

func TestTransactionContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := TransactionFromContext(ctx); ok {
		t.Fatal("empty context reported a transaction")
	}

	tx := &gorm.DB{}
	got, ok := TransactionFromContext(ContextWithTransaction(ctx, tx))
	if !ok || got != tx {
		t.Error("transaction not recovered from context")
	}
}
