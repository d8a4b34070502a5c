// Package database provides connection management for the local embedded
// store and the remote shared store.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/reelbook/reelbook/internal/config"

	// SQLite driver for the local store.
	_ "modernc.org/sqlite"
)

// OpenLocal opens the local SQLite store, creating the file and schema on
// first use. synchronous=FULL makes a committed practice batch durable
// before the commit call returns.
func OpenLocal(cfg config.LocalDatabaseConfig) (*sqlx.DB, error) {
	useMemory := cfg.Path == ":memory:"

	var dsn string
	if useMemory {
		dsn = "file::memory:?cache=shared&_pragma=foreign_keys(ON)&_pragma=synchronous(FULL)"
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		absPath, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=synchronous(FULL)", filepath.ToSlash(absPath))
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open() > %w", err)
	}

	// The embedded store serializes writers; a single connection avoids
	// SQLITE_BUSY between the commit transaction and queue generation.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping() > %w", err)
	}

	if _, err := db.Exec(localSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Exec(schema) > %w", err)
	}

	return db, nil
}

// OpenRemote opens a MySQL connection to the shared store using the provided
// config. The initial ping is retried to ride out transient connectivity,
// since sync runs opportunistically when a device comes back online.
func OpenRemote(cfg config.RemoteDatabaseConfig) (*sqlx.DB, error) {
	mysqlCfg := mysql.NewConfig()
	mysqlCfg.User = cfg.Username
	mysqlCfg.Passwd = cfg.Password
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mysqlCfg.DBName = cfg.Database
	mysqlCfg.ParseTime = true
	if cfg.TLS {
		mysqlCfg.TLSConfig = "true"
	}
	if len(cfg.Params) > 0 {
		mysqlCfg.Params = cfg.Params
	}

	db, err := sqlx.Open("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open() > %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	if err := retry.Do(
		db.Ping,
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping() > %w", err)
	}

	return db, nil
}
