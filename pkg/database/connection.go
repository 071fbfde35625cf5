// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"

	"github.com/LerianStudio/lib-commons/v3/commons/log"
	_ "github.com/jackc/pgx/v5/stdlib"  // Registers the "pgx" driver with database/sql
	_ "github.com/microsoft/go-mssqldb" // Registers the "sqlserver" driver with database/sql
)

// ErrConnectionClosed is returned by GetDB after Close.
var ErrConnectionClosed = errors.New("database connection closed")

// Connection is a hub which deals with one database pool.
type Connection struct {
	Dialect            Dialect
	ConnectionString   string
	DBName             string
	ConnectionDB       *sql.DB
	Connected          bool
	Logger             log.Logger
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration

	mu     sync.Mutex
	closed bool
}

// Connect opens the pool and verifies it with a ping bounded by ctx.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = false

	return c.connectLocked(ctx)
}

func (c *Connection) connectLocked(ctx context.Context) error {
	if c.Connected && c.ConnectionDB != nil {
		return nil
	}

	c.Logger.Infof("Connecting to %s [%s] at %s...", c.Dialect.Name, c.DBName, pkg.RedactConnectionString(c.ConnectionString))

	db, err := sql.Open(c.Dialect.DriverName, c.ConnectionString)
	if err != nil {
		c.Logger.Errorf("Error opening %s connection: %v", c.Dialect.Name, err)
		return fmt.Errorf("open %s connection: %w", c.Dialect.Name, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, constant.ConnectionTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			c.Logger.Errorf("Error closing connection: %v", closeErr)
		}

		c.Logger.Errorf("Error pinging %s [%s]: %v", c.Dialect.Name, c.DBName, err)

		return fmt.Errorf("ping %s: %w", c.Dialect.Name, err)
	}

	db.SetMaxOpenConns(c.MaxOpenConnections)
	db.SetMaxIdleConns(c.MaxIdleConnections)
	db.SetConnMaxLifetime(c.ConnMaxLifetime)
	db.SetConnMaxIdleTime(c.ConnMaxIdleTime)

	c.ConnectionDB = db
	c.Connected = true

	c.Logger.Infof("Connected to %s [%s]", c.Dialect.Name, c.DBName)

	return nil
}

// GetDB returns the pool, connecting first if necessary. A closed connection
// is never reopened here; callers must Connect explicitly.
func (c *Connection) GetDB(ctx context.Context) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnectionClosed
	}

	if c.ConnectionDB == nil {
		if err := c.connectLocked(ctx); err != nil {
			return nil, err
		}
	}

	return c.ConnectionDB, nil
}

// Close releases the pool. It is safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.ConnectionDB == nil {
		return nil
	}

	c.Logger.Infof("Closing connection to %s [%s]...", c.Dialect.Name, c.DBName)

	err := c.ConnectionDB.Close()

	c.ConnectionDB = nil
	c.Connected = false

	if err != nil {
		c.Logger.Errorf("Error closing %s connection: %v", c.Dialect.Name, err)
		return err
	}

	return nil
}
