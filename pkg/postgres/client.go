// Package postgres opens the pooled connection behind the evaluation run
// history.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/config"
)

const pingTimeout = 5 * time.Second

// Client is a *sql.DB sized from PostgresConfig.
type Client struct {
	*sql.DB
	target string
}

// New opens the pool and pings it. The pool is closed again when the ping
// fails so a misconfigured sink leaks nothing.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	target := fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres %s: %w", target, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres %s: %w", target, err)
	}
	return &Client{DB: db, target: target}, nil
}

// Target is host:port/database, safe to log.
func (c *Client) Target() string { return c.target }
