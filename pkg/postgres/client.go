// Package postgres opens the document catalog database and runs work in
// transactions.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
)

type Client struct {
	DB *sql.DB
}

// New opens a pooled connection and verifies it with a ping.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	slog.Default().With("component", "postgres").Info("connected",
		"host", cfg.Host,
		"database", cfg.Database,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return &Client{DB: db}, nil
}

// Wrap adopts an already opened database handle.
func Wrap(db *sql.DB) *Client {
	return &Client{DB: db}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// InUse reports how many pooled connections are checked out.
func (c *Client) InUse() int {
	return c.DB.Stats().InUse
}

// InTx runs fn in a transaction, committing if it returns nil. An error or
// panic from fn rolls the transaction back.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back transaction: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
