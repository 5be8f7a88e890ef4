// Package rediscache is the best-effort Redis layer the DOMAIN STACK
// calls for: a fixed-window rate limiter guarding login/reset attempts,
// and a read-through cache in front of hot key lookups. Nothing here is
// load-bearing for correctness — CSRF rows, keys, and users all have
// Postgres as their source of truth (§5 "everything mutable lives in the
// store") — a Redis outage degrades to slower or unthrottled requests,
// never to a wrong answer. Grounded on the teacher's
// internal/infrastructure/redis/client.go.
package rediscache

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type Client struct {
	rdb *goredis.Client
}

func New(addr, password string, db int) *Client {
	return &Client{
		rdb: goredis.NewClient(&goredis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
