// Package cache holds the Valkey-backed pieces of the fan hub: the client
// constructor, the rendered page cache, and the cross-instance change bus.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// connectTimeout bounds the initial ping.
const connectTimeout = 5 * time.Second

// ConnectValkey creates a Valkey client and verifies it with a ping. The
// connection is named so it can be told apart in CLIENT LIST.
func ConnectValkey(ctx context.Context, host, port, password string) (*redis.Client, error) {
	addr := net.JoinHostPort(host, port)
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		ClientName:  "fanhub",
		DialTimeout: connectTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping %s: %w", addr, err)
	}

	slog.Info("valkey connected", "addr", addr)
	return client, nil
}
