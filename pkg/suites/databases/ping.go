package databases

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Pinger sends a PING to a database endpoint.
type Pinger func(ctx context.Context, host string, port int) error

// RedisPing pings host:port with go-redis. Endpoints that answer NOAUTH are
// reachable and count as success.
func RedisPing(ctx context.Context, host string, port int) error {
	c := redis.NewClient(&redis.Options{
		Addr:            net.JoinHostPort(host, strconv.Itoa(port)),
		DialTimeout:     pingTimeout,
		ReadTimeout:     pingTimeout,
		WriteTimeout:    pingTimeout,
		MaxRetries:      -1,
		PoolSize:        1,
		DisableIdentity: true,
	})

	defer func() { _ = c.Close() }()

	err := c.Ping(ctx).Err()
	if err != nil && strings.HasPrefix(err.Error(), "NOAUTH") {
		return nil
	}

	return err //nolint:wrapcheck
}
