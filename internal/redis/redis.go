package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect parses the URL, dials Redis and verifies the connection with a
// bounded ping. Redis only carries the presence event feed here, so the
// client defaults are left alone beyond the URL options.
func Connect(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}
