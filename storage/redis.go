package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisBlobStore keeps blobs in Redis, one string value per key.
type RedisBlobStore struct {
	client *redis.Client
}

// NewRedisBlobStore wraps an existing client.
func NewRedisBlobStore(client *redis.Client) *RedisBlobStore {
	if client == nil {
		panic("storage.NewRedisBlobStore: client is nil")
	}
	return &RedisBlobStore{client: client}
}

// NewRedisBlobStoreFromConnString accepts either a redis URL or the
// comma-separated "host:port,key=value" form used by managed caches.
func NewRedisBlobStoreFromConnString(connStr string) (*RedisBlobStore, error) {
	if connStr == "" {
		return nil, errors.New("empty redis connection string")
	}
	opts, err := redis.ParseURL(connStr)
	if err != nil {
		parts := strings.Split(connStr, ",")
		opts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				opts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					opts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	return &RedisBlobStore{client: redis.NewClient(opts)}, nil
}

func (r *RedisBlobStore) Load(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisBlobStore) Save(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisBlobStore) Close() error {
	return r.client.Close()
}
