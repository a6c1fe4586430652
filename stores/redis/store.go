package redis

import (
	"context"
	"fmt"
	"log"

	"memeverse/core"

	"github.com/go-redis/redis"
	"github.com/sirupsen/logrus"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewStore creates a redis-backed preference store. Keys are namespaced
// with a "memeverse:" prefix so the instance can be shared.
func NewStore(addr, password string) core.PreferenceStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping().Err(); err != nil {
		log.Fatalf("failed to connect to redis at %s: %v", addr, err)
	}
	logrus.WithField("addr", addr).Info("connected to redis")
	return &redisStore{client: client, prefix: "memeverse:"}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(s.prefix + key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("preference %s not found", key)
	}
	if err != nil {
		logrus.WithError(err).WithField("key", key).Error("failed to read preference from redis")
		return "", err
	}
	return value, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("preference key is required")
	}
	if err := s.client.Set(s.prefix+key, value, 0).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Error("failed to write preference to redis")
		return err
	}
	return nil
}
