package storage

import (
	"context"
	"errors"
	"fmt"

	"market-pulse/src/helpers"
	"market-pulse/src/interfaces"
	"market-pulse/src/logger"
	"market-pulse/src/models"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "prefs:"

var _ interfaces.IPreferenceStore = (*RedisPreferenceStore)(nil)

// -----------------------------------------------------------------------------

type RedisPreferenceStore struct {
	Config *models.MConfig
	client *redis.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRedisPreferenceStore(cfg *models.MConfig, log *logger.Logger) (*RedisPreferenceStore, error) {
	return &RedisPreferenceStore{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (r *RedisPreferenceStore) Initialize(ctx context.Context) error {
	r.client = redis.NewClient(&redis.Options{
		Addr:     r.Config.Storage.RedisAddr,
		Password: r.Config.Storage.RedisPassword,
		DB:       r.Config.Storage.RedisDB,
	})

	if err := r.client.Ping(ctx).Err(); err != nil {
		return helpers.NewDatabaseError("failed to reach redis", err)
	}

	r.Logger.Info("RedisPreferenceStore connected to %s", r.Config.Storage.RedisAddr)
	return nil
}

// -----------------------------------------------------------------------------

func (r *RedisPreferenceStore) Load(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("failed to load %s", key), err)
	}
	return value, nil
}

// -----------------------------------------------------------------------------

func (r *RedisPreferenceStore) Save(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, redisKeyPrefix+key, value, 0).Err(); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("failed to save %s", key), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (r *RedisPreferenceStore) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
