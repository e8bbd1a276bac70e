package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrVersionConflict = errors.New("session version conflict")

type RedisConfig struct {
	Addr      string        `split_words:"true" default:"localhost:6379"`
	Username  string        `split_words:"true"`
	Password  string        `split_words:"true"`
	DB        int           `envconfig:"DB" default:"0"`
	KeyPrefix string        `split_words:"true" default:"hotel:session:"`
	TTL       time.Duration `envconfig:"TTL" default:"0s"`
}

// RedisStore persists sessions in Redis. Saves are guarded with
// WATCH/MULTI so an older Version never overwrites a newer one written by
// another replica.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.TTL < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisStoreWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

func NewRedisStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultStoreKeyPrefix
	}
	return &RedisStore{
		client:    client,
		keyPrefix: prefix,
		ttl:       ttl,
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Load(ctx context.Context, userID string) (*Session, error) {
	key, err := s.key(userID)
	if err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	return decodeSession(val)
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return ErrNilSession
	}
	key, err := s.key(sess.UserID)
	if err != nil {
		return err
	}

	payload, err := encodeSession(sess)
	if err != nil {
		return err
	}

	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get session: %w", err)
		default:
			stored, err := decodeSession(current)
			if err == nil && stored.Version >= sess.Version {
				return fmt.Errorf("%w: stored=%d incoming=%d", ErrVersionConflict, stored.Version, sess.Version)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}, key)
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	key, err := s.key(userID)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrInvalidSession
	}
	return s.keyPrefix + userID, nil
}
