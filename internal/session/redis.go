package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/talkincode/storefront/internal/domain"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "storefront:session"

// RedisProvider keeps session state in redis hashes and announces every
// write on a per-client pub/sub channel, so several storefront instances
// observe each other's logins and logouts.
type RedisProvider struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisProvider connects to redisURL and pings it
func NewRedisProvider(redisURL string) (*RedisProvider, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis URL")
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to redis")
	}
	return NewRedisProviderWithClient(client), nil
}

// NewRedisProviderWithClient wraps an existing client
func NewRedisProviderWithClient(client *redis.Client) *RedisProvider {
	return &RedisProvider{client: client, keyPrefix: defaultKeyPrefix}
}

func (p *RedisProvider) ForClient(clientID string) Store {
	return &RedisStore{
		client:  p.client,
		key:     fmt.Sprintf("%s:%s", p.keyPrefix, clientID),
		channel: fmt.Sprintf("%s:%s:changed", p.keyPrefix, clientID),
	}
}

func (p *RedisProvider) Close() error {
	return p.client.Close()
}

// RedisStore is the redis implementation of Store
type RedisStore struct {
	client  *redis.Client
	key     string
	channel string
}

func (s *RedisStore) Get(ctx context.Context) (domain.SessionState, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return domain.SessionState{}, errors.Wrap(err, "read session")
	}
	return domain.SessionState{
		LoggedIn: fields[KeyLoggedIn] == "true",
		Email:    fields[KeyUserEmail],
	}, nil
}

func (s *RedisStore) IsLoggedIn(ctx context.Context) bool {
	st, err := s.Get(ctx)
	if err != nil {
		zap.L().Warn("read session state failed", zap.String("key", s.key), zap.Error(err))
		return false
	}
	return st.LoggedIn
}

func (s *RedisStore) SetLoggedIn(ctx context.Context, email string) error {
	st := domain.SessionState{LoggedIn: true, Email: email}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key, KeyLoggedIn, "true", KeyUserEmail, email)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "write session")
	}
	s.announce(ctx, st)
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key, KeyLoggedIn, "false")
		pipe.HDel(ctx, s.key, KeyUserEmail)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "clear session")
	}
	s.announce(ctx, domain.SessionState{})
	return nil
}

// announce is best effort, the hash write already happened
func (s *RedisStore) announce(ctx context.Context, st domain.SessionState) {
	payload, err := jsoniter.MarshalToString(st)
	if err != nil {
		return
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		zap.L().Warn("publish session change failed", zap.String("channel", s.channel), zap.Error(err))
	}
}

func (s *RedisStore) Subscribe(ctx context.Context) (<-chan domain.SessionState, func()) {
	f := newFeed()
	pubsub := s.client.Subscribe(ctx, s.channel)
	// wait for the subscription before reading the current state so a
	// write racing with Subscribe is not lost
	if _, err := pubsub.Receive(ctx); err != nil {
		zap.L().Warn("subscribe session channel failed", zap.String("channel", s.channel), zap.Error(err))
	}
	if st, err := s.Get(ctx); err == nil {
		f.push(st)
	}

	msgs := pubsub.Channel()
	go func() {
		for msg := range msgs {
			var st domain.SessionState
			if err := jsoniter.UnmarshalFromString(msg.Payload, &st); err != nil {
				continue
			}
			f.push(st)
		}
	}()

	return f.ch, closeOnDone(ctx, func() {
		_ = pubsub.Close()
		f.close()
	})
}
