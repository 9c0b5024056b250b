package session

import (
	"context"

	"github.com/talkincode/storefront/internal/domain"
	"github.com/talkincode/storefront/internal/localstore"
	"go.uber.org/zap"
)

// KVProvider keeps session state in client storage
type KVProvider struct {
	storage *localstore.Storage
}

func NewKVProvider(storage *localstore.Storage) *KVProvider {
	return &KVProvider{storage: storage}
}

func (p *KVProvider) ForClient(clientID string) Store {
	return &KVStore{client: p.storage.Client(clientID)}
}

// Close is a no-op, the storage is owned by the caller
func (p *KVProvider) Close() error {
	return nil
}

// KVStore is the client storage implementation of Store
type KVStore struct {
	client *localstore.Client
}

func (s *KVStore) Get(ctx context.Context) (domain.SessionState, error) {
	flag, _, err := s.client.GetItem(KeyLoggedIn)
	if err != nil {
		return domain.SessionState{}, err
	}
	email, _, err := s.client.GetItem(KeyUserEmail)
	if err != nil {
		return domain.SessionState{}, err
	}
	return domain.SessionState{LoggedIn: flag == "true", Email: email}, nil
}

func (s *KVStore) IsLoggedIn(ctx context.Context) bool {
	st, err := s.Get(ctx)
	if err != nil {
		zap.L().Warn("read session state failed", zap.String("client", s.client.ID()), zap.Error(err))
		return false
	}
	return st.LoggedIn
}

func (s *KVStore) SetLoggedIn(ctx context.Context, email string) error {
	if err := s.client.SetItem(KeyUserEmail, email); err != nil {
		return err
	}
	return s.client.SetItem(KeyLoggedIn, "true")
}

func (s *KVStore) Clear(ctx context.Context) error {
	if err := s.client.SetItem(KeyLoggedIn, "false"); err != nil {
		return err
	}
	return s.client.RemoveItem(KeyUserEmail)
}

func (s *KVStore) Subscribe(ctx context.Context) (<-chan domain.SessionState, func()) {
	f := newFeed()
	unwatch := s.client.Watch(func(ch localstore.Change) {
		if ch.Key != KeyLoggedIn && ch.Key != KeyUserEmail {
			return
		}
		st, err := s.Get(ctx)
		if err != nil {
			return
		}
		f.push(st)
	})
	if st, err := s.Get(ctx); err == nil {
		f.push(st)
	}

	return f.ch, closeOnDone(ctx, func() {
		unwatch()
		f.close()
	})
}
