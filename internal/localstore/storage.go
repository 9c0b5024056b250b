// Package localstore is the per-client persistent key/value storage the
// storefront keeps for every browser. Each client owns a bucket of string
// keys ("isLoggedIn", "userEmail", "user", "products", ...) and every write
// publishes a Change so observers can re-read without polling.
package localstore

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	changeTopic   = "localstore:change"
	clientsBucket = "clients"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Change describes one write to a client's storage
type Change struct {
	Client   string
	Key      string
	OldValue string
	NewValue string
	Removed  bool
}

type listener struct {
	client string
	fn     func(Change)
}

// Storage is the bbolt backed store shared by all clients
type Storage struct {
	db  *bolt.DB
	bus EventBus.Bus

	mu        sync.RWMutex
	listeners map[uint64]listener
	nextID    uint64
}

// Open opens (or creates) the storage file at path
func Open(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create storage dir for %s", path)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open storage %s", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(clientsBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init storage buckets")
	}
	s := &Storage{
		db:        db,
		bus:       EventBus.New(),
		listeners: make(map[uint64]listener),
	}
	if err := s.bus.Subscribe(changeTopic, s.dispatch); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "subscribe storage changes")
	}
	if err := s.bus.Subscribe(changeTopic, logChange); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "subscribe storage changes")
	}
	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Client returns the storage view of one client id
func (s *Storage) Client(id string) *Client {
	return &Client{s: s, id: id}
}

// Watch registers fn for every change of the given client. The returned
// func removes the registration. fn runs on the writer's goroutine and
// must not block.
func (s *Storage) Watch(client string, fn func(Change)) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = listener{client: client, fn: fn}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Storage) dispatch(ch Change) {
	s.mu.RLock()
	fns := make([]func(Change), 0, len(s.listeners))
	for _, l := range s.listeners {
		if l.client == ch.Client {
			fns = append(fns, l.fn)
		}
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ch)
	}
}

func logChange(ch Change) {
	zap.L().Debug("client storage changed",
		zap.String("client", ch.Client),
		zap.String("key", ch.Key),
		zap.Bool("removed", ch.Removed))
}

func (s *Storage) publish(ch Change) {
	s.bus.Publish(changeTopic, ch)
}

// Client is one client's key/value namespace
type Client struct {
	s  *Storage
	id string
}

func (c *Client) ID() string {
	return c.id
}

// GetItem returns the value stored at key and whether it exists
func (c *Client) GetItem(key string) (string, bool, error) {
	var (
		val   string
		found bool
	)
	err := c.s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(clientsBucket)).Bucket([]byte(c.id))
		if b == nil {
			return nil
		}
		if raw := b.Get([]byte(key)); raw != nil {
			val, found = string(raw), true
		}
		return nil
	})
	if err != nil {
		return "", false, errors.Wrapf(err, "get %s", key)
	}
	return val, found, nil
}

// SetItem stores value at key, replacing the previous value
func (c *Client) SetItem(key, value string) error {
	var old string
	err := c.s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket([]byte(clientsBucket)).CreateBucketIfNotExists([]byte(c.id))
		if err != nil {
			return err
		}
		old = string(b.Get([]byte(key)))
		return b.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	c.s.publish(Change{Client: c.id, Key: key, OldValue: old, NewValue: value})
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (c *Client) RemoveItem(key string) error {
	var (
		old     string
		existed bool
	)
	err := c.s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(clientsBucket)).Bucket([]byte(c.id))
		if b == nil {
			return nil
		}
		if raw := b.Get([]byte(key)); raw != nil {
			old, existed = string(raw), true
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return errors.Wrapf(err, "remove %s", key)
	}
	if existed {
		c.s.publish(Change{Client: c.id, Key: key, OldValue: old, Removed: true})
	}
	return nil
}

// GetJSON decodes the value at key into v. found is false when the key is
// missing, in which case v is untouched.
func (c *Client) GetJSON(key string, v interface{}) (found bool, err error) {
	raw, found, err := c.GetItem(key)
	if err != nil || !found {
		return found, err
	}
	if err := json.UnmarshalFromString(raw, v); err != nil {
		return true, errors.Wrapf(err, "decode %s", key)
	}
	return true, nil
}

// SetJSON encodes v and stores it at key
func (c *Client) SetJSON(key string, v interface{}) error {
	raw, err := json.MarshalToString(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return c.SetItem(key, raw)
}

// Watch registers fn for changes of this client
func (c *Client) Watch(fn func(Change)) (cancel func()) {
	return c.s.Watch(c.id, fn)
}
