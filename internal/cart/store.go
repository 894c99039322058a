package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxUpdateRetries = 3

// RedisStore keeps each cart as a JSON value under cart:<id> with a sliding TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func cartKey(id string) string { return "cart:" + id }

func (s *RedisStore) Get(ctx context.Context, id string) (*Cart, error) {
	data, err := s.rdb.Get(ctx, cartKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, c *Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return s.rdb.Set(ctx, cartKey(c.ID), data, s.ttl).Err()
}

// Update runs fn inside a WATCH transaction, retrying when another writer
// touched the cart in between.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(c *Cart) error) (*Cart, error) {
	key := cartKey(id)
	var result *Cart

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrCartNotFound
			}
			return err
		}
		var c Cart
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("decode cart: %w", err)
		}
		if err := fn(&c); err != nil {
			return err
		}
		out, err := json.Marshal(&c)
		if err != nil {
			return fmt.Errorf("encode cart: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		if err == nil {
			result = &c
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("update cart %s: too much contention", id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, cartKey(id)).Err()
}

// MemoryStore is an in-process Store used in tests and when Redis is not configured.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id)
}

func (m *MemoryStore) Save(ctx context.Context, c *Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store(c)
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(c *Cart) error) (*Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.load(id)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := m.store(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, id)
	return nil
}

// load and store round-trip through JSON so callers never share slices.
func (m *MemoryStore) load(id string) (*Cart, error) {
	data, ok := m.carts[id]
	if !ok {
		return nil, ErrCartNotFound
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *MemoryStore) store(c *Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	m.carts[c.ID] = data
	return nil
}
