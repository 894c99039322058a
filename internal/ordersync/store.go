// Package ordersync keeps a device's copy of the order set in step with the
// API server. Writes land locally first and reach the server in the
// background; a live feed applies other devices' changes. When the server
// is unreachable the store keeps serving its cache.
package ordersync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tapntake/api/internal/enum"
	"github.com/tapntake/api/internal/feed"
	"github.com/tapntake/api/internal/order"
)

// DefaultMaxElapsed bounds reconnect attempts before the store stops
// retrying and waits for Reconnect.
const DefaultMaxElapsed = 10 * time.Minute

var ErrOrderNotFound = errors.New("order not found")

type Options struct {
	// MaxElapsed caps the reconnect backoff. Zero means DefaultMaxElapsed.
	MaxElapsed time.Duration
	// InitialInterval overrides the first reconnect delay.
	InitialInterval time.Duration
	Now             func() time.Time
}

// Store is the local order set.
type Store struct {
	remote Remote
	cache  Cache
	opts   Options

	// saveMu orders cache writes so the last write holds the newest snapshot.
	saveMu sync.Mutex

	mu        sync.RWMutex
	orders    map[string]order.Order
	outbox    map[string]bool
	pushing   map[string]bool
	connected bool
	exhausted bool
	subs      map[chan struct{}]struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	reconnect chan struct{}
}

func New(remote Remote, cache Cache, opts Options) *Store {
	if opts.MaxElapsed == 0 {
		opts.MaxElapsed = DefaultMaxElapsed
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		remote:    remote,
		cache:     cache,
		opts:      opts,
		orders:    make(map[string]order.Order),
		outbox:    make(map[string]bool),
		pushing:   make(map[string]bool),
		subs:      make(map[chan struct{}]struct{}),
		ctx:       ctx,
		cancel:    cancel,
		reconnect: make(chan struct{}, 1),
	}
}

// Start loads the cache, reconciles with the server when it is reachable
// and begins following the live feed. It never fails because the server
// is down.
func (s *Store) Start(ctx context.Context) error {
	cached, err := s.cache.Load()
	if err != nil {
		log.Printf("ERROR: load order cache: %v", err)
	}
	s.mu.Lock()
	for _, o := range cached {
		s.orders[o.ID] = o
	}
	s.mu.Unlock()

	if err := s.Load(ctx); err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.follow(s.ctx)
	}()
	return nil
}

// Load probes the server, fetches the full order set and reconciles it with
// local state. An unreachable server leaves local state untouched and
// marks the store degraded.
func (s *Store) Load(ctx context.Context) error {
	return s.load(ctx, nil)
}

// load is Load with a set of orders whose server copy replaces the local
// one regardless of version, used after the server refused a local edit.
func (s *Store) load(ctx context.Context, refused map[string]bool) error {
	if err := s.remote.Ping(ctx); err != nil {
		log.Printf("orders api unreachable, serving cache: %v", err)
		s.setConnected(false)
		return ctx.Err()
	}
	remote, err := s.remote.List(ctx)
	if err != nil {
		log.Printf("ERROR: list remote orders: %v", err)
		s.setConnected(false)
		return ctx.Err()
	}
	s.setConnected(true)
	s.reconcile(remote, refused)
	s.flushOutbox()
	return nil
}

// reconcile merges a full remote set. The newer copy of each order wins,
// except for refused orders where the server copy always wins. Local
// orders the server has never seen are kept only while they wait in the
// outbox; outbox orders the server has seen stay queued while they carry
// edits it has not.
func (s *Store) reconcile(remote []order.Order, refused map[string]bool) {
	s.mu.Lock()
	merged := make(map[string]order.Order, len(remote)+len(s.outbox))
	ahead := make(map[string]bool)
	for _, r := range remote {
		if l, ok := s.orders[r.ID]; ok && !refused[r.ID] && l.NewerThan(r) {
			merged[r.ID] = l
			ahead[r.ID] = true
		} else {
			merged[r.ID] = r
		}
	}
	for id := range s.outbox {
		if _, ok := merged[id]; ok {
			if !ahead[id] {
				delete(s.outbox, id)
			}
			continue
		}
		if l, ok := s.orders[id]; ok {
			merged[id] = l
		}
	}
	s.orders = merged
	s.mu.Unlock()
	s.changed()
}

// apply handles one live feed event.
func (s *Store) apply(ev feed.Event) {
	switch ev.Type {
	case enum.EventOrders:
		orders, err := ev.Orders()
		if err != nil {
			log.Printf("ERROR: decode snapshot: %v", err)
			return
		}
		s.reconcile(orders, nil)
	case enum.EventNewOrder, enum.EventOrderUpdated:
		o, err := ev.Order()
		if err != nil {
			log.Printf("ERROR: decode %s: %v", ev.Type, err)
			return
		}
		s.upsert(o)
	case enum.EventOrdersCleared:
		s.mu.Lock()
		s.orders = make(map[string]order.Order)
		s.outbox = make(map[string]bool)
		s.mu.Unlock()
		s.changed()
	}
}

// upsert stores o unless the local copy is strictly newer. Equal versions
// are applied, so replaying an event changes nothing.
func (s *Store) upsert(o order.Order) {
	s.mu.Lock()
	if l, ok := s.orders[o.ID]; ok && l.Version > o.Version {
		s.mu.Unlock()
		return
	}
	s.orders[o.ID] = o
	delete(s.outbox, o.ID)
	s.mu.Unlock()
	s.changed()
}

// AddOrder records a new order locally and pushes it to the server in the
// background. A failed push is retried on the next successful Load.
func (s *Store) AddOrder(o order.Order) order.Order {
	now := s.opts.Now()
	if o.ID == "" {
		o.ID = order.NewID(now)
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = now
	}
	if o.Status == "" {
		o.Status = enum.OrderStatusPending
	}
	if o.Version == 0 {
		o.Version = 1
	}
	o.UpdatedAt = now

	s.mu.Lock()
	s.orders[o.ID] = o
	s.outbox[o.ID] = true
	s.mu.Unlock()
	s.changed()

	s.push(o)
	return o
}

// push sends an outbox order to the server. At most one push per order is
// in flight; edits made meanwhile are replayed by catchUp or by the next
// flush.
func (s *Store) push(o order.Order) {
	s.mu.Lock()
	if s.pushing[o.ID] {
		s.mu.Unlock()
		return
	}
	s.pushing[o.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.pushing, o.ID)
			s.mu.Unlock()
		}()
		saved, err := s.remote.Create(s.ctx, o)
		if err != nil {
			log.Printf("ERROR: push order %s: %v", o.ID, err)
			return
		}
		s.mu.Lock()
		delete(s.outbox, o.ID)
		local := s.orders[o.ID]
		s.mu.Unlock()

		if local.ID != "" && local.NewerThan(saved) {
			saved, err = s.catchUp(local, saved)
			switch {
			case errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound):
				s.refuse(o.ID)
				return
			case err != nil:
				log.Printf("ERROR: catch up order %s: %v", o.ID, err)
				s.mu.Lock()
				s.outbox[o.ID] = true
				s.mu.Unlock()
				return
			}
		}
		s.rebase(local, saved)
	}()
}

// catchUp replays local edits made before the server had seen the order,
// so a replayed create does not roll them back. It returns the server copy
// after the last replayed edit.
func (s *Store) catchUp(local, saved order.Order) (order.Order, error) {
	var err error
	if local.Status != saved.Status {
		if saved, err = s.remote.UpdateStatus(s.ctx, local.ID, local.Status, saved.Version); err != nil {
			return order.Order{}, fmt.Errorf("status: %w", err)
		}
	}
	if local.PaymentStatus != saved.PaymentStatus {
		if saved, err = s.remote.UpdatePaymentStatus(s.ctx, local.ID, local.PaymentStatus); err != nil {
			return order.Order{}, fmt.Errorf("payment: %w", err)
		}
	}
	return saved, nil
}

// rebase makes the server copy the local copy of a pushed order, so later
// edits carry the version the server expects. If the order was edited
// again since local was read, the ordinary version rule applies instead.
func (s *Store) rebase(local, saved order.Order) {
	s.mu.Lock()
	cur, ok := s.orders[saved.ID]
	if ok && (cur.Version != local.Version || !cur.UpdatedAt.Equal(local.UpdatedAt)) {
		s.mu.Unlock()
		s.upsert(saved)
		return
	}
	s.orders[saved.ID] = saved
	delete(s.outbox, saved.ID)
	s.mu.Unlock()
	s.changed()
}

// refuse drops a local edit the server rejected by reloading with the
// server copy of that order taking precedence.
func (s *Store) refuse(id string) {
	log.Printf("order %s changed on the server, reloading", id)
	if err := s.load(s.ctx, map[string]bool{id: true}); err != nil {
		log.Printf("ERROR: reload after conflict: %v", err)
	}
}

func (s *Store) flushOutbox() {
	s.mu.RLock()
	pending := make([]order.Order, 0, len(s.outbox))
	for id := range s.outbox {
		if o, ok := s.orders[id]; ok {
			pending = append(pending, o)
		}
	}
	s.mu.RUnlock()
	for _, o := range pending {
		s.push(o)
	}
}

// UpdateStatus applies a lifecycle transition locally, then on the server
// with the version it was based on. A conflict reloads from the server.
func (s *Store) UpdateStatus(id, status string) (order.Order, error) {
	var base int64
	updated, err := s.mutate(id, func(o *order.Order) (bool, error) {
		if err := order.ValidateTransition(o.Status, status); err != nil {
			return false, err
		}
		base = o.Version
		o.Status = status
		return true, nil
	})
	if err != nil || updated.Version == base {
		return updated, err
	}
	s.sync(id, func(ctx context.Context) (order.Order, error) {
		return s.remote.UpdateStatus(ctx, id, status, base)
	})
	return updated, nil
}

// UpdatePaymentStatus applies a payment transition. Re-applying the
// current status changes nothing.
func (s *Store) UpdatePaymentStatus(id, status string) (order.Order, error) {
	updated, err := s.mutate(id, func(o *order.Order) (bool, error) {
		if o.PaymentStatus == status {
			return false, nil
		}
		if err := order.ValidatePaymentTransition(o.PaymentStatus, status); err != nil {
			return false, err
		}
		o.PaymentStatus = status
		return true, nil
	})
	if err != nil {
		return updated, err
	}
	s.sync(id, func(ctx context.Context) (order.Order, error) {
		return s.remote.UpdatePaymentStatus(ctx, id, status)
	})
	return updated, nil
}

// mutate edits one order under the lock, bumping its version when fn
// reports a change.
func (s *Store) mutate(id string, fn func(o *order.Order) (bool, error)) (order.Order, error) {
	s.mu.Lock()
	o, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return order.Order{}, ErrOrderNotFound
	}
	changed, err := fn(&o)
	if err != nil || !changed {
		s.mu.Unlock()
		return o, err
	}
	o.Version++
	o.UpdatedAt = s.opts.Now()
	s.orders[id] = o
	s.mu.Unlock()
	s.changed()
	return o, nil
}

// sync sends a local change to the server in the background. Orders still
// in the outbox travel with their next push instead.
func (s *Store) sync(id string, call func(ctx context.Context) (order.Order, error)) {
	s.mu.RLock()
	unsent := s.outbox[id]
	s.mu.RUnlock()
	if unsent {
		s.mu.RLock()
		o := s.orders[id]
		s.mu.RUnlock()
		s.push(o)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		saved, err := call(s.ctx)
		switch {
		case err == nil:
			s.upsert(saved)
		case errors.Is(err, ErrConflict):
			s.refuse(id)
		default:
			log.Printf("ERROR: sync order %s: %v", id, err)
			s.mu.Lock()
			if _, ok := s.orders[id]; ok {
				s.outbox[id] = true
			}
			s.mu.Unlock()
		}
	}()
}

// follow keeps the live feed connected, backing off between attempts.
// Once the backoff gives up the store stays degraded until Reconnect.
func (s *Store) follow(ctx context.Context) {
	for {
		var conn Feed
		err := backoff.Retry(func() error {
			c, err := s.remote.Connect(ctx)
			if err != nil {
				return err
			}
			conn = c
			return nil
		}, backoff.WithContext(s.backoff(), ctx))
		if ctx.Err() != nil {
			if conn != nil {
				conn.Close()
			}
			return
		}
		if err != nil {
			log.Printf("ERROR: order feed unavailable, giving up until reconnect: %v", err)
			s.mu.Lock()
			s.exhausted = true
			s.connected = false
			s.mu.Unlock()
			s.changed()
			select {
			case <-s.reconnect:
				s.mu.Lock()
				s.exhausted = false
				s.mu.Unlock()
				continue
			case <-ctx.Done():
				return
			}
		}

		s.setConnected(true)
		s.flushOutbox()
		s.consume(ctx, conn)
		s.setConnected(false)
	}
}

func (s *Store) consume(ctx context.Context, conn Feed) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()
	for {
		ev, err := conn.Next()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("order feed disconnected: %v", err)
			}
			return
		}
		s.apply(ev)
	}
}

func (s *Store) backoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.InitialInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = s.opts.MaxElapsed
	b.Reset()
	return b
}

// Reconnect restarts feed attempts after the backoff gave up.
func (s *Store) Reconnect() {
	select {
	case s.reconnect <- struct{}{}:
	default:
	}
}

func (s *Store) setConnected(v bool) {
	s.mu.Lock()
	prev := s.connected
	s.connected = v
	s.mu.Unlock()
	if prev != v {
		s.changed()
	}
}

// Connected reports whether the last contact with the server succeeded.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Degraded reports whether the store is serving local state only.
func (s *Store) Degraded() bool {
	return !s.Connected()
}

// RetriesExhausted reports whether reconnecting stopped and waits for
// Reconnect.
func (s *Store) RetriesExhausted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exhausted
}

// Orders returns every order, newest first.
func (s *Store) Orders() []order.Order {
	s.mu.RLock()
	out := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) Get(id string) (order.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

// Pending reports how many local orders, or edits to them, have not reached
// the server.
func (s *Store) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outbox)
}

// Subscribe returns a channel that receives a signal after each change.
// Signals coalesce; call the returned func to unsubscribe.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
}

// changed persists the cache and notifies subscribers.
func (s *Store) changed() {
	s.saveMu.Lock()
	err := s.cache.Save(s.Orders())
	s.saveMu.Unlock()
	if err != nil {
		log.Printf("ERROR: save order cache: %v", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close stops the feed and waits for background pushes.
func (s *Store) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}
