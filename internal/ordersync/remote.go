package ordersync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
	"github.com/tapntake/api/internal/feed"
	"github.com/tapntake/api/internal/order"
)

const (
	probeTimeout = 2 * time.Second
	writeTimeout = 3 * time.Second
	listTimeout  = 10 * time.Second
	listLimit    = 1000
)

var (
	ErrConflict     = errors.New("order changed on the server")
	ErrNotFound     = errors.New("order not found on the server")
	ErrUnauthorized = errors.New("server rejected credentials")
)

// StatusError is a non-2xx API response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Code, e.Message)
}

// Remote is the server side of the order set.
type Remote interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]order.Order, error)
	Create(ctx context.Context, o order.Order) (order.Order, error)
	UpdateStatus(ctx context.Context, id, status string, expectedVersion int64) (order.Order, error)
	UpdatePaymentStatus(ctx context.Context, id, status string) (order.Order, error)
	Connect(ctx context.Context) (Feed, error)
}

// Feed is a live change subscription.
type Feed interface {
	Next() (feed.Event, error)
	Close() error
}

// HTTPRemote talks to the API server as a staff account. Every HTTP call
// goes through a circuit breaker that opens after five consecutive
// failures and half-opens after thirty seconds.
type HTTPRemote struct {
	base     *url.URL
	username string
	password string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	dialer   *websocket.Dialer

	mu    sync.Mutex
	token string
}

func NewHTTPRemote(baseURL, username, password string) (*HTTPRemote, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	r := &HTTPRemote{
		base:     u,
		username: username,
		password: password,
		client:   &http.Client{},
		dialer:   &websocket.Dialer{HandshakeTimeout: probeTimeout},
	}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "orders-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var se *StatusError
			return err == nil || (errors.As(err, &se) && se.Code < 500)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit %s: %s -> %s", name, from, to)
		},
	})
	return r, nil
}

// Ping checks the server is reachable.
func (r *HTTPRemote) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return r.do(ctx, http.MethodGet, "/health", nil, nil, false)
}

func (r *HTTPRemote) List(ctx context.Context) ([]order.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	var resp struct {
		Orders []order.Order `json:"orders"`
	}
	path := fmt.Sprintf("/api/orders?limit=%d", listLimit)
	if err := r.do(ctx, http.MethodGet, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (r *HTTPRemote) Create(ctx context.Context, o order.Order) (order.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	var out order.Order
	err := r.do(ctx, http.MethodPost, "/api/orders", o, &out, true)
	return out, err
}

func (r *HTTPRemote) UpdateStatus(ctx context.Context, id, status string, expectedVersion int64) (order.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	body := map[string]interface{}{"status": status, "expected_version": expectedVersion}
	var out order.Order
	err := r.do(ctx, http.MethodPut, "/api/orders/"+url.PathEscape(id)+"/status", body, &out, true)
	return out, err
}

func (r *HTTPRemote) UpdatePaymentStatus(ctx context.Context, id, status string) (order.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	body := map[string]string{"payment_status": status}
	var out order.Order
	err := r.do(ctx, http.MethodPut, "/api/orders/"+url.PathEscape(id)+"/payment", body, &out, true)
	return out, err
}

// Connect opens the staff order feed.
func (r *HTTPRemote) Connect(ctx context.Context) (Feed, error) {
	token, err := r.accessToken(ctx, false)
	if err != nil {
		return nil, err
	}
	conn, err := r.dial(ctx, token)
	if errors.Is(err, ErrUnauthorized) {
		if token, err = r.accessToken(ctx, true); err != nil {
			return nil, err
		}
		conn, err = r.dial(ctx, token)
	}
	if err != nil {
		return nil, err
	}
	return &wsFeed{conn: conn}, nil
}

func (r *HTTPRemote) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	u := *r.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/api/ws/orders"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	conn, resp, err := r.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("dial order feed: %w", err)
	}
	return conn, nil
}

// accessToken returns the cached token, logging in when there is none or
// refresh is set.
func (r *HTTPRemote) accessToken(ctx context.Context, refresh bool) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token != "" && !refresh {
		return r.token, nil
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	body := map[string]string{"username": r.username, "password": r.password}
	if err := r.send(ctx, http.MethodPost, "/api/auth/login", "", body, &resp); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
			return "", ErrUnauthorized
		}
		return "", fmt.Errorf("login: %w", err)
	}
	r.token = resp.AccessToken
	return r.token, nil
}

// do runs one request through the breaker. Authenticated requests log in
// again once on 401.
func (r *HTTPRemote) do(ctx context.Context, method, path string, in, out interface{}, authed bool) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		if !authed {
			return nil, r.send(ctx, method, path, "", in, out)
		}
		token, err := r.accessToken(ctx, false)
		if err != nil {
			return nil, err
		}
		err = r.send(ctx, method, path, token, in, out)
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
			if token, err = r.accessToken(ctx, true); err != nil {
				return nil, err
			}
			err = r.send(ctx, method, path, token, in, out)
		}
		return nil, err
	})
	return mapError(err)
}

func (r *HTTPRemote) send(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.base.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func mapError(err error) error {
	var se *StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code {
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, se.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, se.Message)
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return err
}

// wsFeed splits batched frames into events.
type wsFeed struct {
	conn    *websocket.Conn
	pending [][]byte
}

// Next blocks for the next event. Undecodable lines are logged and skipped.
func (f *wsFeed) Next() (feed.Event, error) {
	for {
		for len(f.pending) == 0 {
			_, data, err := f.conn.ReadMessage()
			if err != nil {
				return feed.Event{}, err
			}
			for _, line := range bytes.Split(data, []byte{'\n'}) {
				if len(bytes.TrimSpace(line)) > 0 {
					f.pending = append(f.pending, line)
				}
			}
		}
		line := f.pending[0]
		f.pending = f.pending[1:]
		var ev feed.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			log.Printf("ERROR: decode feed event: %v", err)
			continue
		}
		return ev, nil
	}
}

func (f *wsFeed) Close() error {
	return f.conn.Close()
}
