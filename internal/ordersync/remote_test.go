package ordersync_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapntake/api/internal/auth"
	"github.com/tapntake/api/internal/enum"
	"github.com/tapntake/api/internal/feed"
	"github.com/tapntake/api/internal/order"
	"github.com/tapntake/api/internal/ordersync"
	"github.com/tapntake/api/internal/service"
	"github.com/tapntake/api/internal/ws"
)

const testSecret = "test-secret"

// fakeAPI serves the endpoints HTTPRemote calls. Tokens are real access
// tokens so the websocket server accepts them.
type fakeAPI struct {
	logins   atomic.Int32
	revoked  atomic.Value
	orders   map[string]order.Order
	statusFn func(w http.ResponseWriter, r *http.Request)
}

func (a *fakeAPI) Get(ctx context.Context, id string) (order.Order, error) {
	o, ok := a.orders[id]
	if !ok {
		return order.Order{}, service.ErrOrderNotFound
	}
	return o, nil
}

func (a *fakeAPI) List(ctx context.Context, p service.ListParams) ([]order.Order, error) {
	var out []order.Order
	for _, o := range a.orders {
		out = append(out, o)
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (a *fakeAPI) authorized(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if revoked, _ := a.revoked.Load().(string); revoked != "" && token == revoked {
		return false
	}
	_, err := auth.ValidateToken(testSecret, token)
	return err == nil
}

func newFakeAPI(t *testing.T) (*fakeAPI, *ws.Hub, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{orders: map[string]order.Order{"ORD-1": sample("ORD-1", 1)}}

	hub := ws.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if req.Password != "secret" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})
				return
			}
			api.logins.Add(1)
			// Tokens issued within the same second are identical; a
			// fresh id keeps each login distinct.
			token, _ := auth.GenerateToken(testSecret, uuid.New(), req.Username, enum.AdminRoleStaff)
			writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
		})
		r.Get("/orders", func(w http.ResponseWriter, r *http.Request) {
			if !api.authorized(r) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}
			assert.Equal(t, "1000", r.URL.Query().Get("limit"))
			orders, _ := api.List(r.Context(), service.ListParams{})
			writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
		})
		r.Put("/orders/{id}/status", func(w http.ResponseWriter, r *http.Request) {
			api.statusFn(w, r)
		})
		ws.NewServer(hub, api, testSecret).RegisterRoutes(r)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return api, hub, srv
}

func TestHTTPRemote_ListLogsInOnce(t *testing.T) {
	api, _, srv := newFakeAPI(t)
	remote, err := ordersync.NewHTTPRemote(srv.URL+"/", "kds", "secret")
	require.NoError(t, err)

	require.NoError(t, remote.Ping(context.Background()))
	for i := 0; i < 2; i++ {
		orders, err := remote.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"ORD-1"}, ids(orders))
	}
	assert.Equal(t, int32(1), api.logins.Load())
}

func TestHTTPRemote_ReloginOnUnauthorized(t *testing.T) {
	api, _, srv := newFakeAPI(t)
	remote, err := ordersync.NewHTTPRemote(srv.URL, "kds", "secret")
	require.NoError(t, err)

	var token string
	api.statusFn = func(w http.ResponseWriter, r *http.Request) {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		writeJSON(w, http.StatusOK, sample("ORD-1", 2))
	}
	_, err = remote.UpdateStatus(context.Background(), "ORD-1", enum.OrderStatusPreparing, 1)
	require.NoError(t, err)

	api.revoked.Store(token)
	_, err = remote.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.logins.Load())
}

func TestHTTPRemote_BadCredentials(t *testing.T) {
	_, _, srv := newFakeAPI(t)
	remote, err := ordersync.NewHTTPRemote(srv.URL, "kds", "wrong")
	require.NoError(t, err)

	_, err = remote.List(context.Background())
	assert.ErrorIs(t, err, ordersync.ErrUnauthorized)
}

func TestHTTPRemote_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"conflict", http.StatusConflict, ordersync.ErrConflict},
		{"not found", http.StatusNotFound, ordersync.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, _, srv := newFakeAPI(t)
			api.statusFn = func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"error": tt.name})
			}
			remote, err := ordersync.NewHTTPRemote(srv.URL, "kds", "secret")
			require.NoError(t, err)

			_, err = remote.UpdateStatus(context.Background(), "ORD-1", enum.OrderStatusPreparing, 1)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPRemote_BreakerOpensAfterFiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	remote, err := ordersync.NewHTTPRemote(srv.URL, "kds", "secret")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		var se *ordersync.StatusError
		err := remote.Ping(context.Background())
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	}
	err = remote.Ping(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), hits.Load())
}

func TestHTTPRemote_ClientErrorsKeepBreakerClosed(t *testing.T) {
	api, _, srv := newFakeAPI(t)
	api.statusFn = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "version mismatch"})
	}
	remote, err := ordersync.NewHTTPRemote(srv.URL, "kds", "secret")
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		_, err := remote.UpdateStatus(context.Background(), "ORD-1", enum.OrderStatusPreparing, 1)
		require.ErrorIs(t, err, ordersync.ErrConflict)
	}
	assert.NoError(t, remote.Ping(context.Background()))
}

func TestHTTPRemote_Feed(t *testing.T) {
	_, hub, srv := newFakeAPI(t)
	remote, err := ordersync.NewHTTPRemote(srv.URL, "kds", "secret")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f, err := remote.Connect(ctx)
	require.NoError(t, err)
	defer f.Close()

	ev, err := f.Next()
	require.NoError(t, err)
	require.Equal(t, enum.EventOrders, ev.Type)
	snapshot, err := ev.Orders()
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD-1"}, ids(snapshot))

	// Two events queued together may arrive in one frame.
	created, err := feed.OrderEvent(enum.EventNewOrder, sample("ORD-2", 1))
	require.NoError(t, err)
	hub.Deliver(created)
	hub.Deliver(feed.ClearedEvent())

	ev, err = f.Next()
	require.NoError(t, err)
	assert.Equal(t, enum.EventNewOrder, ev.Type)
	o, err := ev.Order()
	require.NoError(t, err)
	assert.Equal(t, "ORD-2", o.ID)

	ev, err = f.Next()
	require.NoError(t, err)
	assert.Equal(t, enum.EventOrdersCleared, ev.Type)
}
