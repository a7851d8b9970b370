package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/koperasi-orders.git/internal/auth"
	"github.com/ariefcatur/koperasi-orders.git/internal/catalog"
	"github.com/ariefcatur/koperasi-orders.git/internal/httpx"
	"github.com/ariefcatur/koperasi-orders.git/internal/orders"
)

// ---- fakes ----

type fakeVerifier struct{ tokens map[string]auth.Identity }

func (v *fakeVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	id, ok := v.tokens[token]
	if !ok {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return id, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []orders.Envelope
}

func (p *fakePublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	var env orders.Envelope
	_ = json.Unmarshal(value, &env)
	p.mu.Lock()
	p.msgs = append(p.msgs, env)
	p.mu.Unlock()
}

// memStore: engine in-memory dengan semantik yang sama dengan pgx repo —
// validasi & pricing lewat fungsi yang sama, stok dikurangi hanya di edge
// PENDING->PROCESSING, gagal satu line = tidak ada perubahan.
type memStore struct {
	mu       sync.Mutex
	products map[int64]catalog.Product
	orders   map[int64]orders.Order
	nextID   int64
}

func newMemStore(products ...catalog.Product) *memStore {
	s := &memStore{products: map[int64]catalog.Product{}, orders: map[int64]orders.Order{}}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) Create(_ context.Context, in orders.CreateInput) (orders.Order, error) {
	if err := orders.ValidateCreate(in); err != nil {
		return orders.Order{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, subtotal, err := orders.PriceLines(in.Items, s.products)
	if err != nil {
		return orders.Order{}, err
	}
	s.nextID++
	now := time.Now()
	o := orders.Order{
		ID:             s.nextID,
		OrderCode:      orders.GenerateCode("KOP", now),
		UserID:         in.UserID,
		Status:         orders.StatusPending,
		DeliveryMethod: in.DeliveryMethod,
		DeliveryTarget: in.DeliveryTarget,
		Notes:          in.Notes,
		SubtotalRp:     subtotal,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for i := range lines {
		lines[i].ID = int64(i + 1)
		lines[i].OrderID = o.ID
	}
	o.Items = lines
	s.orders[o.ID] = o
	return o, nil
}

func (s *memStore) TransitionStatus(_ context.Context, orderID int64, to orders.Status, notes string, _ int64) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return orders.Order{}, orders.NotFoundf("order %d not found", orderID)
	}
	eff, err := orders.ValidateTransition(o.Status, to, notes)
	if err != nil {
		return orders.Order{}, err
	}
	if eff == orders.EffectReserve {
		for _, l := range o.Items {
			if p := s.products[l.ProductID]; p.Stock < l.Qty {
				return orders.Order{}, orders.Conflictf("insufficient stock for product %d (available %d, requested %d)",
					l.ProductID, p.Stock, l.Qty)
			}
		}
		for _, l := range o.Items {
			p := s.products[l.ProductID]
			p.Stock -= l.Qty
			s.products[l.ProductID] = p
		}
	}
	o.Status = to
	if strings.TrimSpace(notes) != "" {
		o.Notes = notes
	}
	o.UpdatedAt = time.Now()
	s.orders[orderID] = o
	return o, nil
}

func (s *memStore) GetByID(_ context.Context, id, userID int64, admin bool) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || (!admin && o.UserID != userID) {
		return orders.Order{}, orders.NotFoundf("order %d not found", id)
	}
	return o, nil
}

func (s *memStore) GetStatus(_ context.Context, id int64) (orders.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return "", orders.NotFoundf("order %d not found", id)
	}
	return o.Status, nil
}

func (s *memStore) ListByUser(_ context.Context, userID int64) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) List(_ context.Context, f orders.ListFilter) ([]orders.Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s *memStore) stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// ---- harness ----

type env struct {
	store   *memStore
	created *fakePublisher
	changed *fakePublisher
	router  *chi.Mux
}

func newEnv(products ...catalog.Product) *env {
	e := &env{
		store:   newMemStore(products...),
		created: &fakePublisher{},
		changed: &fakePublisher{},
	}
	verifier := &fakeVerifier{tokens: map[string]auth.Identity{
		"user-token":  {UserID: 10, Role: auth.RoleUser},
		"other-token": {UserID: 11, Role: auth.RoleUser},
		"admin-token": {UserID: 1, Role: auth.RoleAdmin},
	}}
	e.router = chi.NewRouter()
	h := &httpx.OrdersHandler{
		Store:   e.store,
		Created: e.created,
		Changed: e.changed,
		Service: "test-api",
	}
	h.Register(e.router, httpx.RequireAuth(verifier))
	return e
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func createBody(items ...map[string]any) map[string]any {
	return map[string]any{"items": items, "deliveryMethod": "PICKUP"}
}

func item(productID int64, qty int) map[string]any {
	return map[string]any{"productId": productID, "qty": qty}
}

func pensil(stock int) catalog.Product {
	return catalog.Product{ID: 1, Name: "Pensil 2B", PriceRp: 1000, Stock: stock, IsActive: true}
}

func buku(stock int) catalog.Product {
	return catalog.Product{ID: 2, Name: "Buku Tulis", PriceRp: 5000, Stock: stock, IsActive: true}
}

// ---- tests ----

func TestCreateOrderSuccess(t *testing.T) {
	e := newEnv(pensil(5), buku(3))

	rec := e.do(t, http.MethodPost, "/orders", "user-token",
		createBody(item(1, 5), item(2, 2)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		OrderID   int64  `json:"orderId"`
		OrderCode string `json:"orderCode"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Regexp(t, regexp.MustCompile(`^KOP-\d{8}-\d{4}$`), resp.OrderCode)

	o := e.store.orders[resp.OrderID]
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, int64(5*1000+2*5000), o.SubtotalRp)
	require.Len(t, o.Items, 2)

	// stok TIDAK berubah saat create
	assert.Equal(t, 5, e.store.stock(1))
	assert.Equal(t, 3, e.store.stock(2))

	// event OrderCreated terbit
	require.Len(t, e.created.msgs, 1)
	assert.Equal(t, orders.EventOrderCreated, e.created.msgs[0].EventType)
	assert.Equal(t, resp.OrderCode, e.created.msgs[0].CorrelationID)
}

func TestCreateOrderInsufficientStockIsAllOrNothing(t *testing.T) {
	e := newEnv(pensil(5), buku(1))

	rec := e.do(t, http.MethodPost, "/orders", "user-token",
		createBody(item(1, 2), item(2, 2)))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Buku Tulis")

	// tidak ada order, stok utuh, tidak ada event
	assert.Zero(t, e.store.orderCount())
	assert.Equal(t, 5, e.store.stock(1))
	assert.Equal(t, 1, e.store.stock(2))
	assert.Empty(t, e.created.msgs)
}

func TestCreateOrderValidation(t *testing.T) {
	e := newEnv(pensil(5))

	rec := e.do(t, http.MethodPost, "/orders", "user-token", createBody())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/orders", "user-token", map[string]any{
		"items":          []map[string]any{item(1, 1)},
		"deliveryMethod": "DELIVER_TO_CLASS",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "delivery target")

	rec = e.do(t, http.MethodPost, "/orders", "user-token",
		createBody(item(99, 1)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOrderRequiresAuth(t *testing.T) {
	e := newEnv(pensil(5))
	rec := e.do(t, http.MethodPost, "/orders", "", createBody(item(1, 1)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/orders", "bogus", createBody(item(1, 1)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProcessingDecrementsStock(t *testing.T) {
	e := newEnv(pensil(5))

	rec := e.do(t, http.MethodPost, "/orders", "user-token", createBody(item(1, 5)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodPatch, "/orders/1/status", "admin-token",
		map[string]string{"status": "PROCESSING"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var o orders.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, orders.StatusProcessing, o.Status)
	assert.Equal(t, 0, e.store.stock(1))

	// event status change terbit dengan old/new status
	require.Len(t, e.changed.msgs, 1)
	assert.Equal(t, orders.EventOrderStatusChanged, e.changed.msgs[0].EventType)

	// order kedua utk produk yang sama sekarang gagal di create
	rec = e.do(t, http.MethodPost, "/orders", "user-token", createBody(item(1, 1)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient stock")
}

func TestProcessingAbortsWhenStockDepleted(t *testing.T) {
	e := newEnv(pensil(5))

	rec := e.do(t, http.MethodPost, "/orders", "user-token", createBody(item(1, 4)))
	require.Equal(t, http.StatusCreated, rec.Code)

	// stok terkuras di luar order ini (mis. order lain diproses duluan)
	e.store.mu.Lock()
	p := e.store.products[1]
	p.Stock = 3
	e.store.products[1] = p
	e.store.mu.Unlock()

	rec = e.do(t, http.MethodPatch, "/orders/1/status", "admin-token",
		map[string]string{"status": "PROCESSING"})
	require.Equal(t, http.StatusConflict, rec.Code)

	// order tetap PENDING, stok tidak berubah
	assert.Equal(t, orders.StatusPending, e.store.orders[1].Status)
	assert.Equal(t, 3, e.store.stock(1))
	assert.Empty(t, e.changed.msgs)
}

func TestRejectRequiresNotes(t *testing.T) {
	e := newEnv(pensil(5))
	e.do(t, http.MethodPost, "/orders", "user-token", createBody(item(1, 2)))

	rec := e.do(t, http.MethodPatch, "/orders/1/status", "admin-token",
		map[string]string{"status": "REJECTED"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "notes required")

	rec = e.do(t, http.MethodPatch, "/orders/1/status", "admin-token",
		map[string]string{"status": "REJECTED", "notes": "stok kosong"})
	require.Equal(t, http.StatusOK, rec.Code)

	// reject tidak menyentuh stok
	assert.Equal(t, 5, e.store.stock(1))
	assert.Equal(t, orders.StatusRejected, e.store.orders[1].Status)
	assert.Equal(t, "stok kosong", e.store.orders[1].Notes)
}

func TestStrictTransitionEdges(t *testing.T) {
	e := newEnv(pensil(10))
	e.do(t, http.MethodPost, "/orders", "user-token", createBody(item(1, 1)))

	// PENDING -> COMPLETED dilarang
	rec := e.do(t, http.MethodPatch, "/orders/1/status", "admin-token",
		map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// PENDING -> PROCESSING -> COMPLETED jalur normal
	rec = e.do(t, http.MethodPatch, "/orders/1/status", "admin-token",
		map[string]string{"status": "PROCESSING"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodPatch, "/orders/1/status", "admin-token",
		map[string]string{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, rec.Code)

	// terminal: COMPLETED tidak bisa diapa-apakan lagi
	rec = e.do(t, http.MethodPatch, "/orders/1/status", "admin-token",
		map[string]string{"status": "PROCESSING"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// status tak dikenal
	rec = e.do(t, http.MethodPatch, "/orders/1/status", "admin-token",
		map[string]string{"status": "SHIPPED"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateStatusRequiresAdmin(t *testing.T) {
	e := newEnv(pensil(5))
	e.do(t, http.MethodPost, "/orders", "user-token", createBody(item(1, 1)))

	rec := e.do(t, http.MethodPatch, "/orders/1/status", "user-token",
		map[string]string{"status": "PROCESSING"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPatch, "/orders/99/status", "admin-token",
		map[string]string{"status": "PROCESSING"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrderOwnerScoped(t *testing.T) {
	e := newEnv(pensil(5))
	e.do(t, http.MethodPost, "/orders", "user-token", createBody(item(1, 1)))

	rec := e.do(t, http.MethodGet, "/orders/1", "user-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// user lain tidak melihat order orang
	rec = e.do(t, http.MethodGet, "/orders/1", "other-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// admin boleh
	rec = e.do(t, http.MethodGet, "/orders/1", "admin-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// list admin butuh role admin
	rec = e.do(t, http.MethodGet, "/orders", "user-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = e.do(t, http.MethodGet, "/orders", "admin-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
