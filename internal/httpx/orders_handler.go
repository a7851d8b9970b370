package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/koperasi-orders.git/internal/kafka"
	"github.com/ariefcatur/koperasi-orders.git/internal/orders"
	"github.com/ariefcatur/koperasi-orders.git/internal/redisx"
)

// OrderStore: kontrak workflow engine yang dibutuhkan handler; pgx repo
// memenuhinya, test pakai fake.
type OrderStore interface {
	Create(ctx context.Context, in orders.CreateInput) (orders.Order, error)
	TransitionStatus(ctx context.Context, orderID int64, to orders.Status, notes string, adminID int64) (orders.Order, error)
	GetByID(ctx context.Context, id, userID int64, admin bool) (orders.Order, error)
	GetStatus(ctx context.Context, id int64) (orders.Status, error)
	ListByUser(ctx context.Context, userID int64) ([]orders.Order, error)
	List(ctx context.Context, f orders.ListFilter) ([]orders.Order, int, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Store   OrderStore
	Created Publisher // topic order.created
	Changed Publisher // topic order.status.changed
	Redis   *redis.Client
	Service string
}

func (h *OrdersHandler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/orders", h.createOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/my", h.myOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/orders/{id}/status", h.getOrderStatus)
		r.Patch("/orders/{id}/status", h.updateStatus)
	})
}

type createOrderReq struct {
	Items []struct {
		ProductID int64 `json:"productId"`
		Qty       int   `json:"qty"`
	} `json:"items"`
	DeliveryMethod string `json:"deliveryMethod"`
	AddressOrClass string `json:"addressOrClass"`
	Notes          string `json:"notes"`
}

type createOrderResp struct {
	OrderID   int64  `json:"orderId"`
	OrderCode string `json:"orderCode"`
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	in := orders.CreateInput{
		UserID:         id.UserID,
		DeliveryMethod: orders.DeliveryMethod(req.DeliveryMethod),
		DeliveryTarget: req.AddressOrClass,
		Notes:          req.Notes,
	}
	if req.DeliveryMethod == "" {
		in.DeliveryMethod = orders.DeliveryPickup
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, orders.ItemInput{ProductID: it.ProductID, Qty: it.Qty})
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Store.Create(ctx, in)
	if err != nil {
		writeErr(w, err)
		return
	}

	h.cacheStatus(ctx, o.ID, o.Status, o.UpdatedAt)
	h.publish(h.Created, r, orders.EventOrderCreated, o.OrderCode, orders.OrderCreatedPayload{
		OrderID:    o.ID,
		OrderCode:  o.OrderCode,
		UserID:     o.UserID,
		SubtotalRp: o.SubtotalRp,
		LineCount:  len(o.Items),
	})

	writeJSON(w, http.StatusCreated, createOrderResp{OrderID: o.ID, OrderCode: o.OrderCode})
}

type updateStatusReq struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	admin, ok := mustAdmin(w, r)
	if !ok {
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	old, err := h.Store.GetStatus(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	o, err := h.Store.TransitionStatus(ctx, orderID, orders.Status(req.Status), req.Notes, admin.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}

	h.cacheStatus(ctx, o.ID, o.Status, o.UpdatedAt)
	h.publish(h.Changed, r, orders.EventOrderStatusChanged, o.OrderCode, orders.OrderStatusChangedPayload{
		OrderID:   o.ID,
		OrderCode: o.OrderCode,
		OldStatus: old,
		NewStatus: o.Status,
		Notes:     req.Notes,
	})

	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.GetByID(ctx, orderID, id.UserID, id.IsAdmin())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus: cache-first via Redis, fallback DB.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	status, err := h.Store.GetStatus(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, orderID, status, time.Now())
	writeJSON(w, http.StatusOK, map[string]any{"status": status})
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	os, err := h.Store.ListByUser(ctx, id.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, os)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := mustAdmin(w, r); !ok {
		return
	}
	f := orders.ListFilter{
		Status: orders.Status(r.URL.Query().Get("status")),
		Page:   queryInt(r, "page", 1),
		Size:   queryInt(r, "size", 20),
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = t
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	os, total, err := h.Store.List(ctx, f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse(os, f.Page, f.Size, total))
}

// ---- helpers ----

func (h *OrdersHandler) cacheStatus(ctx context.Context, orderID int64, s orders.Status, at time.Time) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	val := kafkax.MustMarshal(map[string]any{"status": s, "updated_at": at.UTC()})
	_ = h.Redis.Set(ctx, key, val, redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) publish(p Publisher, r *http.Request, eventType, orderCode string, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: orderCode,
	}
	ev.Payload = kafkax.MustMarshal(payload)
	p.Publish(orders.PartitionKey(orderCode), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func pagedResponse[T any](data []T, page, size, total int) map[string]any {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return map[string]any{
		"data": data,
		"pagination": map[string]int{
			"page": page, "size": size, "total": total, "pages": pages,
		},
	}
}
