package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/koperasi-orders.git/internal/catalog"
)

type ProductStore interface {
	GetByID(ctx context.Context, id int64) (catalog.Product, error)
	List(ctx context.Context, f catalog.ListFilter) ([]catalog.Product, int, error)
	Create(ctx context.Context, actorID int64, in catalog.ProductInput) (catalog.Product, error)
	Update(ctx context.Context, actorID, id int64, patch catalog.ProductPatch) (catalog.Product, error)
	Delete(ctx context.Context, actorID, id int64) error
}

type ProductsHandler struct {
	Store ProductStore
}

func (h *ProductsHandler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/products", h.list)
	r.Get("/products/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/products", h.create)
		r.Patch("/products/{id}", h.update)
		r.Delete("/products/{id}", h.delete)
	})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	f := catalog.ListFilter{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
		Sort:     r.URL.Query().Get("sort"),
		Page:     queryInt(r, "page", 1),
		Size:     queryInt(r, "size", 20),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, total, err := h.Store.List(ctx, f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse(ps, f.Page, f.Size, total))
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Store.GetByID(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	admin, ok := mustAdmin(w, r)
	if !ok {
		return
	}
	var in catalog.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Name == "" || in.PriceRp <= 0 {
		writeError(w, http.StatusBadRequest, "name and price are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Store.Create(ctx, admin.UserID, in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	admin, ok := mustAdmin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var patch catalog.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Store.Update(ctx, admin.UserID, id, patch)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	admin, ok := mustAdmin(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.Delete(ctx, admin.UserID, id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
