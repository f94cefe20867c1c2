package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ariefcatur/restaurant-orders/internal/orders"
	"github.com/ariefcatur/restaurant-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
)

// IdempotencyStore remembers which order an Idempotency-Key produced.
type IdempotencyStore interface {
	Reserve(ctx context.Context, scope, key string) (string, bool, error)
	Complete(ctx context.Context, scope, key, orderID string) error
	Release(ctx context.Context, scope, key string) error
}

type OrdersHandler struct {
	log     *slog.Logger
	service *orders.Service
	idem    IdempotencyStore
}

// NewOrdersHandler wires the order routes. idem may be nil, in which case
// the Idempotency-Key header is ignored.
func NewOrdersHandler(log *slog.Logger, service *orders.Service, idem IdempotencyStore) *OrdersHandler {
	return &OrdersHandler{log: log, service: service, idem: idem}
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Post("/orders", h.createOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/all", h.listAll)
		r.Get("/orders/monthly-total", h.monthlyTotal)
		r.Get("/orders/{id}", h.getOrder)
		r.Put("/orders/{id}/finalize", h.finalize)
		r.Put("/orders/{id}/cancel", h.cancel)
	})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	p := principal(r)
	ctx := r.Context()

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	reserved := false
	if key != "" && h.idem != nil {
		existing, ok, err := h.idem.Reserve(ctx, p.UserID, key)
		switch {
		case errors.Is(err, redisx.ErrInFlight):
			writeError(w, http.StatusConflict, "CONFLICT", err.Error())
			return
		case err != nil:
			// redis is a shortcut, not the source of truth
			h.log.Warn("idempotency reserve failed", slog.String("key", key), slog.Any("err", err))
		case !ok:
			o, err := h.service.Get(ctx, p, existing)
			if err != nil {
				respondError(w, r, h.log, err)
				return
			}
			writeJSON(w, http.StatusOK, o)
			return
		default:
			reserved = true
		}
	}

	o, err := h.service.Create(ctx, p, req)
	if err != nil {
		if reserved {
			if rerr := h.idem.Release(ctx, p.UserID, key); rerr != nil {
				h.log.Warn("idempotency release failed", slog.String("key", key), slog.Any("err", rerr))
			}
		}
		respondError(w, r, h.log, err)
		return
	}
	if reserved {
		if err := h.idem.Complete(ctx, p.UserID, key, o.ID); err != nil {
			h.log.Warn("idempotency complete failed", slog.String("key", key), slog.Any("err", err))
		}
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListForPrincipal(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListAll(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) monthlyTotal(w http.ResponseWriter, r *http.Request) {
	mt, err := h.service.MonthlyTotal(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, mt)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) finalize(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Finalize(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Cancel(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
