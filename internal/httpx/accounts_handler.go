package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/restaurant-orders/internal/accounts"
	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/ariefcatur/restaurant-orders/internal/auth"
	"github.com/go-chi/chi/v5"
)

type AccountsHandler struct {
	log      *slog.Logger
	service  *accounts.Service
	sessions SessionStore
}

func NewAccountsHandler(log *slog.Logger, service *accounts.Service, sessions SessionStore) *AccountsHandler {
	return &AccountsHandler{log: log, service: service, sessions: sessions}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	Token     string         `json:"token"`
	ExpiresIn int            `json:"expires_in"`
	Principal auth.Principal `json:"principal"`
}

func (h *AccountsHandler) Register(r chi.Router) {
	r.Post("/customers", h.registerCustomer)
	r.Post("/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Post("/logout", h.logout)
		r.Get("/users/me", h.me)
		r.Get("/users", h.listUsers)
		r.Put("/users/{id}", h.updateUser)
		r.Get("/customers", h.listCustomers)
		r.Delete("/customers/{id}", h.deleteCustomer)
		r.Post("/employees", h.createEmployee)
		r.Get("/employees", h.listEmployees)
		r.Put("/employees/{id}", h.updateEmployee)
		r.Delete("/employees/{id}", h.deleteEmployee)
	})
}

func (h *AccountsHandler) registerCustomer(w http.ResponseWriter, r *http.Request) {
	var req accounts.RegisterCustomerInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	c, err := h.service.RegisterCustomer(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *AccountsHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	p, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if apperr.KindOf(err) == apperr.KindUnauthorized {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid credentials")
		return
	}
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	token, err := h.sessions.Issue(r.Context(), p)
	if err != nil {
		h.log.Error("issue session", slog.String("user_id", p.UserID), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	resp := loginResp{Token: token, Principal: p}
	if t, ok := h.sessions.(interface{ TTL() time.Duration }); ok {
		resp.ExpiresIn = int(t.TTL().Seconds())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AccountsHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Revoke(r.Context(), sessionToken(r)); err != nil {
		h.log.Warn("revoke session", slog.Any("err", err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountsHandler) me(w http.ResponseWriter, r *http.Request) {
	prof, err := h.service.Profile(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func (h *AccountsHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AccountsHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req accounts.UserPatch
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	u, err := h.service.UpdateUser(r.Context(), principal(r), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AccountsHandler) listCustomers(w http.ResponseWriter, r *http.Request) {
	cs, err := h.service.ListCustomers(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *AccountsHandler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteCustomer(r.Context(), p, id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if p.CustomerID == id {
		if err := h.sessions.Revoke(r.Context(), sessionToken(r)); err != nil {
			h.log.Warn("revoke session", slog.String("user_id", p.UserID), slog.Any("err", err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountsHandler) createEmployee(w http.ResponseWriter, r *http.Request) {
	var req accounts.EmployeeInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	e, err := h.service.CreateEmployee(r.Context(), principal(r), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *AccountsHandler) listEmployees(w http.ResponseWriter, r *http.Request) {
	es, err := h.service.ListEmployees(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, es)
}

func (h *AccountsHandler) updateEmployee(w http.ResponseWriter, r *http.Request) {
	var req accounts.EmployeePatch
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	e, err := h.service.UpdateEmployee(r.Context(), principal(r), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *AccountsHandler) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteEmployee(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
