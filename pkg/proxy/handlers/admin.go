package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mercator-hq/quota-gate/pkg/limits/plans"
	"github.com/mercator-hq/quota-gate/pkg/limits/subscription"
	"github.com/mercator-hq/quota-gate/pkg/proxy/types"
)

// AdminStore is the durable store surface the admin handlers need.
type AdminStore interface {
	CreatePlan(ctx context.Context, p *plans.SubscriptionPlan) error
	GetPlan(ctx context.Context, id string) (*plans.SubscriptionPlan, error)
	ListPlans(ctx context.Context) ([]*plans.SubscriptionPlan, error)
	UpdatePlan(ctx context.Context, p *plans.SubscriptionPlan) error

	CreateClient(ctx context.Context, c *plans.Client) error
	GetClientByID(ctx context.Context, id string) (*plans.Client, error)
	ListClients(ctx context.Context) ([]*plans.Client, error)
	SetClientActive(ctx context.Context, id string, active bool) error

	CreateRule(ctx context.Context, r *plans.RateLimitRule) error
	GetRule(ctx context.Context, id string) (*plans.RateLimitRule, error)
	ListRules(ctx context.Context) ([]*plans.RateLimitRule, error)
	SetRuleActive(ctx context.Context, id string, active bool) error
}

// CounterInvalidator is the counter store surface needed to purge a
// client's cached subscription and counters after an admin edit.
type CounterInvalidator interface {
	DeleteKeys(ctx context.Context, keys ...string) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}

// AdminHandler serves the plan/client/rule CRUD surface. Reads are plain
// pass-throughs; writes that change an entity a running admission decision
// might have cached also invalidate the affected clients' cache and
// counter keys, so the next admission observes durable-store truth.
type AdminHandler struct {
	store     AdminStore
	counters  CounterInvalidator
	keyPrefix string
}

// NewAdminHandler creates the admin surface over store, invalidating
// counter-store keys under keyPrefix.
func NewAdminHandler(store AdminStore, counters CounterInvalidator, keyPrefix string) *AdminHandler {
	return &AdminHandler{store: store, counters: counters, keyPrefix: keyPrefix}
}

// Register mounts every admin route on mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/plans", h.CreatePlan)
	mux.HandleFunc("GET /api/plans", h.ListPlans)
	mux.HandleFunc("GET /api/plans/{id}", h.GetPlan)
	mux.HandleFunc("PUT /api/plans/{id}", h.UpdatePlan)

	mux.HandleFunc("POST /api/clients", h.CreateClient)
	mux.HandleFunc("GET /api/clients", h.ListClients)
	mux.HandleFunc("GET /api/clients/{id}", h.GetClient)
	mux.HandleFunc("PUT /api/clients/{id}", h.UpdateClient)

	mux.HandleFunc("POST /api/limits", h.CreateRule)
	mux.HandleFunc("GET /api/limits", h.ListRules)
	mux.HandleFunc("GET /api/limits/{id}", h.GetRule)
	mux.HandleFunc("PUT /api/limits/{id}", h.UpdateRule)
}

// CreatePlan handles POST /api/plans.
func (h *AdminHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req types.CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.NewBadRequestError("Request body must be valid JSON", r.URL.Path).WriteJSON(w)
		return
	}
	if err := req.Validate(); err != nil {
		types.NewBadRequestError(err.Error(), r.URL.Path).WriteJSON(w)
		return
	}

	plan := &plans.SubscriptionPlan{
		Name:          strings.TrimSpace(req.Name),
		MonthlyLimit:  req.MonthlyLimit,
		WindowLimit:   req.WindowLimit,
		WindowSeconds: req.WindowSeconds,
		Active:        boolOrDefault(req.Active, true),
		ExpiresAt:     req.ExpiresAt,
	}
	if err := h.store.CreatePlan(r.Context(), plan); err != nil {
		h.writeStoreError(w, r, "create plan", err)
		return
	}

	writeJSON(w, http.StatusCreated, types.NewPlanResponse(plan))
}

// ListPlans handles GET /api/plans.
func (h *AdminHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListPlans(r.Context())
	if err != nil {
		h.writeStoreError(w, r, "list plans", err)
		return
	}
	out := make([]*types.PlanResponse, 0, len(list))
	for _, p := range list {
		out = append(out, types.NewPlanResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetPlan handles GET /api/plans/{id}.
func (h *AdminHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.store.GetPlan(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, r, "get plan", err)
		return
	}
	if plan == nil {
		types.NewNotFoundError("Plan not found", r.URL.Path).WriteJSON(w)
		return
	}
	writeJSON(w, http.StatusOK, types.NewPlanResponse(plan))
}

// UpdatePlan handles PUT /api/plans/{id}. After the write it invalidates
// every client subscribed to the plan, per the cache invalidation
// contract: the subscription cache entry and all the client's counter
// keys are deleted so the next admission re-reads the durable store.
func (h *AdminHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req types.CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.NewBadRequestError("Request body must be valid JSON", r.URL.Path).WriteJSON(w)
		return
	}
	if err := req.Validate(); err != nil {
		types.NewBadRequestError(err.Error(), r.URL.Path).WriteJSON(w)
		return
	}

	existing, err := h.store.GetPlan(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, r, "get plan", err)
		return
	}
	if existing == nil {
		types.NewNotFoundError("Plan not found", r.URL.Path).WriteJSON(w)
		return
	}

	plan := &plans.SubscriptionPlan{
		ID:            id,
		Name:          strings.TrimSpace(req.Name),
		MonthlyLimit:  req.MonthlyLimit,
		WindowLimit:   req.WindowLimit,
		WindowSeconds: req.WindowSeconds,
		Active:        boolOrDefault(req.Active, existing.Active),
		ExpiresAt:     req.ExpiresAt,
		CreatedAt:     existing.CreatedAt,
	}
	if err := h.store.UpdatePlan(r.Context(), plan); err != nil {
		h.writeStoreError(w, r, "update plan", err)
		return
	}

	h.invalidatePlanClients(r.Context(), id)

	writeJSON(w, http.StatusOK, types.NewPlanResponse(plan))
}

// CreateClient handles POST /api/clients. The API key is generated here
// and returned exactly once, in this response.
func (h *AdminHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req types.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.NewBadRequestError("Request body must be valid JSON", r.URL.Path).WriteJSON(w)
		return
	}
	if err := req.Validate(); err != nil {
		types.NewBadRequestError(err.Error(), r.URL.Path).WriteJSON(w)
		return
	}

	plan, err := h.store.GetPlan(r.Context(), req.PlanID)
	if err != nil {
		h.writeStoreError(w, r, "get plan", err)
		return
	}
	if plan == nil {
		types.NewBadRequestError("planId does not reference an existing plan", r.URL.Path).WriteJSON(w)
		return
	}

	apiKey, err := plans.GenerateAPIKey()
	if err != nil {
		types.NewInternalError("Could not generate API key", r.URL.Path).WriteJSON(w)
		return
	}

	client := &plans.Client{
		Name:   strings.TrimSpace(req.Name),
		APIKey: apiKey,
		PlanID: req.PlanID,
		Active: boolOrDefault(req.Active, true),
	}
	if err := h.store.CreateClient(r.Context(), client); err != nil {
		h.writeStoreError(w, r, "create client", err)
		return
	}

	writeJSON(w, http.StatusCreated, types.NewClientResponse(client))
}

// ListClients handles GET /api/clients. API keys are masked.
func (h *AdminHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListClients(r.Context())
	if err != nil {
		h.writeStoreError(w, r, "list clients", err)
		return
	}
	out := make([]*types.ClientResponse, 0, len(list))
	for _, c := range list {
		out = append(out, types.NewMaskedClientResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetClient handles GET /api/clients/{id}. The API key is masked.
func (h *AdminHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	client, err := h.store.GetClientByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, r, "get client", err)
		return
	}
	if client == nil {
		types.NewNotFoundError("Client not found", r.URL.Path).WriteJSON(w)
		return
	}
	writeJSON(w, http.StatusOK, types.NewMaskedClientResponse(client))
}

// UpdateClient handles PUT /api/clients/{id}, toggling the active flag and
// invalidating the client's cached subscription and counters.
func (h *AdminHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req types.UpdateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.NewBadRequestError("Request body must be valid JSON", r.URL.Path).WriteJSON(w)
		return
	}
	if err := req.Validate(); err != nil {
		types.NewBadRequestError(err.Error(), r.URL.Path).WriteJSON(w)
		return
	}

	client, err := h.store.GetClientByID(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, r, "get client", err)
		return
	}
	if client == nil {
		types.NewNotFoundError("Client not found", r.URL.Path).WriteJSON(w)
		return
	}

	if err := h.store.SetClientActive(r.Context(), id, *req.Active); err != nil {
		h.writeStoreError(w, r, "update client", err)
		return
	}
	client.Active = *req.Active

	h.invalidateClient(r.Context(), id)

	writeJSON(w, http.StatusOK, types.NewMaskedClientResponse(client))
}

// CreateRule handles POST /api/limits. Only GLOBAL rules exist.
func (h *AdminHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req types.CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.NewBadRequestError("Request body must be valid JSON", r.URL.Path).WriteJSON(w)
		return
	}
	if err := req.Validate(); err != nil {
		types.NewBadRequestError(err.Error(), r.URL.Path).WriteJSON(w)
		return
	}

	rule := &plans.RateLimitRule{
		Kind:                plans.GlobalRuleKind,
		LimitValue:          req.LimitValue,
		GlobalWindowSeconds: req.GlobalWindowSeconds,
		Active:              boolOrDefault(req.Active, true),
	}
	if err := h.store.CreateRule(r.Context(), rule); err != nil {
		h.writeStoreError(w, r, "create rule", err)
		return
	}

	writeJSON(w, http.StatusCreated, types.NewRuleResponse(rule))
}

// ListRules handles GET /api/limits.
func (h *AdminHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListRules(r.Context())
	if err != nil {
		h.writeStoreError(w, r, "list rules", err)
		return
	}
	out := make([]*types.RuleResponse, 0, len(list))
	for _, rule := range list {
		out = append(out, types.NewRuleResponse(rule))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRule handles GET /api/limits/{id}.
func (h *AdminHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.store.GetRule(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, r, "get rule", err)
		return
	}
	if rule == nil {
		types.NewNotFoundError("Rule not found", r.URL.Path).WriteJSON(w)
		return
	}
	writeJSON(w, http.StatusOK, types.NewRuleResponse(rule))
}

// UpdateRule handles PUT /api/limits/{id}. Global counters are left
// alone: a deactivated rule simply stops being assembled into limit
// lists, and its counters expire by TTL.
func (h *AdminHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req types.UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.NewBadRequestError("Request body must be valid JSON", r.URL.Path).WriteJSON(w)
		return
	}
	if err := req.Validate(); err != nil {
		types.NewBadRequestError(err.Error(), r.URL.Path).WriteJSON(w)
		return
	}

	rule, err := h.store.GetRule(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, r, "get rule", err)
		return
	}
	if rule == nil {
		types.NewNotFoundError("Rule not found", r.URL.Path).WriteJSON(w)
		return
	}

	if err := h.store.SetRuleActive(r.Context(), id, *req.Active); err != nil {
		h.writeStoreError(w, r, "update rule", err)
		return
	}
	rule.Active = *req.Active

	writeJSON(w, http.StatusOK, types.NewRuleResponse(rule))
}

// invalidatePlanClients purges the cache and counters of every client
// subscribed to the plan.
func (h *AdminHandler) invalidatePlanClients(ctx context.Context, planID string) {
	clients, err := h.store.ListClients(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "cache invalidation: list clients failed", "plan_id", planID, "error", err)
		return
	}
	for _, c := range clients {
		if c.PlanID == planID {
			h.invalidateClient(ctx, c.ID)
		}
	}
}

// invalidateClient deletes the client's subscription cache entry and every
// rl:c:<clientId>:* counter key.
func (h *AdminHandler) invalidateClient(ctx context.Context, clientID string) {
	keys, err := h.counters.ScanKeys(ctx, fmt.Sprintf("%s:rl:c:%s:*", h.keyPrefix, clientID))
	if err != nil {
		slog.ErrorContext(ctx, "cache invalidation: scan failed", "client_id", clientID, "error", err)
		return
	}
	keys = append(keys, subscription.CacheKey(h.keyPrefix, clientID))
	if err := h.counters.DeleteKeys(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "cache invalidation: delete failed", "client_id", clientID, "error", err)
		return
	}
	slog.InfoContext(ctx, "client cache invalidated", "client_id", clientID, "keys", len(keys))
}

func (h *AdminHandler) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if isUniqueViolation(err) {
		types.NewConflictError("A record with the same unique value already exists", r.URL.Path).WriteJSON(w)
		return
	}
	slog.ErrorContext(r.Context(), "durable store operation failed", "operation", op, "error", err)
	types.NewServiceUnavailableError("Storage temporarily unavailable", r.URL.Path).WriteJSON(w)
}

// isUniqueViolation sniffs a unique-constraint failure out of the driver
// error text; the pure-Go SQLite driver exposes no typed error for it.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToUpper(err.Error()), "UNIQUE")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
