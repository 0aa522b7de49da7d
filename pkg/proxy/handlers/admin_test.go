package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mercator-hq/quota-gate/pkg/limits/storage"
	"github.com/mercator-hq/quota-gate/pkg/limits/subscription"
	"github.com/mercator-hq/quota-gate/pkg/proxy/types"
)

const keyPrefix = "quotagate"

func newAdminMux(t *testing.T) (*http.ServeMux, *storage.MemoryDurableStore, *storage.MemoryCounterStore) {
	t.Helper()
	durable := storage.NewMemoryDurableStore()
	counters := storage.NewMemoryCounterStore()
	mux := http.NewServeMux()
	NewAdminHandler(durable, counters, keyPrefix).Register(mux)
	return mux, durable, counters
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func createPlan(t *testing.T, mux *http.ServeMux, body string) types.PlanResponse {
	t.Helper()
	rec := doJSON(t, mux, http.MethodPost, "/api/plans", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create plan: status = %d body=%s", rec.Code, rec.Body.String())
	}
	var plan types.PlanResponse
	if err := json.NewDecoder(rec.Body).Decode(&plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	return plan
}

func createClient(t *testing.T, mux *http.ServeMux, planID string) types.ClientResponse {
	t.Helper()
	rec := doJSON(t, mux, http.MethodPost, "/api/clients", fmt.Sprintf(`{"name":"acme","planId":"%s"}`, planID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create client: status = %d body=%s", rec.Code, rec.Body.String())
	}
	var client types.ClientResponse
	if err := json.NewDecoder(rec.Body).Decode(&client); err != nil {
		t.Fatalf("decode client: %v", err)
	}
	return client
}

func TestCreatePlanValidation(t *testing.T) {
	mux, _, _ := newAdminMux(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"name":"starter","monthlyLimit":100}`, http.StatusCreated},
		{"blank name", `{"name":" ","monthlyLimit":100}`, http.StatusBadRequest},
		{"zero monthly", `{"name":"x","monthlyLimit":0}`, http.StatusBadRequest},
		{"window without seconds", `{"name":"y","monthlyLimit":10,"windowLimit":5}`, http.StatusBadRequest},
		{"windowed", `{"name":"z","monthlyLimit":10,"windowLimit":5,"windowSeconds":60}`, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, mux, http.MethodPost, "/api/plans", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCreateClientGeneratesKey(t *testing.T) {
	mux, _, _ := newAdminMux(t)
	plan := createPlan(t, mux, `{"name":"starter","monthlyLimit":100}`)
	client := createClient(t, mux, plan.ID)

	if !types.ValidAPIKeyFormat(client.APIKey) {
		t.Errorf("generated key %q does not match rk_<32hex>", client.APIKey)
	}

	// The full key is only ever returned from the create response.
	rec := doJSON(t, mux, http.MethodGet, "/api/clients/"+client.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get client: status = %d", rec.Code)
	}
	var got types.ClientResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.APIKey == client.APIKey {
		t.Error("get response must mask the API key")
	}
	if !strings.HasSuffix(got.APIKey, "...") {
		t.Errorf("masked key = %q, want a prefix ending in ...", got.APIKey)
	}
}

func TestCreateClientRequiresExistingPlan(t *testing.T) {
	mux, _, _ := newAdminMux(t)
	rec := doJSON(t, mux, http.MethodPost, "/api/clients", `{"name":"acme","planId":"no-such-plan"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRuleLifecycleOverHTTP(t *testing.T) {
	mux, _, _ := newAdminMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/limits", `{"limitValue":100,"globalWindowSeconds":60}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create rule: status = %d", rec.Code)
	}
	var rule types.RuleResponse
	if err := json.NewDecoder(rec.Body).Decode(&rule); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rule.Kind != "GLOBAL" || !rule.Active {
		t.Errorf("rule = %+v, want active GLOBAL", rule)
	}

	rec = doJSON(t, mux, http.MethodPut, "/api/limits/"+rule.ID, `{"active":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update rule: status = %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/limits/"+rule.ID, "")
	var got types.RuleResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Active {
		t.Error("rule should be inactive after the update")
	}
}

func TestCreateRuleRejectsNonPositiveLimit(t *testing.T) {
	mux, _, _ := newAdminMux(t)
	rec := doJSON(t, mux, http.MethodPost, "/api/limits", `{"limitValue":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPlanUpdateInvalidatesSubscribedClients(t *testing.T) {
	mux, _, counters := newAdminMux(t)
	ctx := context.Background()

	plan := createPlan(t, mux, `{"name":"starter","monthlyLimit":100}`)
	client := createClient(t, mux, plan.ID)

	// Simulate a hot admission path: cached subscription plus counters.
	cacheKey := subscription.CacheKey(keyPrefix, client.ID)
	if err := counters.SetCache(ctx, cacheKey, `{"id":"stale"}`, time.Hour); err != nil {
		t.Fatalf("SetCache: %v", err)
	}
	counterKey := fmt.Sprintf("%s:rl:c:%s:m:202608", keyPrefix, client.ID)
	if _, err := counters.Evaluate(ctx, []string{counterKey}, []int64{100}, []time.Duration{time.Hour}); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	rec := doJSON(t, mux, http.MethodPut, "/api/plans/"+plan.ID, `{"name":"starter","monthlyLimit":50}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update plan: status = %d body=%s", rec.Code, rec.Body.String())
	}

	if _, found, _ := counters.GetCache(ctx, cacheKey); found {
		t.Error("subscription cache entry must be deleted on plan update")
	}
	keys, err := counters.ScanKeys(ctx, fmt.Sprintf("%s:rl:c:%s:*", keyPrefix, client.ID))
	if err != nil {
		t.Fatalf("ScanKeys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("client counters must be deleted on plan update, still present: %v", keys)
	}
}

func TestClientDeactivationInvalidatesCache(t *testing.T) {
	mux, _, counters := newAdminMux(t)
	ctx := context.Background()

	plan := createPlan(t, mux, `{"name":"starter","monthlyLimit":100}`)
	client := createClient(t, mux, plan.ID)

	cacheKey := subscription.CacheKey(keyPrefix, client.ID)
	if err := counters.SetCache(ctx, cacheKey, `{"id":"stale"}`, time.Hour); err != nil {
		t.Fatalf("SetCache: %v", err)
	}

	rec := doJSON(t, mux, http.MethodPut, "/api/clients/"+client.ID, `{"active":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update client: status = %d", rec.Code)
	}

	if _, found, _ := counters.GetCache(ctx, cacheKey); found {
		t.Error("subscription cache entry must be deleted on client deactivation")
	}
}

func TestGetAbsentEntitiesReturn404(t *testing.T) {
	mux, _, _ := newAdminMux(t)

	for _, path := range []string{"/api/plans/none", "/api/clients/none", "/api/limits/none"} {
		rec := doJSON(t, mux, http.MethodGet, path, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rec.Code)
		}
	}
}
