package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/dalemusser/ghostwire/internal/app/features/health"
	"github.com/dalemusser/ghostwire/internal/testutil"
)

func TestServeHealthy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := health.NewHandler(db, zap.NewNop())

	rec := httptest.NewRecorder()
	health.Routes(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Database != "connected" {
		t.Fatalf("response = %+v, want ok/connected", resp)
	}
}
