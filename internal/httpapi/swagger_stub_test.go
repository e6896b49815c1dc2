//go:build !swagger

package httpapi

import (
	"net/http"
	"testing"

	"modelbridge/internal/llm"
)

func TestSwaggerNotMountedWithoutTag(t *testing.T) {
	rr := do(t, NewMux(newBridge(t, llm.SimulatedConfig{})), http.MethodGet, "/swagger/index.html", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without swagger tag, got %d", rr.Code)
	}
}
