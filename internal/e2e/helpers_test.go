package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"modelbridge/internal/bridge"
	"modelbridge/internal/httpapi"
	"modelbridge/internal/llm"
	"modelbridge/pkg/types"
)

// newServer wires a simulated backend through the bridge and the HTTP mux.
func newServer(t *testing.T, sc llm.SimulatedConfig, cfg bridge.Config) (*httptest.Server, *bridge.Bridge) {
	t.Helper()
	cfg.Capability = llm.NewSimulated(sc)
	b := bridge.New(cfg)
	srv := httptest.NewServer(httpapi.NewMux(b))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.Shutdown(ctx)
	})
	return srv, b
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func createSession(t *testing.T, base, id, instructions string) string {
	t.Helper()
	resp, body := httpPostJSON(t, base+"/v1/sessions", types.CreateSessionRequest{SessionID: id, Instructions: instructions})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out types.CreateSessionResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out.SessionID
}

func decodeNDJSON(t *testing.T, r io.Reader) []types.StreamEvent {
	t.Helper()
	var out []types.StreamEvent
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var ev types.StreamEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev), sc.Text())
		out = append(out, ev)
	}
	return out
}
