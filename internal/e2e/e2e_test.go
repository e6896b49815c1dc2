package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"modelbridge/internal/bridge"
	"modelbridge/internal/llm"
	"modelbridge/pkg/types"
)

// TestE2E_Flow walks availability, session creation, a generation and a
// stream over the public HTTP surface.
func TestE2E_Flow(t *testing.T) {
	srv, _ := newServer(t, llm.SimulatedConfig{}, bridge.Config{})

	resp, body := httpGet(t, srv.URL+"/v1/availability")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"availability":"available"}`, string(body))

	resp, _ = httpGet(t, srv.URL+"/readyz")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	id := createSession(t, srv.URL, "s1", "be brief")
	require.Equal(t, "s1", id)

	resp, body = httpPostJSON(t, srv.URL+"/v1/generate", types.GenerateRequest{SessionID: id, Prompt: "hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var gen types.GenerateResponse
	require.NoError(t, json.Unmarshal(body, &gen))
	require.Contains(t, gen.Content, `"hello"`)
	require.Contains(t, gen.Content, "be brief")

	resp, body = httpPostJSON(t, srv.URL+"/v1/streams", types.GenerateRequest{SessionID: id, Prompt: "count"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NotEmpty(t, resp.Header.Get("X-Stream-ID"))
	events := decodeNDJSON(t, bytes.NewReader(body))
	require.GreaterOrEqual(t, len(events), 2)
	var text strings.Builder
	for _, ev := range events[:len(events)-1] {
		require.Equal(t, "chunk", ev.Type)
		text.WriteString(ev.Content)
	}
	require.Equal(t, "end", events[len(events)-1].Type)
	require.Contains(t, text.String(), `"count"`)

	resp, body = httpGet(t, srv.URL+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st types.StatusResponse
	require.NoError(t, json.Unmarshal(body, &st))
	require.Equal(t, 1, st.SessionCount)
	require.Equal(t, "s1", st.Sessions[0].SessionID)
	require.Equal(t, 0, st.ActiveStreams)
}

func TestE2E_ErrorMapping(t *testing.T) {
	srv, _ := newServer(t, llm.SimulatedConfig{}, bridge.Config{})

	resp, body := httpPostJSON(t, srv.URL+"/v1/generate", types.GenerateRequest{SessionID: "ghost", Prompt: "hi"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var e types.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	require.Equal(t, "NO_SESSION", e.Reason)

	id := createSession(t, srv.URL, "", "")
	require.NotEmpty(t, id)
	resp, body = httpPostJSON(t, srv.URL+"/v1/generate", types.GenerateRequest{SessionID: id, Prompt: ""})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &e))
	require.Equal(t, "INVALID_ARGUMENT", e.Reason)

	resp, body = httpPostJSON(t, srv.URL+"/v1/streams", types.GenerateRequest{SessionID: "ghost", Prompt: "hi"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	events := decodeNDJSON(t, bytes.NewReader(body))
	require.Len(t, events, 1)
	require.Equal(t, "error", events[0].Type)
	require.Equal(t, "NO_SESSION", events[0].Code)
}

func TestE2E_UnsupportedBackend(t *testing.T) {
	srv, _ := newServer(t, llm.SimulatedConfig{Unsupported: true}, bridge.Config{})

	resp, body := httpPostJSON(t, srv.URL+"/v1/sessions", types.CreateSessionRequest{})
	require.Equal(t, http.StatusNotImplemented, resp.StatusCode, string(body))

	resp, body = httpGet(t, srv.URL+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st types.StatusResponse
	require.NoError(t, json.Unmarshal(body, &st))
	require.False(t, st.Supported)
}

func TestE2E_ModelNotReady(t *testing.T) {
	srv, _ := newServer(t, llm.SimulatedConfig{Status: llm.StatusModelNotReady}, bridge.Config{})
	resp, body := httpGet(t, srv.URL+"/readyz")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "modelNotReady", string(body))
}

// TestE2E_CancelStream cancels a slow stream through DELETE /v1/streams/{id}
// and checks that no terminal event follows.
func TestE2E_CancelStream(t *testing.T) {
	srv, b := newServer(t, llm.SimulatedConfig{Delay: 2 * time.Second}, bridge.Config{})
	id := createSession(t, srv.URL, "slow", "")

	payload, _ := json.Marshal(types.GenerateRequest{SessionID: id, Prompt: "a long answer please"})
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL+"/v1/streams", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	streamID := resp.Header.Get("X-Stream-ID")
	require.NotEmpty(t, streamID)

	del, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, srv.URL+"/v1/streams/"+streamID, nil)
	require.NoError(t, err)
	dresp, err := http.DefaultClient.Do(del)
	require.NoError(t, err)
	dresp.Body.Close()
	require.Equal(t, http.StatusNoContent, dresp.StatusCode)

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		var ev types.StreamEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		require.Equal(t, "chunk", ev.Type, "cancelled stream must not emit a terminal event")
	}
	require.Eventually(t, func() bool { return len(b.ActiveStreams()) == 0 }, 2*time.Second, 10*time.Millisecond)
}

// TestE2E_Backpressure429 verifies SESSION_BUSY once a session's queue is full
// and the wait timeout elapses.
func TestE2E_Backpressure429(t *testing.T) {
	srv, _ := newServer(t, llm.SimulatedConfig{Delay: 300 * time.Millisecond}, bridge.Config{
		MaxQueueDepth: 1,
		MaxWait:       5 * time.Millisecond,
	})
	id := createSession(t, srv.URL, "busy", "")

	var wg sync.WaitGroup
	codes := make(chan int, 3)
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _ := httpPostJSON(t, srv.URL+"/v1/generate", types.GenerateRequest{SessionID: id, Prompt: "hello"})
			codes <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codes)
	var got200, got429 int
	for c := range codes {
		switch c {
		case http.StatusOK:
			got200++
		case http.StatusTooManyRequests:
			got429++
		}
	}
	require.GreaterOrEqual(t, got200, 1)
	require.GreaterOrEqual(t, got429, 1)
}

// TestE2E_ReplaceSession replaces a session while a stream on the old one is
// running: the stream finishes and the new session serves fresh requests.
func TestE2E_ReplaceSession(t *testing.T) {
	srv, b := newServer(t, llm.SimulatedConfig{Delay: 200 * time.Millisecond}, bridge.Config{})
	createSession(t, srv.URL, "s1", "first")

	done := make(chan []types.StreamEvent, 1)
	go func() {
		resp, body := httpPostJSON(t, srv.URL+"/v1/streams", types.GenerateRequest{SessionID: "s1", Prompt: "one"})
		if resp.StatusCode != http.StatusOK {
			done <- nil
			return
		}
		done <- decodeNDJSON(t, bytes.NewReader(body))
	}()
	require.Eventually(t, func() bool { return len(b.ActiveStreams()) == 1 }, time.Second, 5*time.Millisecond)

	createSession(t, srv.URL, "s1", "second")
	resp, body := httpPostJSON(t, srv.URL+"/v1/generate", types.GenerateRequest{SessionID: "s1", Prompt: "two"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "second")

	events := <-done
	require.NotEmpty(t, events)
	require.Equal(t, "end", events[len(events)-1].Type)
}
