package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"modelbridge/internal/bridge"
	"modelbridge/pkg/types"
)

func wireEvent(ev bridge.StreamEvent) types.StreamEvent {
	return types.StreamEvent{
		Type:    string(ev.Type),
		Content: ev.Content,
		Code:    string(ev.Code),
		Message: ev.Message,
	}
}

// stream godoc
// @Summary      Stream a response
// @Description  Starts a stream on a session and writes NDJSON events: chunk lines, then exactly one end or error line. The X-Stream-ID header carries the handle for DELETE /v1/streams/{id}. A request rejected before the stream starts gets the mapped HTTP status and a single error line.
// @Tags         bridge
// @Accept       json
// @Produce      application/x-ndjson
// @Param        request body types.GenerateRequest true "Stream request"
// @Success      200 {object} types.StreamEvent
// @Failure      400 {object} types.StreamEvent
// @Failure      404 {object} types.StreamEvent
// @Router       /v1/streams [post]
func (h *handlers) stream(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	sub := h.svc.Subscribe(ctx, bridge.StreamRequest{
		SessionID: req.SessionID,
		Prompt:    req.Prompt,
		Options:   decodeOptions(req.Options),
	})
	w.Header().Set("Content-Type", "application/x-ndjson")
	if sub.ID() == "" {
		// rejected: the only event is the error
		ev, ok := <-sub.Events()
		if !ok {
			writeJSONError(w, http.StatusInternalServerError, "stream rejected", string(bridge.CodeStreamError))
			return
		}
		w.WriteHeader(statusFor(ev.Code))
		_ = json.NewEncoder(w).Encode(wireEvent(ev))
		reqEvent(r, LevelInfo).Str("code", string(ev.Code)).Msg("stream rejected")
		return
	}
	defer sub.Cancel()

	w.Header().Set("X-Stream-ID", sub.ID())
	w.WriteHeader(http.StatusOK)
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	if flush != nil {
		flush()
	}
	start := time.Now()
	// Optional logging of NDJSON lines
	writer := io.Writer(w)
	if requestLogLevel(r) >= LevelDebug {
		writer = io.MultiWriter(w, &loggingLineWriter{stream: sub.ID()})
	}
	reqEvent(r, LevelInfo).Str("stream", sub.ID()).Str("session", sub.SessionID()).Msg("stream start")
	enc := json.NewEncoder(writer)
	for ev := range sub.Events() {
		// admission runs after the 200 is sent, so busy shows up as an event
		if ev.Type == bridge.EventError && ev.Code == bridge.CodeSessionBusy {
			IncrementBackpressure("session_busy")
		}
		if err := enc.Encode(wireEvent(ev)); err != nil {
			// client went away; the deferred Cancel stops the task
			return
		}
		if flush != nil {
			flush()
		}
	}
	<-sub.Done()
	reqEvent(r, LevelInfo).Str("stream", sub.ID()).Str("state", sub.State().String()).Dur("dur", time.Since(start)).Msg("stream end")
}

// cancelStream godoc
// @Summary      Cancel a stream
// @Description  Cancels a stream by handle. Unknown and finished handles are a no-op.
// @Tags         bridge
// @Param        id path string true "Stream id"
// @Success      204
// @Failure      501 {object} types.ErrorResponse
// @Router       /v1/streams/{id} [delete]
func (h *handlers) cancelStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.CancelStream(id); err != nil {
		writeBridgeError(w, err)
		return
	}
	reqEvent(r, LevelInfo).Str("stream", id).Msg("stream cancel")
	w.WriteHeader(http.StatusNoContent)
}
