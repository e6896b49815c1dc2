package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelbridge/internal/bridge"
	"modelbridge/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *bridge.Bridge implements it.
type Service interface {
	CheckAvailability(ctx context.Context) bridge.AvailabilityState
	CreateSession(ctx context.Context, id, instructions string) (string, error)
	Session(id string) (*bridge.Session, error)
	Generate(ctx context.Context, req bridge.GenerateRequest) (string, error)
	Subscribe(ctx context.Context, req bridge.StreamRequest) *bridge.Subscription
	CancelStream(id string) error
	Status(ctx context.Context) types.StatusResponse
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints; NDJSON streams are not in the default type list.
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsMethods(),
			AllowedHeaders: corsHeaders(),
			ExposedHeaders: []string{"X-Stream-ID", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	h := &handlers{svc: svc}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/availability", h.availability)
		r.Post("/sessions", h.createSession)
		r.Get("/sessions/{id}", h.getSession)
		r.Post("/generate", h.generate)
		r.Post("/streams", h.stream)
		r.Delete("/streams/{id}", h.cancelStream)
		r.Get("/ws", h.websocket)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status(r.Context()))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if st := svc.CheckAvailability(r.Context()); st != bridge.Available {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(st))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

// decodeJSON enforces the content type and body limit. An empty body decodes
// to the zero value when allowEmpty is set. It writes the error response
// itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", string(bridge.CodeInvalidArgument))
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		// MaxBytesReader errors land here too; still 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body", string(bridge.CodeInvalidArgument))
		return false
	}
	return true
}

// decodeOptions turns the raw options field into the loose map the bridge
// parses. Anything that is not a JSON object yields nil.
func decodeOptions(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	// numbers stay json.Number; bridge.ParseOptions understands them
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil
	}
	return m
}

// canceled reports whether the request or the server is going away, in
// which case no response is written.
func canceled(r *http.Request) bool {
	return r.Context().Err() != nil || serverBaseCtx.Err() != nil
}

// availability godoc
// @Summary      Check model availability
// @Description  Reports whether the model capability can be used right now. Never fails.
// @Tags         bridge
// @Produce      json
// @Success      200 {object} types.AvailabilityResponse
// @Router       /v1/availability [get]
func (h *handlers) availability(w http.ResponseWriter, r *http.Request) {
	st := h.svc.CheckAvailability(r.Context())
	writeJSON(w, http.StatusOK, types.AvailabilityResponse{Availability: string(st)})
}

// createSession godoc
// @Summary      Create a session
// @Description  Creates a session bound to optional instructions. Reusing an id replaces the previous session.
// @Tags         bridge
// @Accept       json
// @Produce      json
// @Param        request body types.CreateSessionRequest false "Session request"
// @Success      201 {object} types.CreateSessionResponse
// @Failure      400 {object} types.ErrorResponse
// @Failure      500 {object} types.ErrorResponse
// @Failure      501 {object} types.ErrorResponse
// @Failure      503 {object} types.ErrorResponse
// @Router       /v1/sessions [post]
func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var req types.CreateSessionRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	id, err := h.svc.CreateSession(r.Context(), req.SessionID, req.Instructions)
	if err != nil {
		status := writeBridgeError(w, err)
		reqEvent(r, LevelError).Int("status", status).Err(err).Msg("create session")
		return
	}
	reqEvent(r, LevelInfo).Str("session", id).Msg("session created")
	writeJSON(w, http.StatusCreated, types.CreateSessionResponse{SessionID: id})
}

// getSession godoc
// @Summary      Describe a session
// @Tags         bridge
// @Produce      json
// @Param        id path string true "Session id"
// @Success      200 {object} types.SessionInfo
// @Failure      404 {object} types.ErrorResponse
// @Router       /v1/sessions/{id} [get]
func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Session(chi.URLParam(r, "id"))
	if err != nil {
		writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bridge.SessionInfo(s))
}

// generate godoc
// @Summary      Generate a response
// @Description  Runs one synchronous generation on a session and returns the complete text.
// @Tags         bridge
// @Accept       json
// @Produce      json
// @Param        request body types.GenerateRequest true "Generation request"
// @Success      200 {object} types.GenerateResponse
// @Failure      400 {object} types.ErrorResponse
// @Failure      404 {object} types.ErrorResponse
// @Failure      429 {object} types.ErrorResponse
// @Failure      502 {object} types.ErrorResponse
// @Router       /v1/generate [post]
func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	start := time.Now()
	reqEvent(r, LevelInfo).Str("session", req.SessionID).Msg("generate start")
	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	text, err := h.svc.Generate(ctx, bridge.GenerateRequest{
		SessionID: req.SessionID,
		Prompt:    req.Prompt,
		Options:   decodeOptions(req.Options),
	})
	if err != nil {
		// If context was canceled (client disconnect), just return.
		if canceled(r) {
			return
		}
		status := writeBridgeError(w, err)
		reqEvent(r, LevelInfo).Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("generate end")
		return
	}
	reqEvent(r, LevelInfo).Int("status", http.StatusOK).Dur("dur", time.Since(start)).Msg("generate end")
	writeJSON(w, http.StatusOK, types.GenerateResponse{Content: text})
}
