package httpapi

import (
	"encoding/json"
	"net/http"

	"modelbridge/internal/bridge"
	"modelbridge/pkg/types"
)

// statusFor maps a bridge error code to an HTTP status.
func statusFor(code bridge.Code) int {
	switch code {
	case bridge.CodeInvalidArgument:
		return http.StatusBadRequest
	case bridge.CodeNoSession:
		return http.StatusNotFound
	case bridge.CodeNoModel:
		return http.StatusServiceUnavailable
	case bridge.CodeLoadFailed:
		return http.StatusInternalServerError
	case bridge.CodeGenerationFailed, bridge.CodeStreamError:
		return http.StatusBadGateway
	case bridge.CodeUnsupported:
		return http.StatusNotImplemented
	case bridge.CodeSessionBusy:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeBridgeError writes err with the status derived from its code.
func writeBridgeError(w http.ResponseWriter, err error) int {
	code := bridge.CodeOf(err)
	status := statusFor(code)
	if code == bridge.CodeSessionBusy {
		IncrementBackpressure("session_busy")
	}
	writeJSONError(w, status, err.Error(), string(code))
	return status
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status, Reason: reason})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger().Error().Err(err).Msg("encode response")
	}
}
