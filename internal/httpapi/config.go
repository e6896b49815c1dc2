package httpapi

import "time"

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
// Default remains 1 MiB.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// wsWriteTimeout bounds a single WebSocket frame write.
var wsWriteTimeout = 10 * time.Second

// SetWSWriteTimeout sets the per-frame WebSocket write deadline (<=0 restores the default).
func SetWSWriteTimeout(d time.Duration) {
	if d <= 0 {
		d = 10 * time.Second
	}
	wsWriteTimeout = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server. The same
// origin list gates WebSocket upgrades.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}

func corsMethods() []string {
	if len(corsAllowedMethods) == 0 {
		return []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	return corsAllowedMethods
}

func corsHeaders() []string {
	if len(corsAllowedHeaders) == 0 {
		return []string{"Content-Type", "X-Log-Level", "X-Request-Id"}
	}
	return corsAllowedHeaders
}
