package bridge

// AvailabilityState classifies whether the model capability can be used now.
type AvailabilityState string

const (
	Available            AvailabilityState = "available"
	DeviceNotEligible    AvailabilityState = "deviceNotEligible"
	CapabilityNotEnabled AvailabilityState = "capabilityNotEnabled"
	ModelNotReady        AvailabilityState = "modelNotReady"
	// Unavailable is the catch-all for any state not listed above.
	Unavailable AvailabilityState = "unavailable"
)

// GenerateRequest is one synchronous generation call.
type GenerateRequest struct {
	SessionID string
	Prompt    string
	// Options is the loosely-typed bag received from callers; see ParseOptions.
	Options map[string]any
}

// StreamRequest starts one stream subscription.
type StreamRequest struct {
	SessionID string
	Prompt    string
	Options   map[string]any
}

// StreamState is the lifecycle of a subscription. Every state except
// StreamActive is terminal.
type StreamState int32

const (
	StreamActive StreamState = iota
	StreamCompleted
	StreamCancelled
	StreamFailed
)

func (s StreamState) String() string {
	switch s {
	case StreamActive:
		return "active"
	case StreamCompleted:
		return "completed"
	case StreamCancelled:
		return "cancelled"
	case StreamFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EventType tags a stream event.
type EventType string

const (
	EventChunk EventType = "chunk"
	EventEnd   EventType = "end"
	EventError EventType = "error"
)

// StreamEvent is delivered on a subscription's event channel. A subscription
// delivers zero or more chunk events followed by exactly one end or error
// event, unless it is cancelled, in which case no terminal event follows.
type StreamEvent struct {
	Type    EventType
	Content string
	Code    Code
	Message string
}
