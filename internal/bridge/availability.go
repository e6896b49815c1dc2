package bridge

import (
	"context"

	"modelbridge/internal/llm"
)

// CheckAvailability reports whether the model capability is usable right now.
// It never fails: a missing capability, an unknown raw status or a panicking
// backend all map to Unavailable. The result is not cached.
func (b *Bridge) CheckAvailability(ctx context.Context) (state AvailabilityState) {
	if b.cap == nil {
		return Unavailable
	}
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("availability probe panicked")
			state = Unavailable
		}
	}()
	raw := b.cap.Availability(ctx)
	state = mapAvailability(raw)
	b.log.Debug().Str("raw", string(raw)).Str("state", string(state)).Msg("availability probed")
	return state
}

func mapAvailability(s llm.Status) AvailabilityState {
	switch s {
	case llm.StatusAvailable:
		return Available
	case llm.StatusDeviceNotEligible:
		return DeviceNotEligible
	case llm.StatusNotEnabled:
		return CapabilityNotEnabled
	case llm.StatusModelNotReady:
		return ModelNotReady
	default:
		return Unavailable
	}
}
