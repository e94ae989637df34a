package hwdecode

// DecodeStatus is the result code of the caller-facing adapter surface.
// Values map one-to-one onto the standard hardware-decoder adapter contract:
// everything except StatusOk and StatusFallbackSoftware means "try again",
// with an error status doubling as an upstream key-frame request.
type DecodeStatus int

const (
	StatusOk DecodeStatus = iota
	StatusError
	StatusNoOutput
	StatusUninitialized
	StatusErrParameter
	StatusFallbackSoftware
)

func (s DecodeStatus) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusError:
		return "error"
	case StatusNoOutput:
		return "no-output"
	case StatusUninitialized:
		return "uninitialized"
	case StatusErrParameter:
		return "err-parameter"
	case StatusFallbackSoftware:
		return "fallback-software"
	default:
		return "unknown"
	}
}

// DecoderState is the bridge's lifecycle state.
type DecoderState int

const (
	StateUninitialized    DecoderState = iota // InitDecode not yet called
	StateAwaitingKeyFrame                     // Dropping delta frames until a keyframe arrives
	StateDecoding                             // Feeding the pipeline
	StateSuspended                            // Pipeline suspended by the caller
	StateFallbackSoftware                     // Hardware path permanently unusable this session
	StateReleased                             // Torn down
)

func (s DecoderState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingKeyFrame:
		return "awaiting-key-frame"
	case StateDecoding:
		return "decoding"
	case StateSuspended:
		return "suspended"
	case StateFallbackSoftware:
		return "fallback-software"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}
