package hwdecode

import (
	"strings"

	"github.com/pion/webrtc/v4"
)

// VideoCodec identifies the video codec type.
type VideoCodec int

const (
	VideoCodecUnknown VideoCodec = iota
	VideoCodecVP8
	VideoCodecVP9
	VideoCodecH264
	VideoCodecAV1
)

func (c VideoCodec) String() string {
	switch c {
	case VideoCodecVP8:
		return "VP8"
	case VideoCodecVP9:
		return "VP9"
	case VideoCodecH264:
		return "H264"
	case VideoCodecAV1:
		return "AV1"
	default:
		return "Unknown"
	}
}

// MimeType returns the MIME type for this codec.
func (c VideoCodec) MimeType() string {
	switch c {
	case VideoCodecVP8:
		return webrtc.MimeTypeVP8
	case VideoCodecVP9:
		return webrtc.MimeTypeVP9
	case VideoCodecH264:
		return webrtc.MimeTypeH264
	case VideoCodecAV1:
		return webrtc.MimeTypeAV1
	default:
		return ""
	}
}

// ClockRate returns the RTP clock rate for this codec.
func (c VideoCodec) ClockRate() uint32 {
	// All video codecs use 90kHz clock
	return 90000
}

// ParseMimeType maps a negotiated MIME type (or bare SDP payload name such
// as "VP8") to a VideoCodec. Matching is case-insensitive.
func ParseMimeType(mimeType string) VideoCodec {
	name := mimeType
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	switch {
	case strings.EqualFold(name, "VP8"):
		return VideoCodecVP8
	case strings.EqualFold(name, "VP9"):
		return VideoCodecVP9
	case strings.EqualFold(name, "H264"):
		return VideoCodecH264
	case strings.EqualFold(name, "AV1"):
		return VideoCodecAV1
	default:
		return VideoCodecUnknown
	}
}
