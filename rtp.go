package hwdecode

import (
	"errors"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4/pkg/media/samplebuilder"
	"github.com/rs/zerolog"
)

// ErrNoDecoder means RTPIngressConfig.Decoder was nil.
var ErrNoDecoder = errors.New("decoder is required")

// RTPIngressConfig configures an RTPIngress.
type RTPIngressConfig struct {
	// Codec selects the depacketizer. Must match the Decoder's codec.
	Codec VideoCodec

	// Decoder receives the assembled frames.
	Decoder *Decoder

	// MaxLate is how many packets the sample builder buffers while waiting
	// for reordered packets. Zero means 64.
	MaxLate uint16

	// Logger receives ingress diagnostics. The zero value disables logging.
	Logger zerolog.Logger
}

// RTPIngress assembles encoded frames from an RTP packet stream and feeds
// them to a Decoder, for callers that sit directly on RTP rather than on a
// frame-based receive path. Packets may arrive out of order; frames are
// emitted in timestamp order once complete.
//
// Not goroutine-safe: WriteRTP must be called from a single goroutine,
// normally the RTP read loop.
type RTPIngress struct {
	codec   VideoCodec
	decoder *Decoder
	builder *samplebuilder.SampleBuilder
	maxLate int
	log     zerolog.Logger

	// Highest VP9 spatial-layer id seen per RTP timestamp, so the gate's
	// spatial-layer rule sees what the wire actually carried.
	vp9SID map[uint32]int
}

// NewRTPIngress creates an ingress for the given codec.
func NewRTPIngress(config RTPIngressConfig) (*RTPIngress, error) {
	if config.Decoder == nil {
		return nil, ErrNoDecoder
	}

	var depacketizer rtp.Depacketizer
	switch config.Codec {
	case VideoCodecVP8:
		depacketizer = &codecs.VP8Packet{}
	case VideoCodecVP9:
		depacketizer = &codecs.VP9Packet{}
	case VideoCodecH264:
		depacketizer = &codecs.H264Packet{}
	case VideoCodecAV1:
		depacketizer = &codecs.AV1Depacketizer{}
	default:
		return nil, ErrCodecNotSupported
	}

	maxLate := config.MaxLate
	if maxLate == 0 {
		maxLate = 64
	}

	in := &RTPIngress{
		codec:   config.Codec,
		decoder: config.Decoder,
		builder: samplebuilder.New(maxLate, depacketizer, config.Codec.ClockRate()),
		maxLate: int(maxLate),
		log:     config.Logger.With().Str("pkg", "hwdecode").Str("codec", config.Codec.String()).Logger(),
	}

	if config.Codec == VideoCodecVP9 {
		in.vp9SID = make(map[uint32]int)
	}

	return in, nil
}

// WriteRTP pushes one RTP packet. When the packet completes one or more
// frames, they are handed to the decoder in order and the last decode
// status is returned; otherwise StatusNoOutput.
func (in *RTPIngress) WriteRTP(pkt *rtp.Packet) DecodeStatus {
	if in.vp9SID != nil {
		in.trackVP9Layer(pkt)
	}

	in.builder.Push(pkt)

	status := StatusNoOutput

	for sample := in.builder.Pop(); sample != nil; sample = in.builder.Pop() {
		frame := &EncodedFrame{
			Data:      sample.Data,
			Timestamp: sample.PacketTimestamp,
		}

		if IsKeyframe(in.codec, sample.Data) {
			frame.FrameType = FrameTypeKey
		} else {
			frame.FrameType = FrameTypeDelta
		}

		if in.vp9SID != nil {
			frame.SpatialLayerID = in.vp9SID[sample.PacketTimestamp]
			delete(in.vp9SID, sample.PacketTimestamp)
		}

		missing := sample.PrevDroppedPackets > 0
		if missing {
			in.log.Debug().Uint32(lTimestamp, sample.PacketTimestamp).
				Uint16("droppedPackets", sample.PrevDroppedPackets).
				Msg("assembled frame after packet loss")
		}

		status = in.decoder.Decode(frame, missing, 0)
	}

	return status
}

// trackVP9Layer records the spatial-layer id carried in a VP9 payload
// descriptor so the assembled frame can be tagged with it.
func (in *RTPIngress) trackVP9Layer(pkt *rtp.Packet) {
	var header codecs.VP9Packet
	if _, err := header.Unmarshal(pkt.Payload); err != nil {
		return
	}

	// SID is only meaningful when the layer-indices flag is present.
	if header.L && int(header.SID) > in.vp9SID[pkt.Timestamp] {
		in.vp9SID[pkt.Timestamp] = int(header.SID)
	}

	// Bound the map against timestamps whose frames never complete.
	if len(in.vp9SID) > 4*in.maxLate {
		for ts := range in.vp9SID {
			if ts != pkt.Timestamp {
				delete(in.vp9SID, ts)
			}
		}
	}
}
