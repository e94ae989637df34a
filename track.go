package hwdecode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// ErrHardwareFallback is returned by TrackConsumer.Consume when the decoder
// has permanently fallen back: the caller should rebuild its receive path on
// a software decoder.
var ErrHardwareFallback = errors.New("hardware decode fell back to software")

// RTCPWriter sends RTCP packets back towards the remote sender. Satisfied by
// *webrtc.PeerConnection.
type RTCPWriter interface {
	WriteRTCP(pkts []rtcp.Packet) error
}

// TrackConsumerConfig configures a TrackConsumer.
type TrackConsumerConfig struct {
	// Track is the remote video track to consume.
	Track *webrtc.TrackRemote

	// Decoder receives the assembled frames.
	Decoder *Decoder

	// RTCP, when set, is used to send PLI towards the sender whenever the
	// decoder rejects a frame waiting for a keyframe. Normally the track's
	// peer connection.
	RTCP RTCPWriter

	// PLIInterval rate-limits keyframe requests. Zero means 500ms.
	PLIInterval time.Duration

	// MaxLate is passed through to the RTP ingress.
	MaxLate uint16

	// Logger receives consumer diagnostics. The zero value disables logging.
	Logger zerolog.Logger
}

// TrackConsumer pumps a remote WebRTC track through an RTPIngress into a
// Decoder, requesting keyframes over RTCP when the decoder asks for them.
// It is the glue between a peer connection's OnTrack callback and the
// decode bridge.
type TrackConsumer struct {
	track   *webrtc.TrackRemote
	decoder *Decoder
	ingress *RTPIngress
	rtcp    RTCPWriter
	pliGap  time.Duration
	log     zerolog.Logger

	lastPLI time.Time
}

// NewTrackConsumer creates a consumer for the given remote track. The track's
// negotiated MIME type selects the depacketizer; tracks carrying a codec the
// bridge doesn't know are rejected.
func NewTrackConsumer(config TrackConsumerConfig) (*TrackConsumer, error) {
	if config.Track == nil {
		return nil, errors.New("track is required")
	}
	if config.Decoder == nil {
		return nil, ErrNoDecoder
	}

	codec := ParseMimeType(config.Track.Codec().MimeType)
	if codec == VideoCodecUnknown {
		return nil, fmt.Errorf("%w: %s", ErrCodecNotSupported, config.Track.Codec().MimeType)
	}

	ingress, err := NewRTPIngress(RTPIngressConfig{
		Codec:   codec,
		Decoder: config.Decoder,
		MaxLate: config.MaxLate,
		Logger:  config.Logger,
	})
	if err != nil {
		return nil, err
	}

	pliGap := config.PLIInterval
	if pliGap <= 0 {
		pliGap = 500 * time.Millisecond
	}

	return &TrackConsumer{
		track:   config.Track,
		decoder: config.Decoder,
		ingress: ingress,
		rtcp:    config.RTCP,
		pliGap:  pliGap,
		log: config.Logger.With().Str("pkg", "hwdecode").
			Str(lCodec, codec.String()).Logger(),
	}, nil
}

// Consume reads the track until it ends or ctx is cancelled. Returns nil on
// normal track end, ErrHardwareFallback when the decoder gives up on the
// hardware path, and the read error otherwise. Blocking: run it on its own
// goroutine, typically from OnTrack.
func (tc *TrackConsumer) Consume(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// TrackRemote has no deadline support, so a cancelled ctx is only
		// noticed on the next packet. Acceptable: live tracks deliver
		// packets continuously.
		pkt, _, err := tc.track.ReadRTP()
		if err != nil {
			if errors.Is(err, io.EOF) {
				tc.log.Info().Msg("track ended")
				return nil
			}
			return err
		}

		switch tc.ingress.WriteRTP(pkt) {
		case StatusError:
			// The gate is waiting for a keyframe; ask the sender for one.
			tc.requestKeyFrame()

		case StatusFallbackSoftware:
			return ErrHardwareFallback

		case StatusUninitialized:
			return errors.New("decoder released while consuming track")
		}
	}
}

// requestKeyFrame sends a PLI towards the sender, at most once per interval.
func (tc *TrackConsumer) requestKeyFrame() {
	if tc.rtcp == nil {
		return
	}

	now := time.Now()
	if now.Sub(tc.lastPLI) < tc.pliGap {
		return
	}
	tc.lastPLI = now

	err := tc.rtcp.WriteRTCP([]rtcp.Packet{
		&rtcp.PictureLossIndication{MediaSSRC: uint32(tc.track.SSRC())},
	})
	if err != nil {
		tc.log.Debug().Err(err).Msg("PLI send failed")
		return
	}

	tc.log.Debug().Msg("PLI sent")
}
