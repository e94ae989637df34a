package hwdecode

// CodecCapability describes what the platform's hardware decoder can do for
// one codec. A zero value means the codec has no hardware path at all.
type CodecCapability struct {
	Supported        bool // Hardware decode path exists
	MaxSpatialLayers int  // SVC spatial layers the decoder accepts (1 = base only)
	MaxWidth         int  // Largest coded width, 0 = unbounded
	MaxHeight        int  // Largest coded height, 0 = unbounded
}

// CapabilitySet is the per-codec hardware capability table handed to the
// bridge at construction. It replaces any platform-global capability lookup:
// whoever builds the Decoder decides what the hardware claims to support.
type CapabilitySet map[VideoCodec]CodecCapability

// Supports returns true if the set has a hardware path for codec.
func (s CapabilitySet) Supports(codec VideoCodec) bool {
	return s[codec].Supported
}

// SpatialLayerOK returns true if the hardware decoder for codec accepts a
// frame on the given spatial layer. Layer 0 is always acceptable for a
// supported codec; higher layers require explicit SVC support.
func (s CapabilitySet) SpatialLayerOK(codec VideoCodec, layer int) bool {
	cap, ok := s[codec]
	if !ok || !cap.Supported {
		return false
	}
	if layer == 0 {
		return true
	}
	return layer < cap.MaxSpatialLayers
}

// DefaultCapabilities returns a capability set matching a typical embedded
// hardware decoder: VP8, VP9 and H.264 single-layer decode. VP9 spatial
// scalability is left off because hardware VP9 decoders generally cannot
// handle more than one spatial layer.
func DefaultCapabilities() CapabilitySet {
	return CapabilitySet{
		VideoCodecVP8:  {Supported: true, MaxSpatialLayers: 1},
		VideoCodecVP9:  {Supported: true, MaxSpatialLayers: 1},
		VideoCodecH264: {Supported: true, MaxSpatialLayers: 1},
	}
}
