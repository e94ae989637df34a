package hwdecode

// Bitstream inspection helpers. The ingest gate uses these to classify
// frames whose FrameType was not set by the caller, and the RTP ingress uses
// them to tag assembled samples. Detection is best-effort: it only reads the
// first few bytes of a payload and never allocates.

// DetectVideoCodec detects the video codec from raw bitstream data.
// Supports detection of:
//   - H.264/AVC: Annex-B format (ITU-T H.264) and AVCC format (ISO/IEC 14496-15)
//   - VP8: RFC 6386 - VP8 Data Format and Decoding Guide
//   - VP9: VP9 Bitstream & Decoding Process Specification
//   - AV1: AV1 Bitstream & Decoding Process Specification
//
// Returns VideoCodecUnknown if the codec cannot be determined.
func DetectVideoCodec(data []byte) VideoCodec {
	if len(data) < 4 {
		return VideoCodecUnknown
	}

	if isAnnexBStartCode(data) && isH264NALType(annexBNALType(data)) {
		return VideoCodecH264
	}

	if isAVCCFormat(data) {
		return VideoCodecH264
	}

	if isVP8Keyframe(data) {
		return VideoCodecVP8
	}

	if isVP9Frame(data) {
		return VideoCodecVP9
	}

	if isAV1OBU(data) {
		return VideoCodecAV1
	}

	return VideoCodecUnknown
}

// IsKeyframe reports whether data starts a self-contained frame for codec.
// For H.264 this means an IDR slice (or an SPS leading into one); for VP8
// and VP9 the frame-type bit of the uncompressed header; for AV1 the
// presence of a sequence header OBU.
func IsKeyframe(codec VideoCodec, data []byte) bool {
	switch codec {
	case VideoCodecVP8:
		return isVP8Keyframe(data)
	case VideoCodecVP9:
		return isVP9Keyframe(data)
	case VideoCodecH264:
		return isH264Keyframe(data)
	case VideoCodecAV1:
		return isAV1Keyframe(data)
	default:
		return false
	}
}

// isAnnexBStartCode checks for H.264 Annex-B start codes.
// Per ITU-T H.264 Annex B, NAL units are prefixed with either a 4-byte
// start code 0x00000001 or a 3-byte start code 0x000001.
func isAnnexBStartCode(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	if data[0] == 0 && data[1] == 0 && data[2] == 0 && data[3] == 1 {
		return true
	}
	return data[0] == 0 && data[1] == 0 && data[2] == 1
}

// annexBNALType extracts the NAL unit type following the first start code.
// Per ITU-T H.264 Section 7.3.1 the type lives in the lower 5 bits of the
// NAL header byte.
func annexBNALType(data []byte) byte {
	offset := 3
	if len(data) >= 4 && data[2] == 0 {
		offset = 4
	}
	if len(data) <= offset {
		return 0
	}
	return data[offset] & 0x1F
}

// isH264NALType checks if a NAL type is valid H.264 (ITU-T H.264 Table 7-1).
func isH264NALType(nalType byte) bool {
	return (nalType >= 1 && nalType <= 12) || (nalType >= 19 && nalType <= 21)
}

// isAVCCFormat checks for AVCC (length-prefixed) format per ISO/IEC 14496-15:
// a 4-byte big-endian NAL length that is plausible for the buffer.
func isAVCCFormat(data []byte) bool {
	if len(data) < 5 {
		return false
	}
	length := int(data[0])<<24 | int(data[1])<<16 | int(data[2])<<8 | int(data[3])
	return length > 0 && length <= len(data)-4 && isH264NALType(data[4]&0x1F)
}

// isH264Keyframe scans the leading NAL units for an IDR slice (type 5) or a
// parameter set (SPS, type 7) that conventionally precedes one. Both Annex-B
// and AVCC framing are handled.
func isH264Keyframe(data []byte) bool {
	if isAnnexBStartCode(data) {
		// Walk start codes; keyframe access units lead with SPS/PPS or IDR.
		for i := 0; i+4 < len(data); i++ {
			if data[i] != 0 || data[i+1] != 0 {
				continue
			}
			var nal byte
			if data[i+2] == 1 && i+3 < len(data) {
				nal = data[i+3] & 0x1F
			} else if data[i+2] == 0 && i+4 < len(data) && data[i+3] == 1 {
				nal = data[i+4] & 0x1F
			} else {
				continue
			}
			switch nal {
			case 5, 7:
				return true
			case 1, 2, 3, 4:
				// Hit a non-IDR slice before any IDR/SPS: a delta frame.
				return false
			}
		}
		return false
	}

	// AVCC: walk length-prefixed NAL units.
	for i := 0; i+4 <= len(data); {
		length := int(data[i])<<24 | int(data[i+1])<<16 | int(data[i+2])<<8 | int(data[i+3])
		if length <= 0 || i+4+length > len(data) {
			return false
		}
		switch data[i+4] & 0x1F {
		case 5, 7:
			return true
		case 1, 2, 3, 4:
			return false
		}
		i += 4 + length
	}
	return false
}

// isVP8Keyframe checks for the VP8 keyframe signature.
// Per RFC 6386 Section 9.1: frame tag bit 0 is 0 for keyframes, and
// keyframes carry the start code 0x9D 0x01 0x2A after the 3-byte tag.
func isVP8Keyframe(data []byte) bool {
	if len(data) < 6 {
		return false
	}
	if data[0]&0x01 != 0 {
		return false
	}
	return data[3] == 0x9D && data[4] == 0x01 && data[5] == 0x2A
}

// isVP9Frame checks for the VP9 frame marker.
// Per the VP9 Bitstream Specification Section 6.2 the uncompressed header
// starts with frame_marker = 0b10 in the top two bits.
func isVP9Frame(data []byte) bool {
	if len(data) < 3 {
		return false
	}
	return (data[0]>>6)&0x03 == 0x02
}

// isVP9Keyframe reads the frame_type bit of the VP9 uncompressed header.
// For profiles 0-2 the first byte is: frame_marker(2) profile_low(1)
// profile_high(1) show_existing_frame(1) frame_type(1) show_frame(1)
// error_resilient(1); frame_type 0 means keyframe.
func isVP9Keyframe(data []byte) bool {
	if !isVP9Frame(data) {
		return false
	}
	if data[0]&0x08 != 0 { // show_existing_frame: not a coded frame at all
		return false
	}
	return data[0]&0x04 == 0
}

// isAV1OBU checks for an AV1 OBU (Open Bitstream Unit) header.
// Per the AV1 Bitstream Specification Section 5.3.2: forbidden bit 0 and a
// valid obu_type (1-8 or 15).
func isAV1OBU(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	if (data[0]>>7)&0x01 != 0 {
		return false
	}
	obuType := (data[0] >> 3) & 0x0F
	return (obuType >= 1 && obuType <= 8) || obuType == 15
}

// isAV1Keyframe treats a temporal unit leading with a sequence header OBU
// (type 1, possibly after a temporal delimiter, type 2) as a keyframe.
// Random-access points must carry the sequence header.
func isAV1Keyframe(data []byte) bool {
	for i := 0; i < len(data)-1; {
		if (data[i]>>7)&0x01 != 0 {
			return false
		}
		obuType := (data[i] >> 3) & 0x0F
		switch obuType {
		case 1:
			return true
		case 2:
			// Temporal delimiter: skip header (+ size byte if present) and
			// keep looking.
			i++
			if data[i-1]&0x02 != 0 { // obu_has_size_field
				i++ // delimiter payload size is 0
			}
		default:
			return false
		}
	}
	return false
}
