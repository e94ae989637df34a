// Package hwdecode bridges a synchronous per-frame decode interface to an
// asynchronous hardware decode pipeline.
//
// The bridge sits between a real-time receive path (one encoded frame per
// Decode call, no blocking allowed) and a platform decoder that is created,
// initialized, fed, suspended, and torn down asynchronously. It does not
// decode anything itself: admitted frames are copied, queued, and handed to
// the pipeline in arrival order; decoded output flows back through a single
// registered callback.
//
// # Architecture
//
//	Decode() -> ingest gate -> pending queue -> drain goroutine -> DecodePipeline
//	DecodePipeline callbacks -> event channel -> drain goroutine -> frame callback
//
// Two goroutines matter: the caller's (real-time, lock held only for queue
// push) and the decode goroutine, which owns the pipeline handle outright.
// Pipeline callbacks may arrive on any goroutine; they are posted onto the
// decode goroutine as events and never touch shared state directly.
//
// # Recovery model
//
// Missing frames, non-key frames while a key frame is required, and queue
// overflow are transient: the bridge reports an error status, the sender
// reacts with a fresh key frame, and decoding resumes. Unsupported codec
// configurations, pipeline failures, and too many consecutive transient
// errors are permanent: Decode returns StatusFallbackSoftware and the caller
// is expected to switch to its own software decoder for the rest of the
// session.
//
// # RTP ingress
//
// RTPIngress is an optional front end that assembles encoded frames from
// RTP packets (pion samplebuilder + depacketizers) and feeds them to a
// Decoder, for callers that sit directly on an RTP stream. TrackConsumer
// goes one step further and pumps a webrtc.TrackRemote through the ingress,
// answering the decoder's keyframe requests with RTCP PLI.
package hwdecode
