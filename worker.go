package hwdecode

// The decode goroutine. Everything here is single-threaded with respect to
// the pipeline handle: creation, initialize, feed, suspend/resume and close
// all happen on this goroutine, so the pipeline needs no locking of its own.

// controller owns the external pipeline handle and sequences its lifecycle.
// It lives entirely on the decode goroutine.
type controller struct {
	d *Decoder

	pipeline     DecodePipeline
	codec        VideoCodec
	initializing bool
	failed       bool

	// Frames drained while the pipeline is still initializing are parked
	// here and fed in order once OnInitialized reports success.
	preInit []pendingFrame
}

// run is the decode goroutine's main loop.
func (d *Decoder) run() {
	c := &controller{d: d}

	for {
		select {
		case <-d.stopC:
			if c.pipeline != nil {
				_ = c.pipeline.Close()
				c.pipeline = nil
			}
			close(d.doneC)
			return

		case <-d.wakeC:
			c.drain()

		case ev := <-d.eventC:
			c.handleEvent(ev)

		case ctrl := <-d.ctrlC:
			c.handleCtrl(ctrl)
		}
	}
}

// drain atomically takes the whole pending queue and forwards it in
// admission order. Each frame's timestamp enters the history before the
// frame is fed, and the lock is never held across a pipeline call.
func (c *controller) drain() {
	d := c.d

	// While the pipeline is initializing, the backlog stays in the bounded
	// queue so its overflow policy keeps admission honest. Only the batch
	// that triggered pipeline creation is parked in preInit, and a single
	// swap never exceeds the queue capacity.
	if c.initializing {
		return
	}

	d.mu.Lock()
	frames := d.queue.DrainAll()
	d.mu.Unlock()

	for i := range frames {
		frame := &frames[i]

		d.mu.Lock()
		if !d.hwAvailable {
			d.mu.Unlock()
			return
		}
		d.history.Push(frame.timestamp)
		d.mu.Unlock()

		c.feed(frame)
	}
}

// feed hands one frame to the pipeline, creating it first if needed.
func (c *controller) feed(frame *pendingFrame) {
	d := c.d

	if c.failed {
		return
	}

	// A keyframe carrying a renegotiated codec starts a fresh pipeline.
	if c.pipeline != nil && frame.codec != c.codec {
		if !frame.keyFrame {
			d.log.Debug().Uint32(lTimestamp, frame.timestamp).
				Msg("dropping delta frame across codec switch")
			return
		}

		d.log.Info().Str(lCodec, frame.codec.String()).Msg("codec switch, recreating pipeline")
		_ = c.pipeline.Close()
		c.pipeline = nil
		c.initializing = false
		c.preInit = c.preInit[:0]
	}

	if c.pipeline == nil {
		if !frame.keyFrame {
			// The pipeline is only ever brought up on a keyframe.
			d.log.Debug().Uint32(lTimestamp, frame.timestamp).
				Msg("no pipeline yet, dropping delta frame")
			return
		}

		listener := &eventListener{eventC: d.eventC, doneC: d.doneC}

		pipeline, err := d.newPipeline(frame.codec, listener)
		if err != nil {
			d.log.Info().Err(err).Msg("pipeline creation failed")
			c.permanentFallback()
			return
		}

		c.pipeline = pipeline
		c.codec = frame.codec
		c.initializing = true

		d.log.Info().Str(lCodec, frame.codec.String()).
			Int(lWidth, frame.width).Int(lHeight, frame.height).
			Msg("initializing pipeline")

		if err := pipeline.Initialize(frame.codec, frame.width, frame.height); err != nil {
			d.log.Info().Err(err).Msg("pipeline initialize failed")
			c.permanentFallback()
			return
		}
	}

	if c.initializing {
		c.preInit = append(c.preInit, *frame)
		return
	}

	if err := c.pipeline.Feed(frame.data, frame.timestamp, frame.keyFrame, frame.renderTimeMs); err != nil {
		d.log.Info().Err(err).Uint32(lTimestamp, frame.timestamp).Msg("pipeline feed failed")
		c.permanentFallback()
	}
}

func (c *controller) handleEvent(ev pipelineEvent) {
	d := c.d

	switch ev.kind {
	case eventInitialized:
		if ev.err != nil {
			d.log.Info().Err(ev.err).Msg("pipeline initialization failed")
			c.permanentFallback()
			return
		}

		c.initializing = false
		d.log.Info().Str(lCodec, c.codec.String()).Msg("pipeline initialized")

		parked := c.preInit
		c.preInit = nil
		for i := range parked {
			if c.failed {
				return
			}
			c.feed(&parked[i])
		}

		// Pick up whatever queued while initialization was in flight.
		if !c.failed {
			c.drain()
		}

	case eventFrame:
		c.deliver(ev.frame)

	case eventSizeChanged:
		d.mu.Lock()
		d.frameWidth = ev.width
		d.frameHeight = ev.height
		d.mu.Unlock()
		d.log.Info().Int(lWidth, ev.width).Int(lHeight, ev.height).
			Msg("pipeline size changed")

	case eventSuspended:
		d.mu.Lock()
		if d.state == StateDecoding || d.state == StateAwaitingKeyFrame {
			d.queue.Clear()
			d.state = StateSuspended
		}
		d.mu.Unlock()
		d.log.Info().Msg("pipeline suspended")

	case eventResumed:
		d.mu.Lock()
		if d.state == StateSuspended {
			d.keyFrameRequired = true
			d.state = StateAwaitingKeyFrame
		}
		d.mu.Unlock()
		d.log.Info().Msg("pipeline resumed")

	case eventError:
		d.log.Info().Err(ev.err).Msg("pipeline error")
		c.permanentFallback()

	case eventKeyFrameRequest:
		d.mu.Lock()
		d.keyFrameRequired = true
		d.mu.Unlock()
		d.log.Info().Msg("pipeline requested keyframe")
	}
}

func (c *controller) handleCtrl(ctrl ctrlKind) {
	if c.pipeline == nil || c.failed {
		return
	}

	switch ctrl {
	case ctrlSuspend:
		_ = c.pipeline.Suspend()
	case ctrlResume:
		_ = c.pipeline.Resume()
	}
}

// deliver routes one decoded frame to the registered callback, unless its
// timestamp was flushed from the history by an overflow.
func (c *controller) deliver(frame *DecodedFrame) {
	d := c.d

	if frame == nil {
		return
	}

	d.mu.Lock()
	if !d.history.Contains(frame.Timestamp) {
		d.stats.FramesDiscarded++
		d.mu.Unlock()
		d.log.Info().Uint32(lTimestamp, frame.Timestamp).
			Msg("discarding decoded frame with stale timestamp")
		return
	}

	callback := d.callback
	d.consecutiveErrors = 0
	d.stats.FramesDelivered++
	d.mu.Unlock()

	if callback != nil {
		callback(frame)
	}
}

// permanentFallback gives up on the hardware path for the session: the
// pipeline is closed, state is cleared, and every subsequent Decode call
// answers StatusFallbackSoftware.
func (c *controller) permanentFallback() {
	d := c.d

	c.failed = true
	c.initializing = false
	c.preInit = nil

	if c.pipeline != nil {
		_ = c.pipeline.Close()
		c.pipeline = nil
	}

	d.mu.Lock()
	d.history.Clear()
	d.fallbackLocked()
	d.mu.Unlock()

	d.log.Info().Str(lState, StateFallbackSoftware.String()).
		Msg("hardware decode unavailable, session falls back to software")
}
