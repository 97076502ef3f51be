package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/reflections-ai/reflections/pkg/audio"
)

// endpointLoop watches the speech activity timestamps and finalizes the
// utterance once the speaker has been quiet long enough. Finalize fires only
// when the utterance lasted at least MinUtterance and the trailing silence
// has lasted at least SilenceHangover.
func (c *Controller) endpointLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.EndpointTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		started := c.vadStartedAt
		lastSpeech := c.vadLastSpeechAt
		busy := c.finalizing || c.closed
		c.mu.Unlock()

		if busy || started.IsZero() {
			continue
		}
		now := time.Now()
		if now.Sub(started) < c.cfg.MinUtterance {
			continue
		}
		if now.Sub(lastSpeech) < c.cfg.SilenceHangover {
			continue
		}
		c.startFinalize(reasonEndpoint)
	}
}

// partialLoop periodically transcribes the tail of the capture buffer and
// streams interim captions. Transcriptions are single-flight: a tick that
// arrives while a previous transcription is still running is skipped rather
// than queued, so a slow model never builds a backlog.
func (c *Controller) partialLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PartialInterval)
	defer ticker.Stop()

	var inflight atomic.Bool
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		active := c.recording && !c.finalizing && !c.closed
		sampleRate := c.sampleRate
		c.mu.Unlock()
		if !active {
			continue
		}
		if !inflight.CompareAndSwap(false, true) {
			continue
		}

		windowMs := int(c.cfg.PartialWindow / time.Millisecond)
		tail := c.buf.TailWindow(windowMs, sampleRate)
		total := c.buf.TotalReceived()
		if len(tail) == 0 {
			inflight.Store(false)
			continue
		}

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			defer inflight.Store(false)
			c.emitPartial(ctx, tail, sampleRate, total)
		}()
	}
}

// emitPartial produces one interim caption. Without a transcriber it emits a
// stub caption showing elapsed capture time; transcription failures are
// logged and skipped, never surfaced to the client.
func (c *Controller) emitPartial(ctx context.Context, tail []byte, sampleRate int, totalReceived int64) {
	var text string
	if c.collab.STT == nil {
		elapsed := audio.DurationSeconds(totalReceived, sampleRate)
		text = fmt.Sprintf("(stub) listening… ~%.1fs", elapsed)
	} else {
		ctx, cancel := context.WithTimeout(ctx, defaultPartialTimeout)
		defer cancel()
		out, err := c.collab.STT.Transcribe(ctx, tail, sampleRate)
		if err != nil {
			c.log.Debug("interim transcription failed", "error", err)
			return
		}
		if out == "" {
			return
		}
		text = out
	}

	// Stale captions are dropped: the utterance may have been finalized or
	// cancelled while the model ran. Unchanged captions are not re-sent.
	c.mu.Lock()
	stale := !c.recording || c.finalizing || c.closed
	duplicate := text == c.latestPartial
	if !stale && !duplicate {
		c.latestPartial = text
	}
	c.mu.Unlock()
	if stale || duplicate {
		return
	}

	c.send(newPartialTranscript(text, totalReceived))
}
