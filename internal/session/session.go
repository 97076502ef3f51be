// Package session implements the live voice session: a duplex connection
// carrying PCM16LE audio and JSON control frames in, and transcripts, reply
// text, and synthesized speech out. One Controller owns one connection and
// orchestrates capture, endpointing, interim captions, and the turn pipeline.
package session

import (
	"context"
	"encoding/base64"
	"log/slog"
	"sync"
	"time"

	"github.com/reflections-ai/reflections/internal/observe"
	"github.com/reflections-ai/reflections/internal/transport"
	"github.com/reflections-ai/reflections/pkg/audio"
	"github.com/reflections-ai/reflections/pkg/memory"
	"github.com/reflections-ai/reflections/pkg/provider/embeddings"
	"github.com/reflections-ai/reflections/pkg/provider/llm"
	"github.com/reflections-ai/reflections/pkg/provider/stt"
	"github.com/reflections-ai/reflections/pkg/provider/tts"
)

// Tuning defaults. Each is overridable via Config.
const (
	DefaultSampleRate = 16000

	defaultSpeechRMSThreshold = 0.02
	defaultMinUtterance       = 800 * time.Millisecond
	defaultSilenceHangover    = 700 * time.Millisecond
	defaultEndpointTick       = 50 * time.Millisecond
	defaultPartialInterval    = 900 * time.Millisecond
	defaultPartialWindow      = 3 * time.Second
	defaultPartialTimeout     = 5 * time.Second
	defaultChunkMinChars      = 40
	defaultChunkMaxChars      = 180
	defaultReplyTimeout       = 60 * time.Second
	defaultSynthQueueDepth    = 8
	defaultReplayWindow       = 12
	defaultMemoryTopK         = 3
)

// Finalize reasons.
const (
	reasonEndpoint  = "endpoint"
	reasonClientEnd = "client_end"
)

// Config carries the per-session tuning knobs and identity. Zero values are
// replaced with defaults by normalize.
type Config struct {
	// SampleRate is the session's PCM16LE mono sample rate in Hz. A hello
	// frame may override it once before any audio arrives.
	SampleRate int

	// SpeechRMSThreshold is the normalised RMS level at or above which a
	// frame counts as speech.
	SpeechRMSThreshold float64

	// MinUtterance is the minimum time since speech onset before the
	// endpoint monitor may finalize.
	MinUtterance time.Duration

	// SilenceHangover is the minimum silence after the last speech frame
	// before the endpoint monitor may finalize.
	SilenceHangover time.Duration

	// EndpointTick is the endpoint monitor's polling interval.
	EndpointTick time.Duration

	// PartialInterval is the interim-caption monitor's polling interval.
	PartialInterval time.Duration

	// PartialWindow is how much trailing audio an interim transcription sees.
	PartialWindow time.Duration

	// ChunkMinChars and ChunkMaxChars bound the synthesis chunker.
	ChunkMinChars int
	ChunkMaxChars int

	// ReplyTimeout caps reply generation for a single turn.
	ReplyTimeout time.Duration

	// SynthQueueDepth bounds the text chunks queued ahead of synthesis.
	SynthQueueDepth int

	// Voice is the default synthesis voice; hello may override it.
	Voice string

	// SystemPrompt seeds the conversation (persona).
	SystemPrompt string

	// UserID and AvatarID identify the conversation for memory operations.
	// Empty identity disables persistence and replay.
	UserID   string
	AvatarID string

	// ReplayWindow is how many persisted turns seed a fresh session.
	ReplayWindow int

	// SessionID labels log lines and memory provenance. Assigned by the
	// server handler.
	SessionID string
}

// normalize fills unset fields with defaults.
func (c Config) normalize() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.SpeechRMSThreshold <= 0 {
		c.SpeechRMSThreshold = defaultSpeechRMSThreshold
	}
	if c.MinUtterance <= 0 {
		c.MinUtterance = defaultMinUtterance
	}
	if c.SilenceHangover <= 0 {
		c.SilenceHangover = defaultSilenceHangover
	}
	if c.EndpointTick <= 0 {
		c.EndpointTick = defaultEndpointTick
	}
	if c.PartialInterval <= 0 {
		c.PartialInterval = defaultPartialInterval
	}
	if c.PartialWindow <= 0 {
		c.PartialWindow = defaultPartialWindow
	}
	if c.ChunkMinChars <= 0 {
		c.ChunkMinChars = defaultChunkMinChars
	}
	if c.ChunkMaxChars <= 0 {
		c.ChunkMaxChars = defaultChunkMaxChars
	}
	if c.ReplyTimeout <= 0 {
		c.ReplyTimeout = defaultReplyTimeout
	}
	if c.SynthQueueDepth <= 0 {
		c.SynthQueueDepth = defaultSynthQueueDepth
	}
	if c.ReplayWindow <= 0 {
		c.ReplayWindow = defaultReplayWindow
	}
	return c
}

// Collaborators are the session's optional backends. Any may be nil: the
// session then degrades (stub transcripts, fixed replies, silent output)
// instead of failing, which keeps the wire protocol testable end to end
// without live models.
type Collaborators struct {
	STT        stt.Transcriber
	LLM        llm.Provider
	TTS        tts.Provider
	Embeddings embeddings.Provider
	Log        memory.ConversationLog
	Index      memory.SemanticIndex
}

// Controller owns one voice session. Create with New, drive with Run.
type Controller struct {
	cfg    Config
	collab Collaborators
	tr     transport.Transport
	out    *Outbound
	log    *slog.Logger
	metric *observe.Metrics

	buf *audio.Buffer

	// lifetime of the session; parent of every task context.
	ctx       context.Context
	cancelAll context.CancelFunc

	wg sync.WaitGroup

	mu              sync.Mutex
	closed          bool
	recording       bool
	finalizing      bool
	sampleRate      int
	rateFixed       bool
	voice           string
	history         []llm.Message
	latestPartial   string
	turn            *turnTask
	vadStartedAt    time.Time
	vadLastSpeechAt time.Time
}

// New builds a Controller over tr. metrics may be nil.
func New(tr transport.Transport, cfg Config, collab Collaborators, metrics *observe.Metrics) *Controller {
	cfg = cfg.normalize()
	return &Controller{
		cfg:        cfg,
		collab:     collab,
		tr:         tr,
		out:        NewOutbound(tr),
		log:        slog.Default().With("session_id", cfg.SessionID),
		metric:     metrics,
		buf:        audio.NewBuffer(),
		sampleRate: cfg.SampleRate,
		voice:      cfg.Voice,
	}
}

// Run drives the session until the peer disconnects or ctx is cancelled.
// It always returns with every session task finished and the transport
// released.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx, c.cancelAll = context.WithCancel(ctx)
	defer c.teardown()

	c.seedHistory(ctx)

	if err := c.out.Send(c.ctx, newReady()); err != nil {
		return err
	}

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.endpointLoop(c.ctx)
	}()
	go func() {
		defer c.wg.Done()
		c.partialLoop(c.ctx)
	}()

	for {
		typ, data, err := c.tr.Read(c.ctx)
		if err != nil {
			// Peer disconnects are the normal way sessions end.
			c.log.Debug("session read ended", "error", err)
			return nil
		}
		switch typ {
		case transport.MessageBinary:
			c.handleAudio(data, 0)
		case transport.MessageText:
			c.handleControl(data)
		}
	}
}

// teardown cancels every session task, waits for all of them to unwind, and
// only then releases the transport, so no task can write to a dead
// connection.
func (c *Controller) teardown() {
	c.mu.Lock()
	c.closed = true
	t := c.turn
	c.turn = nil
	c.mu.Unlock()

	c.cancelAll()
	if t != nil {
		t.cancelAndWait()
	}
	c.wg.Wait()

	_ = c.tr.Close(false, "session ended")
	c.log.Info("session closed", "bytes_received", c.buf.TotalReceived())
}

// seedHistory initialises the LLM history with the persona prompt and, when
// a conversation log is wired, the most recent persisted turns. Replay is
// best-effort.
func (c *Controller) seedHistory(ctx context.Context) {
	var history []llm.Message
	if c.collab.Log != nil && c.cfg.UserID != "" {
		turns, err := c.collab.Log.RecentTurns(ctx, c.cfg.UserID, c.cfg.AvatarID, c.cfg.ReplayWindow)
		if err != nil {
			c.log.Warn("conversation replay failed", "error", err)
		}
		for _, t := range turns {
			history = append(history, llm.Message{Role: t.Role, Content: t.Content})
		}
	}
	c.mu.Lock()
	c.history = history
	c.mu.Unlock()
}

// handleControl decodes and dispatches one JSON control frame.
func (c *Controller) handleControl(data []byte) {
	msg, err := ParseClientMessage(data)
	if err != nil {
		c.log.Debug("rejected client message", "error", err)
		c.send(newError("invalid_message"))
		return
	}

	switch msg.Type {
	case clientHello:
		c.handleHello(msg)
	case clientAudioFrame:
		pcm, err := base64.StdEncoding.DecodeString(msg.PCM16LEB64)
		if err != nil {
			c.send(newError("invalid_audio"))
			return
		}
		c.handleAudio(pcm, msg.SampleRate)
	case clientCancel:
		c.cancelTurn(true)
	case clientEnd:
		c.startFinalize(reasonClientEnd)
	}
}

// handleHello applies session parameters. The sample rate is fixed by the
// first hello that sets it; later hellos may still switch the voice.
func (c *Controller) handleHello(msg ClientMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.SampleRate > 0 && !c.rateFixed {
		c.sampleRate = msg.SampleRate
		c.rateFixed = true
	}
	if msg.Voice != "" {
		c.voice = msg.Voice
	}
}

// handleAudio appends one PCM frame to the capture buffer and updates the
// speech activity timestamps. A speech-level frame arriving while a turn
// pipeline runs is a barge-in: the pipeline is cancelled before the frame is
// appended, so the new utterance starts cleanly. Sub-threshold frames never
// cancel anything.
func (c *Controller) handleAudio(pcm []byte, frameRate int) {
	if len(pcm) == 0 {
		return
	}

	c.mu.Lock()
	sessionRate := c.sampleRate
	c.mu.Unlock()
	if frameRate > 0 && frameRate != sessionRate {
		pcm = audio.ResampleMono16(pcm, frameRate, sessionRate)
	}

	level := audio.RMSLevel(pcm)
	speech := level >= c.cfg.SpeechRMSThreshold

	if speech && c.turnRunning() {
		c.log.Debug("barge-in: cancelling active turn", "level", level)
		if c.metric != nil {
			c.metric.BargeIns.Add(c.ctx, 1)
		}
		c.cancelTurn(false)
	}

	c.buf.Append(pcm)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.recording = true
	if speech && !c.finalizing {
		now := time.Now()
		if c.vadStartedAt.IsZero() {
			c.vadStartedAt = now
		}
		c.vadLastSpeechAt = now
	}
}

// installTurn publishes t as the active pipeline. It refuses when the session
// has closed or a cancel raced the finalize snapshot and already cleared the
// finalizing flag: that cancel has acknowledged the client with cancelled and
// done, so the pipeline must not start.
func (c *Controller) installTurn(t *turnTask) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.finalizing {
		return false
	}
	c.turn = t
	return true
}

// turnRunning reports whether a turn pipeline is currently in flight.
func (c *Controller) turnRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn != nil && c.turn.running()
}

// startFinalize snapshots the capture buffer and launches the turn pipeline.
// An endpoint finalize while one is in flight is ignored; an explicit client
// end always preempts the running pipeline, and when the new snapshot is
// empty the end is answered with no_audio followed by done.
func (c *Controller) startFinalize(reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.finalizing {
		preempt := reason == reasonClientEnd && c.turn != nil
		c.mu.Unlock()
		if !preempt {
			return
		}
		c.cancelTurn(false)
		c.mu.Lock()
		if c.closed || c.finalizing {
			c.mu.Unlock()
			return
		}
	}
	c.finalizing = true
	c.recording = false
	c.latestPartial = ""
	c.vadStartedAt = time.Time{}
	c.vadLastSpeechAt = time.Time{}
	sampleRate := c.sampleRate
	voice := c.voice
	c.mu.Unlock()

	pcm, totalReceived := c.buf.SnapshotAndReset()
	if len(pcm) == 0 {
		c.mu.Lock()
		raced := c.closed || !c.finalizing
		c.finalizing = false
		c.mu.Unlock()
		// A cancel racing the snapshot has already acknowledged the client.
		if !raced {
			c.send(newError("no_audio"))
			c.send(newDone())
		}
		return
	}

	turnCtx, cancel := context.WithCancel(c.ctx)
	t := newTurnTask(cancel)
	if !c.installTurn(t) {
		cancel()
		return
	}

	c.log.Info("finalizing utterance",
		"reason", reason,
		"bytes", len(pcm),
		"duration_s", audio.DurationSeconds(int64(len(pcm)), sampleRate),
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer t.finish()
		c.runTurn(turnCtx, t, turnInput{
			pcm:           pcm,
			totalReceived: totalReceived,
			sampleRate:    sampleRate,
			voice:         voice,
		})
	}()
}

// cancelTurn abandons the in-flight turn pipeline (if any), optionally
// discards buffered audio, resets capture state, and acknowledges with
// cancelled followed by done. It is idempotent: cancelling with nothing in
// flight still acknowledges.
func (c *Controller) cancelTurn(resetAudio bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	t := c.turn
	c.turn = nil
	c.finalizing = false
	c.recording = false
	c.latestPartial = ""
	c.vadStartedAt = time.Time{}
	c.vadLastSpeechAt = time.Time{}
	c.mu.Unlock()

	if t != nil {
		t.cancelAndWait()
	}
	if resetAudio {
		c.buf.SnapshotAndReset()
	}

	c.send(newCancelled())
	c.send(newDone())
}

// send delivers one server message, logging (not failing) on write errors:
// by the time a write fails the read loop is already unwinding the session.
func (c *Controller) send(msg any) {
	if err := c.out.Send(c.ctx, msg); err != nil {
		c.log.Debug("send failed", "error", err)
	}
}

// appendHistory records a completed exchange for subsequent turns.
func (c *Controller) appendHistory(role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, llm.Message{Role: role, Content: content})
}

// historySnapshot copies the current history.
func (c *Controller) historySnapshot() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.Message, len(c.history))
	copy(out, c.history)
	return out
}
