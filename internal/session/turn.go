package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reflections-ai/reflections/internal/observe"
	"github.com/reflections-ai/reflections/pkg/audio"
	"github.com/reflections-ai/reflections/pkg/memory"
	"github.com/reflections-ai/reflections/pkg/provider/llm"
)

// fallbackReply keeps the conversation alive when no reply text could be
// generated.
const fallbackReply = "(stub) (llm unavailable) I heard you."

// turnInput is the immutable snapshot a turn pipeline works from.
type turnInput struct {
	pcm           []byte
	totalReceived int64
	sampleRate    int
	voice         string
}

// runTurn executes one full turn: transcribe the finalized utterance, stream
// the reply, synthesize it chunk by chunk, and close with done. Cancellation
// (barge-in, explicit cancel, session teardown) aborts at the next stage
// boundary; the canceller owns the cancelled/done acknowledgement, so a
// cancelled pipeline sends nothing further.
func (c *Controller) runTurn(ctx context.Context, t *turnTask, in turnInput) {
	start := time.Now()
	defer c.finishTurn(t, start)

	transcript, err := c.transcribeFinal(ctx, in)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// A failed transcription never fails the turn: report it, then carry
		// on with a placeholder transcript describing the captured audio.
		c.recordProviderError("stt")
		c.send(newError(fmt.Sprintf("stt_error: %v", err)))
		transcript = stubTranscript(in)
	}
	if ctx.Err() != nil {
		return
	}

	durationS := audio.DurationSeconds(int64(len(in.pcm)), in.sampleRate)
	c.send(newFinalTranscript(transcript, in.totalReceived, durationS))
	c.appendHistory(llm.RoleUser, transcript)

	recalled := c.recallMemories(ctx, transcript)

	reply, ok := c.generateAndSynthesize(ctx, transcript, recalled, in.voice, in.sampleRate)
	if !ok {
		return
	}

	c.send(newAssistantMessage(reply))
	c.send(newDone())
	c.appendHistory(llm.RoleAssistant, reply)

	// Persistence is detached from the turn task: the slot frees without
	// waiting on storage.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.persistTurn(transcript, reply)
	}()

	if c.metric != nil {
		c.metric.TurnsCompleted.Add(c.ctx, 1)
	}
}

// finishTurn releases the pipeline's slot in the controller.
func (c *Controller) finishTurn(t *turnTask, start time.Time) {
	c.mu.Lock()
	if c.turn == t {
		c.turn = nil
		c.finalizing = false
	}
	c.mu.Unlock()
	if c.metric != nil {
		c.metric.ObserveTurn(c.ctx, time.Since(start))
	}
}

// stubTranscript describes the captured audio when no real transcript is
// available.
func stubTranscript(in turnInput) string {
	durationS := audio.DurationSeconds(int64(len(in.pcm)), in.sampleRate)
	return fmt.Sprintf("(stub) user spoke for ~%.2fs (%d bytes)", durationS, len(in.pcm))
}

// transcribeFinal produces the authoritative transcript for the utterance.
// Without a transcriber the session still converses, using a stub transcript
// that describes the captured audio.
func (c *Controller) transcribeFinal(ctx context.Context, in turnInput) (string, error) {
	if c.collab.STT == nil {
		return stubTranscript(in), nil
	}
	stageStart := time.Now()
	text, err := c.collab.STT.Transcribe(ctx, in.pcm, in.sampleRate)
	c.recordStage("stt", stageStart)
	if err != nil {
		return "", err
	}
	if text == "" {
		text = "(silence)"
	}
	return text, nil
}

// recallMemories looks up semantically related memory items for the
// transcript. Everything about recall is best-effort: no embeddings, no
// index, or a lookup failure simply yields no extra context.
func (c *Controller) recallMemories(ctx context.Context, transcript string) []string {
	if c.collab.Index == nil || c.collab.Embeddings == nil || c.cfg.UserID == "" {
		return nil
	}
	vec, err := c.collab.Embeddings.Embed(ctx, transcript)
	if err != nil {
		c.log.Warn("memory embed failed", "error", err)
		return nil
	}
	results, err := c.collab.Index.Search(ctx, vec, defaultMemoryTopK, memory.ItemFilter{
		UserID:   c.cfg.UserID,
		AvatarID: c.cfg.AvatarID,
	})
	if err != nil {
		c.log.Warn("memory search failed", "error", err)
		return nil
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Item.Content)
	}
	return out
}

// generateAndSynthesize streams the reply from the language model while a
// consumer goroutine synthesizes completed chunks in parallel. Text chunks
// flow through a bounded queue so generation can run at most SynthQueueDepth
// chunks ahead of synthesis. Returns the complete reply text and whether the
// turn should continue (false means cancelled).
func (c *Controller) generateAndSynthesize(parent context.Context, transcript string, recalled []string, voice string, sampleRate int) (string, bool) {
	ctx, cancel := context.WithTimeout(parent, c.cfg.ReplyTimeout)
	defer cancel()

	chunks := make(chan string, c.cfg.SynthQueueDepth)
	synthDone := make(chan struct{})
	go func() {
		defer close(synthDone)
		c.synthesizeLoop(ctx, chunks, voice, sampleRate)
	}()

	reply := c.streamReply(ctx, transcript, recalled, chunks)
	close(chunks)
	<-synthDone

	// The turn being cancelled (barge-in, explicit cancel, teardown) ends the
	// pipeline silently. A reply deadline expiring does not: the turn still
	// closes properly with whatever was generated.
	if parent.Err() != nil {
		return "", false
	}
	if ctx.Err() != nil {
		c.log.Warn("reply generation timed out", "partial_len", len(reply))
		c.send(newError("llm_error: reply generation timed out"))
		if reply == "" {
			reply = fallbackReply
		}
	}
	return reply, true
}

// streamReply drives the language model, forwarding deltas to the client as
// they arrive and feeding the chunker whose output goes to the synthesis
// queue. It returns the accumulated reply text; when the model is missing or
// fails before producing anything, a fixed fallback reply keeps the
// conversation alive.
func (c *Controller) streamReply(ctx context.Context, transcript string, recalled []string, chunks chan<- string) string {
	emit := func(text string) {
		select {
		case chunks <- text:
		case <-ctx.Done():
		}
	}

	if c.collab.LLM == nil {
		c.send(newAssistantDelta(fallbackReply))
		emit(fallbackReply)
		return fallbackReply
	}

	req := llm.CompletionRequest{
		Messages:     c.buildMessages(transcript, recalled),
		SystemPrompt: c.cfg.SystemPrompt,
	}

	stageStart := time.Now()
	stream, err := c.collab.LLM.StreamCompletion(ctx, req)
	if err != nil {
		c.recordProviderError("llm")
		if ctx.Err() != nil {
			return ""
		}
		c.log.Warn("reply generation failed", "error", err)
		c.send(newError(fmt.Sprintf("llm_error: %v", err)))
		c.send(newAssistantDelta(fallbackReply))
		emit(fallbackReply)
		return fallbackReply
	}

	var sb strings.Builder
	ch := newChunker(c.cfg.ChunkMinChars, c.cfg.ChunkMaxChars)
	failed := false
	for chunk := range stream {
		if ctx.Err() != nil {
			// Drain so the provider goroutine can exit.
			continue
		}
		if chunk.FinishReason == "error" {
			failed = true
			continue
		}
		if chunk.Text == "" {
			continue
		}
		sb.WriteString(chunk.Text)
		c.send(newAssistantDelta(chunk.Text))
		for _, piece := range ch.feed(chunk.Text) {
			emit(piece)
		}
	}
	c.recordStage("llm", stageStart)

	if ctx.Err() != nil {
		return sb.String()
	}
	if failed {
		c.recordProviderError("llm")
		c.send(newError("llm_error: reply stream failed"))
	}
	if sb.Len() == 0 {
		c.send(newAssistantDelta(fallbackReply))
		emit(fallbackReply)
		return fallbackReply
	}
	if tail := ch.flush(); tail != "" {
		emit(tail)
	}
	return sb.String()
}

// buildMessages assembles the model conversation: prior history, recalled
// memory framed as context, then the new utterance.
func (c *Controller) buildMessages(transcript string, recalled []string) []llm.Message {
	msgs := c.historySnapshot()
	if len(recalled) > 0 {
		var sb strings.Builder
		sb.WriteString("Relevant things you remember about this user:\n")
		for _, m := range recalled {
			sb.WriteString("- ")
			sb.WriteString(m)
			sb.WriteString("\n")
		}
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: sb.String()})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: transcript})
}

// synthesizeLoop consumes text chunks and emits tts_chunk frames with
// ascending sequence numbers. It holds each synthesized clip back until it
// knows whether another chunk follows, so the final clip carries is_last
// without needing a sentinel. Without a synthesizer the reply is text-only
// and no tts_chunk frames are sent. A synthesis failure is reported once and
// stops further synthesis for the turn; text delivery is unaffected.
func (c *Controller) synthesizeLoop(ctx context.Context, chunks <-chan string, voice string, sampleRate int) {
	if c.collab.TTS == nil {
		for range chunks {
		}
		return
	}

	var (
		pendingWAV []byte
		seq        int
	)
	flush := func(isLast bool) {
		if pendingWAV == nil {
			return
		}
		if ctx.Err() == nil {
			c.send(newTTSChunk(seq, base64.StdEncoding.EncodeToString(pendingWAV), isLast))
			seq++
		}
		pendingWAV = nil
	}

	for text := range chunks {
		if ctx.Err() != nil {
			continue
		}
		stageStart := time.Now()
		wav, err := c.collab.TTS.Synthesize(ctx, text, voice)
		c.recordStage("tts", stageStart)
		if err != nil {
			c.recordProviderError("tts")
			if ctx.Err() != nil {
				continue
			}
			c.log.Warn("synthesis failed", "error", err)
			flush(true)
			c.send(newError(fmt.Sprintf("tts_error: %v", err)))
			for range chunks {
			}
			return
		}
		flush(false)
		pendingWAV = wav
	}
	flush(true)
}

// persistTurn records the completed exchange in the conversation log and,
// when embeddings are wired, indexes the user's utterance as a memory item.
// It runs on its own deadline, off the turn task. The two writes are
// independent and run concurrently; both are best-effort, so one failing
// never stops the other.
func (c *Controller) persistTurn(transcript, reply string) {
	if c.cfg.UserID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var g errgroup.Group

	if c.collab.Log != nil {
		g.Go(func() error {
			err := c.collab.Log.AppendTurns(ctx, c.cfg.UserID, c.cfg.AvatarID, []memory.Turn{
				{Role: llm.RoleUser, Content: transcript},
				{Role: llm.RoleAssistant, Content: reply},
			})
			if err != nil {
				return fmt.Errorf("conversation append: %w", err)
			}
			return nil
		})
	}

	if c.collab.Index != nil && c.collab.Embeddings != nil && !strings.HasPrefix(transcript, "(stub)") {
		g.Go(func() error {
			vec, err := c.collab.Embeddings.Embed(ctx, transcript)
			if err != nil {
				return fmt.Errorf("memory embed: %w", err)
			}
			item := memory.Item{
				UserID:          c.cfg.UserID,
				AvatarID:        c.cfg.AvatarID,
				Scope:           memory.ScopeUser,
				Kind:            "utterance",
				Content:         transcript,
				Embedding:       vec,
				SourceSessionID: c.cfg.SessionID,
			}
			if err := c.collab.Index.IndexItem(ctx, item); err != nil {
				return fmt.Errorf("memory index: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.log.Warn("turn persist incomplete", "error", err)
	}
}

func (c *Controller) recordStage(stage string, start time.Time) {
	if c.metric != nil {
		c.metric.ObserveStage(c.ctx, stage, time.Since(start))
	}
}

func (c *Controller) recordProviderError(provider string) {
	if c.metric != nil {
		c.metric.ProviderErrors.Add(c.ctx, 1, observe.WithProvider(provider))
	}
}
