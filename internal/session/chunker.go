package session

import "strings"

// chunker accumulates streamed reply text and yields utterance-sized pieces
// for synthesis. It cuts at sentence boundaries when one is available, falls
// back to the last space before the maximum length, and holds text back
// until at least minChars have accumulated so tiny fragments are never
// synthesized. Not safe for concurrent use; each turn owns one chunker.
type chunker struct {
	pending  string
	minChars int
	maxChars int
}

func newChunker(minChars, maxChars int) *chunker {
	return &chunker{minChars: minChars, maxChars: maxChars}
}

// feed appends text and returns any complete chunks it releases, in order.
func (c *chunker) feed(text string) []string {
	c.pending += text

	var out []string
	for len(c.pending) >= c.minChars {
		piece, rest, ok := c.cut()
		if !ok {
			break
		}
		piece = strings.TrimSpace(piece)
		if piece != "" {
			out = append(out, piece)
		}
		c.pending = strings.TrimLeft(rest, " \t\n\r")
	}
	return out
}

// flush returns whatever remains, regardless of the minimum, and resets.
func (c *chunker) flush() string {
	rest := strings.TrimSpace(c.pending)
	c.pending = ""
	return rest
}

// cut finds the next chunk boundary in pending. It reports false when the
// buffered text should wait for more input.
func (c *chunker) cut() (piece, rest string, ok bool) {
	s := c.pending

	// Sentence boundary first, searched within the length cap.
	limit := len(s)
	if limit > c.maxChars {
		limit = c.maxChars
	}
	if idx := sentenceBoundary(s[:limit], len(s)); idx >= 0 {
		return s[:idx+1], s[idx+1:], true
	}

	// No boundary: only force a cut once the cap is exceeded.
	if len(s) <= c.maxChars {
		return "", "", false
	}
	cut := strings.LastIndexByte(s[:c.maxChars], ' ')
	if cut <= 0 {
		cut = c.maxChars
	}
	return s[:cut], s[cut:], true
}

// sentenceBoundary returns the index of the first '.', '!' or '?' in s that
// is followed by whitespace, or that ends s when total text is no longer
// than s (i.e. the terminator is genuinely final). Returns -1 when none.
func sentenceBoundary(s string, totalLen int) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '!', '?':
			if i+1 < totalLen {
				if i+1 < len(s) && isSpaceByte(s[i+1]) {
					return i
				}
			} else {
				return i
			}
		}
	}
	return -1
}

func isSpaceByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
