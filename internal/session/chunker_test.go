package session

import (
	"reflect"
	"strings"
	"testing"
)

func TestChunker_SentenceBoundaries(t *testing.T) {
	c := newChunker(1, 180)

	got := c.feed("Hello there. How are you today? Fine")
	want := []string{"Hello there.", "How are you today?"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("feed = %v, want %v", got, want)
	}
	if rest := c.flush(); rest != "Fine" {
		t.Errorf("flush = %q, want Fine", rest)
	}
}

func TestChunker_HoldsBelowMinimum(t *testing.T) {
	c := newChunker(40, 180)

	if got := c.feed("Short. "); got != nil {
		t.Errorf("feed released %v before minimum", got)
	}
	got := c.feed("Now the buffer is long enough to release text. ")
	if len(got) == 0 {
		t.Fatal("feed released nothing above minimum")
	}
	if got[0] != "Short." {
		t.Errorf("first chunk = %q, want Short.", got[0])
	}
}

func TestChunker_IncrementalDeltas(t *testing.T) {
	c := newChunker(1, 180)

	var out []string
	for _, delta := range []string{"One two", " three. Four", " five", " six!", " Seven."} {
		out = append(out, c.feed(delta)...)
	}
	if rest := c.flush(); rest != "" {
		out = append(out, rest)
	}

	want := []string{"One two three.", "Four five six!", "Seven."}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("chunks = %v, want %v", out, want)
	}
}

func TestChunker_ForcesCutAtSpaceBeyondMax(t *testing.T) {
	c := newChunker(1, 30)

	long := "word " + strings.Repeat("filler ", 10) // no sentence terminator
	got := c.feed(long)
	if len(got) == 0 {
		t.Fatal("no chunk released beyond the cap")
	}
	for i, chunk := range got {
		if len(chunk) > 30 {
			t.Errorf("chunk %d length = %d, exceeds cap", i, len(chunk))
		}
		if strings.HasSuffix(chunk, " ") || strings.HasPrefix(chunk, " ") {
			t.Errorf("chunk %d not trimmed: %q", i, chunk)
		}
	}
}

func TestChunker_UnbrokenTextCutAtMax(t *testing.T) {
	c := newChunker(1, 20)

	got := c.feed(strings.Repeat("x", 50))
	if len(got) != 2 {
		t.Fatalf("chunk count = %d, want 2", len(got))
	}
	for i, chunk := range got {
		if len(chunk) != 20 {
			t.Errorf("chunk %d length = %d, want 20", i, len(chunk))
		}
	}
	if rest := c.flush(); len(rest) != 10 {
		t.Errorf("flush length = %d, want 10", len(rest))
	}
}

func TestChunker_TerminatorMidwordNotABoundary(t *testing.T) {
	c := newChunker(1, 180)

	// "3.14" must not split after the decimal point.
	got := c.feed("Pi is 3.14 roughly. More")
	want := []string{"Pi is 3.14 roughly."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("feed = %v, want %v", got, want)
	}
}

func TestChunker_FlushEmpty(t *testing.T) {
	c := newChunker(1, 180)
	if rest := c.flush(); rest != "" {
		t.Errorf("flush on empty = %q", rest)
	}
}
