package rev

import (
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tok := New()
	if len(tok) != Len {
		t.Fatalf("token length = %d, want %d", len(tok), Len)
	}
	if !Valid(tok) {
		t.Fatalf("New produced invalid token %q", tok)
	}
}

func TestMonotonic(t *testing.T) {
	prev := New()
	for i := 0; i < 1000; i++ {
		tok := New()
		if tok <= prev {
			t.Fatalf("tokens not strictly increasing: %q then %q", prev, tok)
		}
		prev = tok
	}
}

func TestTime(t *testing.T) {
	before := time.Now().UnixMilli()
	tok := New()
	after := time.Now().UnixMilli()

	ms := Time(tok)
	if ms < before || ms > after {
		t.Errorf("embedded time %d outside [%d, %d]", ms, before, after)
	}
	if Time("not-a-token") != 0 {
		t.Error("Time on garbage should be 0")
	}
}
