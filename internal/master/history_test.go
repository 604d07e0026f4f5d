package master

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/KBJarvis/distributed-go/internal/gtpid"
)

func TestAppendCommandSetsSlot(t *testing.T) {
	h := NewHistoryBuffer(4096)
	id, err := h.AppendCommand(1, "play", "b d4\n")
	if err != nil {
		t.Fatalf("AppendCommand: %v", err)
	}
	if !gtpid.ReplyRequired(id) {
		t.Fatalf("fresh command id should require a reply")
	}
	if got := h.CurrentID(); got != id {
		t.Fatalf("CurrentID() = %v, want %v", got, id)
	}
	cmd := string(h.CurrentCommand())
	if !strings.Contains(cmd, "play b d4") {
		t.Fatalf("CurrentCommand() = %q, want it to contain %q", cmd, "play b d4")
	}
}

func TestAdvancePastClearsReplyBitAndMovesOn(t *testing.T) {
	h := NewHistoryBuffer(4096)
	id, err := h.AppendCommand(1, "genmove", "b\n")
	if err != nil {
		t.Fatalf("AppendCommand: %v", err)
	}
	before := h.CurrentCommand()
	width := len(strings.Fields(string(before))[0])

	h.AdvancePast()

	transcript := h.Bytes()
	if len(transcript) == 0 {
		t.Fatalf("Bytes() empty after AdvancePast")
	}
	firstField := strings.Fields(string(transcript))[0]
	if len(firstField) != width {
		t.Fatalf("digit width changed: got %d fields wide, want %d", len(firstField), width)
	}
	n, err := strconv.ParseUint(firstField, 10, 32)
	if err != nil {
		t.Fatalf("parsing rewritten id: %v", err)
	}
	if gtpid.ReplyRequired(gtpid.CommandID(n)) {
		t.Fatalf("AdvancePast left reply-required bit set on id %d (original %d)", n, uint32(id))
	}

	id2, err := h.AppendCommand(2, "play", "b d4\n")
	if err != nil {
		t.Fatalf("second AppendCommand: %v", err)
	}
	if id2 == id {
		t.Fatalf("freshID should not reuse the previous id")
	}
}

func TestGenmoveOverwriteDoesNotAdvance(t *testing.T) {
	h := NewHistoryBuffer(4096)
	if _, err := h.AppendCommand(5, "pachi-genmoves", "b 500\n"); err != nil {
		t.Fatalf("AppendCommand: %v", err)
	}
	before := len(h.Bytes())

	// GenMove commits by overwriting the slot directly, without AdvancePast.
	if _, err := h.AppendCommand(5, "play", "b d4\n"); err != nil {
		t.Fatalf("overwrite AppendCommand: %v", err)
	}
	after := len(h.Bytes())
	if after != len(h.CurrentCommand()) {
		t.Fatalf("overwrite should leave exactly one command in the transcript")
	}
	if !bytes.Contains(h.CurrentCommand(), []byte("play b d4")) {
		t.Fatalf("overwrite did not replace slot contents: %q", h.CurrentCommand())
	}
	_ = before
}

func TestResetDiscardsHistory(t *testing.T) {
	h := NewHistoryBuffer(4096)
	if _, err := h.AppendCommand(1, "play", "b d4\n"); err != nil {
		t.Fatalf("AppendCommand: %v", err)
	}
	h.AdvancePast()
	if _, err := h.AppendCommand(2, "play", "w q16\n"); err != nil {
		t.Fatalf("AppendCommand: %v", err)
	}
	h.Reset()
	if len(h.Bytes()) != 0 {
		t.Fatalf("Reset should discard the transcript, got %d bytes", len(h.Bytes()))
	}
}

func TestAppendCommandCapacityExhausted(t *testing.T) {
	h := NewHistoryBuffer(8)
	if _, err := h.AppendCommand(1, "pachi-genmoves", strings.Repeat("x", 64)); err == nil {
		t.Fatalf("expected capacity error, got nil")
	}
}
