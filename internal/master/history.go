package master

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/KBJarvis/distributed-go/internal/gtpid"
)

// MaxGameLen bounds the number of moves a single game is expected to need;
// the history buffer is sized at 40 bytes per move, matching the original
// engine's CMDS_SIZE = 40*MAX_GAMELEN.
const MaxGameLen = 4000

// historyCapacity is the fixed size of a HistoryBuffer.
const historyCapacity = 40 * MaxGameLen

// HistoryBuffer is the append-only transcript of every command issued this
// game. It doubles as the Command Slot: pos always marks the start of the
// most recently appended command, and curLen its length, until AdvancePast
// is called to make room for the next one.
type HistoryBuffer struct {
	buf    []byte
	pos    int
	curLen int

	id       gtpid.CommandID
	haveLast bool
}

// NewHistoryBuffer allocates a history buffer with room for capacity bytes.
func NewHistoryBuffer(capacity int) *HistoryBuffer {
	return &HistoryBuffer{buf: make([]byte, capacity)}
}

// Reset clears the buffer's write position to the base, discarding any
// prior command history. Called when a game-start command arrives.
func (h *HistoryBuffer) Reset() {
	h.pos = 0
	h.curLen = 0
}

// AdvancePast clears the reply-required bit of the command currently in the
// slot (in place, preserving its digit width) and moves the write position
// past it, so the next AppendCommand starts a new line instead of
// overwriting the one in the slot. It is a no-op if the slot is empty.
func (h *HistoryBuffer) AdvancePast() {
	if h.curLen == 0 {
		return
	}
	clearReplyBit(h.buf[h.pos : h.pos+h.curLen])
	h.pos += h.curLen
	h.curLen = 0
}

// AppendCommand generates a fresh id distinct from the previously generated
// one, formats "<id> <verb> <args>\n" at the current write position
// (overwriting whatever was there if AdvancePast was not called first), and
// makes it the new current command. args is empty or ends in "\n".
func (h *HistoryBuffer) AppendCommand(moveNumber uint32, verb, args string) (gtpid.CommandID, error) {
	id := h.freshID(moveNumber)
	line := formatCommand(id, verb, args)
	if h.pos+len(line) > len(h.buf) {
		return 0, fmt.Errorf("master: history buffer exhausted (capacity %d bytes)", len(h.buf))
	}
	copy(h.buf[h.pos:], line)
	h.curLen = len(line)
	h.id = id
	return id, nil
}

// CurrentID returns the id of the command currently in the slot.
func (h *HistoryBuffer) CurrentID() gtpid.CommandID {
	return h.id
}

// CurrentCommand returns the bytes of the command currently in the slot.
func (h *HistoryBuffer) CurrentCommand() []byte {
	return h.buf[h.pos : h.pos+h.curLen]
}

// Bytes returns the full transcript from the base up to and including the
// command in the slot: a history replay payload for a desynced or
// newly-joined slave.
func (h *HistoryBuffer) Bytes() []byte {
	return h.buf[:h.pos+h.curLen]
}

func (h *HistoryBuffer) freshID(moveNumber uint32) gtpid.CommandID {
	for {
		n := moveNumber + uint32(rand.Intn(1<<16))*gtpid.DistGameLen
		id := gtpid.ForceReply(n)
		if !h.haveLast || id != h.id {
			h.haveLast = true
			return id
		}
	}
}

func formatCommand(id gtpid.CommandID, verb, args string) []byte {
	if args == "" {
		args = "\n"
	}
	return []byte(fmt.Sprintf("%d %s %s", uint32(id), verb, args))
}

// clearReplyBit rewrites the leading decimal id of line in place, clearing
// its reply-required bit, preserving the original digit width by
// left-padding with zeros.
func clearReplyBit(line []byte) {
	w := 0
	for w < len(line) && line[w] >= '0' && line[w] <= '9' {
		w++
	}
	if w == 0 {
		return
	}
	n, err := strconv.ParseUint(string(line[:w]), 10, 32)
	if err != nil {
		return
	}
	newID := gtpid.PreventReply(gtpid.CommandID(n))
	s := fmt.Sprintf("%0*d", w, uint32(newID))
	copy(line[:w], s)
}
