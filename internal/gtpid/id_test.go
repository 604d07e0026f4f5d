package gtpid

import "testing"

func TestForceReplySetsFlag(t *testing.T) {
	id := ForceReply(42)
	if !ReplyRequired(id) {
		t.Fatalf("ForceReply(42) = %d, want reply-required bit set", id)
	}
}

func TestPreventReplyClearsFlag(t *testing.T) {
	id := PreventReply(ForceReply(42))
	if ReplyRequired(id) {
		t.Fatalf("PreventReply(ForceReply(42)) = %d, want reply-required bit clear", id)
	}
}

func TestRoundTripPreservesMoveNumber(t *testing.T) {
	for _, n := range []uint32{0, 1, 42, 12345, DistGameLen - 1, DistGameLen, DistGameLen * 3} {
		got := MoveNumber(PreventReply(ForceReply(n)))
		want := n % DistGameLen
		if got != want {
			t.Errorf("MoveNumber(PreventReply(ForceReply(%d))) = %d, want %d", n, got, want)
		}
	}
}

func TestMoveNumberUnaffectedByReplyBit(t *testing.T) {
	n := uint32(777)
	withReply := ForceReply(n)
	withoutReply := PreventReply(withReply)
	if MoveNumber(withReply) != MoveNumber(withoutReply) {
		t.Fatalf("move number changed after clearing reply bit: %d != %d",
			MoveNumber(withReply), MoveNumber(withoutReply))
	}
}
