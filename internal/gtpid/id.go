// Package gtpid implements the tagged command identifier used on the wire
// between the master and its slaves. Two bits of metadata ride along with
// every id: whether a reply is required, and the move number the command
// was issued for.
package gtpid

// DistGameLen bounds the move-number component of an id so that the random
// bits added for uniqueness never collide with it. It mirrors the original
// engine's DIST_GAMELEN constant.
const DistGameLen = 1 << 16

// CommandID is the 32-bit identifier prefixed to every command line. Bit 0
// is the reply-required flag; the remaining bits hold moveNumber +
// random*DistGameLen. The exact layout is otherwise opaque to callers.
type CommandID uint32

// ForceReply packs n with the reply-required bit set.
func ForceReply(n uint32) CommandID {
	return CommandID(n<<1 | 1)
}

// PreventReply clears the reply-required bit of id, preserving the
// move-number component.
func PreventReply(id CommandID) CommandID {
	return CommandID(uint32(id) &^ 1)
}

// ReplyRequired reports whether id carries the reply-required flag.
func ReplyRequired(id CommandID) bool {
	return uint32(id)&1 == 1
}

// MoveNumber extracts the move-number component of id. It round-trips
// across ForceReply/PreventReply: MoveNumber(PreventReply(ForceReply(n)))
// always equals n % DistGameLen.
func MoveNumber(id CommandID) uint32 {
	return (uint32(id) >> 1) % DistGameLen
}
