package master

import (
	"reflect"
	"testing"
)

func TestDeadGroupVotePicksPlurality(t *testing.T) {
	replies := [][]byte{
		[]byte("=1 D4 Q16\n"),
		[]byte("=1 D4 Q16\n"),
		[]byte("=1 d4 q16\n"),
		[]byte("=1 C3\n"),
	}
	got := deadGroupVote(replies)
	want := []string{"D4", "Q16"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("deadGroupVote() = %v, want %v", got, want)
	}
}

func TestDeadGroupVoteRunScanIsByteExactNotCaseInsensitive(t *testing.T) {
	// No pair is byte-identical here even though two are a case-insensitive
	// match; the longest run is length 1, so the plurality winner is
	// whichever reply sorts first.
	replies := [][]byte{
		[]byte("=1 D4 Q16\n"),
		[]byte("=1 d4 q16\n"),
		[]byte("=1 C3\n"),
	}
	got := deadGroupVote(replies)
	want := []string{"C3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("deadGroupVote() = %v, want %v", got, want)
	}
}

func TestDeadGroupVoteEmptyInput(t *testing.T) {
	if got := deadGroupVote(nil); got != nil {
		t.Fatalf("deadGroupVote(nil) = %v, want nil", got)
	}
}

func TestDeadGroupVoteNoCoordsReported(t *testing.T) {
	replies := [][]byte{
		[]byte("=1\n"),
		[]byte("=1\n"),
	}
	if got := deadGroupVote(replies); got != nil {
		t.Fatalf("deadGroupVote() = %v, want nil", got)
	}
}
