package master

import (
	"bytes"
	"sort"
	"strings"
)

// deadGroupVote picks the plurality answer among final_status_list replies:
// sort replies case-insensitively, then return the longest run of
// byte-identical replies, split into coordinates. Ties in run length keep
// whichever run sorts first.
func deadGroupVote(replies [][]byte) []string {
	if len(replies) == 0 {
		return nil
	}

	bodies := make([]string, 0, len(replies))
	for _, reply := range replies {
		bodies = append(bodies, stripHeader(reply))
	}

	sort.SliceStable(bodies, func(i, j int) bool {
		return strings.ToLower(bodies[i]) < strings.ToLower(bodies[j])
	})

	bestStart, bestLen := 0, 1
	runStart, runLen := 0, 1
	for i := 1; i < len(bodies); i++ {
		if bodies[i] == bodies[i-1] {
			runLen++
		} else {
			runStart, runLen = i, 1
		}
		if runLen > bestLen {
			bestStart, bestLen = runStart, runLen
		}
	}

	winner := bodies[bestStart]
	fields := strings.Fields(winner)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// stripHeader removes the leading "=<id>" GTP response marker, returning
// just the space-separated coordinate list that follows it.
func stripHeader(reply []byte) string {
	line := reply
	if idx := bytes.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	s := strings.TrimSpace(string(line))
	s = strings.TrimPrefix(s, "=")
	if sp := strings.IndexByte(s, ' '); sp >= 0 {
		s = s[sp+1:]
	} else {
		s = ""
	}
	return strings.TrimSpace(s)
}
