package master

import (
	"bytes"
	"fmt"
	"strings"
)

// candidateStats is a playout-weighted (playouts, value) pair for one
// coordinate, combined across every slave reply that mentioned it.
type candidateStats struct {
	playouts int
	value    float64
}

// combine folds a new (playouts, value) observation into an existing one
// via playout-weighted averaging. It is associative and commutative.
func combine(a, b candidateStats) candidateStats {
	total := a.playouts + b.playouts
	if total == 0 {
		return candidateStats{}
	}
	v := (float64(a.playouts)*a.value + float64(b.playouts)*b.value) / float64(total)
	return candidateStats{playouts: total, value: v}
}

// moveResult is the outcome of aggregating a pachi-genmoves collection
// cycle: the winning coordinate, its final aggregated stats, and the
// global playout/thread totals for debug logging.
type moveResult struct {
	Coord         string
	Stats         candidateStats
	TotalPlayouts int
	TotalThreads  int
}

// selectBestMove aggregates per-slave pachi-genmoves replies into a single
// consensus move. Each reply is:
//
//	=<id> <total_playouts> <threads>[ <reserved>...]
//	<coord1> <playouts1> <value1>
//	...
//
// A malformed header skips the entire reply; a malformed candidate line
// ends that reply's candidate list but keeps whatever was already parsed
// from it. The coordinate with the greatest aggregated playout count wins;
// ties are broken by which coordinate reached that count first (reply
// order, then intra-reply order).
func selectBestMove(replies [][]byte) moveResult {
	table := make(map[string]candidateStats)
	var totalPlayouts, totalThreads int
	bestCoord := "pass"
	bestPlayouts := -1

	for _, reply := range replies {
		lines := bytes.Split(reply, []byte("\n"))
		if len(lines) == 0 {
			continue
		}

		var id, playouts, threads int
		if n, err := fmt.Sscanf(string(lines[0]), "=%d %d %d", &id, &playouts, &threads); err != nil || n != 3 {
			continue
		}
		totalPlayouts += playouts
		totalThreads += threads

		for _, raw := range lines[1:] {
			line := strings.TrimSpace(string(raw))
			if line == "" {
				continue
			}
			var coord string
			var p int
			var v float64
			if n, err := fmt.Sscanf(line, "%s %d %f", &coord, &p, &v); err != nil || n != 3 {
				break
			}
			updated := combine(table[coord], candidateStats{playouts: p, value: v})
			table[coord] = updated
			if updated.playouts > bestPlayouts {
				bestPlayouts = updated.playouts
				bestCoord = coord
			}
		}
	}

	return moveResult{
		Coord:         bestCoord,
		Stats:         table[bestCoord],
		TotalPlayouts: totalPlayouts,
		TotalThreads:  totalThreads,
	}
}
