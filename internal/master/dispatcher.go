// Package master implements the distributed GTP master: it fans a stream of
// GTP commands out to a pool of slave search workers, collects their
// per-move statistics under a soft time budget, and drives each slave
// through a game's lifetime via a replayable command history.
package master

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/KBJarvis/distributed-go/internal/metrics"
)

// quorumGraceWindow is the straggler grace period: once at least half of the
// active slaves (active/2, rounded down) have replied, get_replies commits
// to waiting at most this much longer.
const quorumGraceWindow = 500 * time.Millisecond

// Swallowed verbs are consumed locally and never forwarded to slaves.
const (
	verbQuit       = "quit"
	verbUCTGenbook = "uct_genbook"
	verbUCTDumpbook = "uct_dumpbook"
	verbKGSChat    = "kgs-chat"
)

// Rewritten verbs and their generate-moves family targets.
const (
	verbGenmove           = "genmove"
	verbKGSGenmoveCleanup = "kgs-genmove_cleanup"
	verbFinalScore        = "final_score"

	verbPachiGenmoves        = "pachi-genmoves"
	verbPachiGenmovesCleanup = "pachi-genmoves_cleanup"
	verbFinalStatusList      = "final_status_list"
)

// Master is the shared state of the distributed GTP master: the command
// lock, its two condition variables, the History Buffer, the Reply
// Collector, and the active-slave counter. One Master is shared by every
// slave worker goroutine and by the caller driving the dispatcher.
type Master struct {
	mu           sync.Mutex
	cmdChanged   *sync.Cond
	replyArrived *sync.Cond

	history   *HistoryBuffer
	collector *ReplyCollector

	cfg       Config
	startTime time.Time

	everNotified bool

	lastMove  Move
	lastStats Stats

	metrics *metrics.Collector
}

// Option configures optional Master behavior.
type Option func(*Master)

// WithMetrics wires a Prometheus metrics collector into the master.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Master) { m.metrics = c }
}

// New builds a Master ready to accept slave connections once paired with a
// Supervisor.
func New(cfg Config, opts ...Option) *Master {
	m := &Master{
		history:   NewHistoryBuffer(historyCapacity),
		collector: NewReplyCollector(cfg.MaxSlaves),
		cfg:       cfg,
		startTime: time.Now(),
	}
	m.cmdChanged = sync.NewCond(&m.mu)
	m.replyArrived = sync.NewCond(&m.mu)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartTime reports when this Master was created, for elapsed-time logging.
func (m *Master) StartTime() time.Time {
	return m.startTime
}

func isGenerateMovesVerb(verb string) bool {
	switch strings.ToLower(verb) {
	case verbPachiGenmoves, verbPachiGenmovesCleanup, verbFinalStatusList:
		return true
	}
	return false
}

func (m *Master) rewriteVerb(verb string) string {
	switch strings.ToLower(verb) {
	case verbGenmove:
		return verbPachiGenmoves
	case verbKGSGenmoveCleanup:
		return verbPachiGenmovesCleanup
	case verbFinalScore:
		return verbFinalStatusList
	default:
		return verb
	}
}

func (m *Master) swallowed(verb string) bool {
	switch strings.ToLower(verb) {
	case verbUCTGenbook, verbUCTDumpbook, verbKGSChat:
		return true
	case verbQuit:
		return !m.cfg.SlavesQuit
	}
	return false
}

// isGameStart reports whether cmd starts a new game, requiring the History
// Buffer to be reset. Board/GTP command classification beyond this is out
// of scope; the GTP front-end only ever issues these two verbs to start a
// game with this engine.
func isGameStart(cmd string) bool {
	switch strings.ToLower(cmd) {
	case "boardsize", "clear_board":
		return true
	}
	return false
}

// Notify dispatches a GTP command to all slaves. It rewrites and filters
// the command per the engine's wire protocol, appends it to the History
// Buffer, wakes every slave worker, and for anything outside the
// generate-moves family blocks until a quorum of replies arrives.
func (m *Master) Notify(board Board, cmd, args string) error {
	if m.swallowed(cmd) {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	verb := m.rewriteVerb(cmd)

	if !m.everNotified || isGameStart(cmd) {
		m.history.Reset()
		m.everNotified = true
	} else {
		m.history.AdvancePast()
	}

	if err := m.appendLocked(uint32(board.Moves()), verb, args); err != nil {
		return err
	}

	if !isGenerateMovesVerb(verb) {
		m.getRepliesLocked(time.Time{})
	}
	return nil
}

// appendLocked appends a command to the history, resets the reply count,
// and wakes every slave worker. mu must be held.
func (m *Master) appendLocked(moveNumber uint32, verb, args string) error {
	id, err := m.history.AppendCommand(moveNumber, verb, args)
	if err != nil {
		return err
	}
	m.collector.Reset()
	if glog.V(2) {
		glog.Infof(">> %s", strings.TrimRight(string(m.history.CurrentCommand()), "\n"))
	}
	_ = id
	m.cmdChanged.Broadcast()
	return nil
}

// getRepliesLocked waits until a quorum of replies has arrived: either
// every active slave, or at least active/2 plus a 0.5s grace window, or whatever
// arrived before deadline. The zero Time means no deadline. mu must be held
// on entry and is held on return; postcondition is collector.Count() >= 1.
func (m *Master) getRepliesLocked(deadline time.Time) {
	for {
		count := m.collector.Count()
		active := m.collector.ActiveSlaves()
		if count != 0 && count >= active {
			return
		}

		if !deadline.IsZero() && count > 0 {
			m.waitReplyUntilLocked(deadline)
		} else {
			m.replyArrived.Wait()
		}

		count = m.collector.Count()
		if count == 0 {
			continue
		}
		active = m.collector.ActiveSlaves()
		if count >= active {
			return
		}
		now := time.Now()
		if !deadline.IsZero() && !now.Before(deadline) {
			return
		}
		if count >= active/2 && (deadline.IsZero() || now.Add(quorumGraceWindow).Before(deadline)) {
			deadline = now.Add(quorumGraceWindow)
		}
	}
}

// waitReplyUntilLocked waits on replyArrived, waking early at deadline even
// though sync.Cond has no native timeout: a timer broadcasts on our behalf.
// mu must be held on entry and is held (reacquired) on return.
func (m *Master) waitReplyUntilLocked(deadline time.Time) {
	d := time.Until(deadline)
	if d <= 0 {
		return
	}
	timer := time.AfterFunc(d, func() {
		m.mu.Lock()
		m.replyArrived.Broadcast()
		m.mu.Unlock()
	})
	defer timer.Stop()
	m.replyArrived.Wait()
}

// GenMove computes an absolute deadline from tc, waits for a quorum of
// pachi-genmoves replies, aggregates them into a consensus move, commits
// every slave to it by overwriting the pending pachi-genmoves command with
// a play command, and returns the chosen coordinate.
func (m *Master) GenMove(board Board, color string, tc TimeControl, passAllAlive bool) (string, error) {
	start := time.Now()

	var deadline time.Time
	if tc != nil {
		deadline = tc.Deadline(start)
	}

	m.mu.Lock()
	m.getRepliesLocked(deadline)
	replies := m.collector.Count()

	result := selectBestMove(m.collector.Replies())
	m.lastMove = Move{Color: color, Coord: result.Coord}
	m.lastStats = Stats{Playouts: result.Stats.playouts, Value: result.Stats.value}

	args := fmt.Sprintf("%s %s\n", color, result.Coord)
	if err := m.appendLocked(uint32(board.Moves()), "play", args); err != nil {
		m.mu.Unlock()
		return "", err
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ObserveQuorumLatency(time.Since(start).Seconds())
	}

	if glog.V(1) {
		elapsed := time.Since(start).Seconds()
		if elapsed <= 0 {
			elapsed = 0.000001
		}
		glog.Infof("*** GLOBAL WINNER is %s %s with score %.4f (%d/%d games)\n"+
			"genmove in %0.2fs (%d games/s, %d games/s/slave, %d games/s/thread)\n",
			color, result.Coord, result.Stats.value, result.Stats.playouts, result.TotalPlayouts, elapsed,
			int(float64(result.TotalPlayouts)/elapsed),
			int(float64(result.TotalPlayouts)/elapsed/float64(max(replies, 1))),
			int(float64(result.TotalPlayouts)/elapsed/float64(max(result.TotalThreads, 1))))
	}

	return result.Coord, nil
}

// DeadGroupList waits for final_status_list replies, picks the plurality
// answer, and enqueues its coordinates onto mq.
func (m *Master) DeadGroupList(mq MoveQueue) {
	m.mu.Lock()
	m.getRepliesLocked(time.Time{})
	dead := deadGroupVote(m.collector.Replies())
	m.mu.Unlock()

	for _, coord := range dead {
		mq.Add(coord)
	}
}

// LastMove returns the move chosen by the most recent GenMove call.
func (m *Master) LastMove() Move {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMove
}

// LastStats returns the aggregated stats behind the most recent GenMove.
func (m *Master) LastStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastStats
}

// ActiveSlaves returns the current number of counted slave connections,
// including any whose handshake is still in progress.
func (m *Master) ActiveSlaves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collector.ActiveSlaves()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
