package master

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/KBJarvis/distributed-go/internal/gtpid"
)

// slaveWorker drives one slave connection: it blocks on cmdChanged until
// the History Buffer's current command differs from the last one this
// slave has seen, sends it (or replays the full history if desynced),
// reads the reply, and publishes it to the Reply Collector.
type slaveWorker struct {
	m    *Master
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer

	lastSentID gtpid.CommandID
	haveSent   bool
}

// newSlaveWorker wraps an accepted connection. Every new connection starts
// with a full replay: in the lazy-spawn-per-connection model there is no
// persistent slot identity to tell a genuine first-timer from a
// reconnecting slave, so both get one.
func newSlaveWorker(m *Master, conn net.Conn) *slaveWorker {
	return &slaveWorker{
		m:    m,
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}
}

// run drives the slave until its connection fails or is closed, then
// retires it from the active-slave count.
func (w *slaveWorker) run() {
	defer w.conn.Close()

	w.m.mu.Lock()
	w.m.collector.IncActive()
	w.m.cmdChanged.Broadcast()
	active := w.m.collector.ActiveSlaves()
	w.m.mu.Unlock()
	if w.m.metrics != nil {
		w.m.metrics.SlaveConnectsTotal.Inc()
		w.m.metrics.ActiveSlaves.Set(float64(active))
	}

	remote := w.conn.RemoteAddr()
	glog.Infof("slave connected from %s (%d active)", remote, active)

	if err := w.handshake(); err != nil {
		glog.Errorf("slave %s failed handshake: %v", remote, err)
		w.m.mu.Lock()
		w.m.collector.DecActive()
		active := w.m.collector.ActiveSlaves()
		w.m.replyArrived.Broadcast()
		w.m.mu.Unlock()
		if w.m.metrics != nil {
			w.m.metrics.SlaveDisconnects.Inc()
			w.m.metrics.ActiveSlaves.Set(float64(active))
		}
		return
	}

	defer func() {
		w.m.mu.Lock()
		w.m.collector.DecActive()
		active := w.m.collector.ActiveSlaves()
		w.m.replyArrived.Broadcast()
		w.m.mu.Unlock()
		if w.m.metrics != nil {
			w.m.metrics.SlaveDisconnects.Inc()
			w.m.metrics.ActiveSlaves.Set(float64(active))
		}
		glog.Infof("slave %s disconnected (%d active)", remote, active)
	}()

	resend := true
	for {
		if err := w.innerLoop(&resend); err != nil {
			glog.Warningf("slave %s: %v", remote, err)
			return
		}
	}
}

// handshake performs the slave identity check: send "name\n", expect a
// first reply line beginning with "= Pachi" (case sensitive) and a second,
// empty line. Any deviation is a handshake failure.
func (w *slaveWorker) handshake() error {
	if _, err := w.w.WriteString("name\n"); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}

	first, err := w.r.ReadString('\n')
	if err != nil {
		return err
	}
	if !strings.HasPrefix(first, "= Pachi") {
		return fmt.Errorf("unexpected handshake reply %q, want prefix \"= Pachi\"", first)
	}

	second, err := w.r.ReadString('\n')
	if err != nil {
		return err
	}
	if strings.TrimRight(second, "\r\n") != "" {
		return fmt.Errorf("unexpected second handshake line %q, want empty", second)
	}

	return nil
}

// innerLoop waits for a new command to appear in the slot, sends it (full
// replay if resend is set, otherwise only the current command), reads the reply,
// and publishes it. resend is cleared once a resync succeeds and set again
// if the slave's reply carries an id mismatch (desync).
func (w *slaveWorker) innerLoop(resend *bool) error {
	w.m.mu.Lock()
	for len(w.m.history.CurrentCommand()) == 0 || (w.haveSent && !*resend && w.m.history.CurrentID() == w.lastSentID) {
		w.m.cmdChanged.Wait()
	}
	id := w.m.history.CurrentID()
	var payload []byte
	if *resend {
		payload = append([]byte(nil), w.m.history.Bytes()...)
	} else {
		payload = append([]byte(nil), w.m.history.CurrentCommand()...)
	}
	w.m.mu.Unlock()

	if _, err := w.w.Write(payload); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}

	reply, err := readReply(w.r)
	if err != nil {
		return err
	}

	replyID, ok := parseReplyID(reply)
	if !ok || replyID != uint32(id) {
		*resend = true
		w.lastSentID = id
		w.haveSent = true
		if w.m.metrics != nil {
			w.m.metrics.SlaveDesyncsTotal.Inc()
		}
		return nil
	}

	*resend = false
	w.lastSentID = id
	w.haveSent = true

	w.m.mu.Lock()
	w.m.collector.Publish(reply)
	w.m.replyArrived.Broadcast()
	w.m.mu.Unlock()
	if w.m.metrics != nil {
		w.m.metrics.ReplyCount.Inc()
	}
	return nil
}

// readReply reads one GTP response: lines up to and including the first
// blank line that terminates it.
func readReply(r *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			buf.WriteString(line)
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimRight(line, "\r\n") == "" && buf.Len() > 1 {
			return buf.Bytes(), nil
		}
	}
}

// parseReplyID extracts the leading "=<id>" or "?<id>" marker from a GTP
// reply line.
func parseReplyID(reply []byte) (uint32, bool) {
	line := reply
	if idx := bytes.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	s := strings.TrimSpace(string(line))
	if s == "" || (s[0] != '=' && s[0] != '?') {
		return 0, false
	}
	s = s[1:]
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(s[:end], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}
