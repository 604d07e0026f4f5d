package master

import (
	"context"
	"fmt"
	"net"

	"github.com/golang/glog"
)

// Supervisor owns the slave listener's accept loop. Per the lazy-spawn
// design, it holds no pre-spawned worker threads: a semaphore token is
// acquired before each Accept call, so the (max_slaves+1)-th connection is
// never even taken off the listener's backlog until a worker finishes.
type Supervisor struct {
	m    *Master
	addr string
	sem  chan struct{}
}

// NewSupervisor builds a supervisor bounding concurrent slaves at
// m's configured MaxSlaves.
func NewSupervisor(m *Master, addr string) *Supervisor {
	max := m.cfg.MaxSlaves
	if max <= 0 {
		max = DefaultMaxSlaves
	}
	return &Supervisor{m: m, addr: addr, sem: make(chan struct{}, max)}
}

// ListenAndServe runs the accept loop until ctx is canceled or the listener
// errors.
func (s *Supervisor) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("master: slave listener: %w", err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	glog.Infof("master: accepting slaves on %s (max %d)", s.addr, cap(s.sem))
	return s.acceptSlaves(ctx, ln)
}

// acceptSlaves blocks acquiring a semaphore slot before every Accept, so a
// connection attempt beyond capacity waits in the OS backlog rather than
// spawning an unbounded worker.
func (s *Supervisor) acceptSlaves(ctx context.Context, ln net.Listener) error {
	for {
		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		conn, err := ln.Accept()
		if err != nil {
			<-s.sem
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		go s.serve(conn)
	}
}

// serve runs one slave's worker loop to completion, then frees its slot.
func (s *Supervisor) serve(conn net.Conn) {
	defer func() { <-s.sem }()
	w := newSlaveWorker(s.m, conn)
	w.run()
}
