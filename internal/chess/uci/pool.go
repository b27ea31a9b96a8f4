package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

type PoolConfig struct {
	BinaryPath string
	// PerOptionCapacity caps live engine processes per distinct Options value.
	PerOptionCapacity int
	Logger            *zap.Logger
}

// Pool hands out warm engine sessions grouped by their Options.
// Each group holds at most PerOptionCapacity processes; Acquire waits for a free one.
type Pool struct {
	binaryPath string
	capacity   int
	logger     *zap.Logger

	mu     sync.Mutex
	groups map[string]*group
	inUse  map[*Session]*group
	closed bool
}

type group struct {
	opt     Options
	permits chan struct{}

	mu   sync.Mutex
	idle []*Session
	live int
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("binary path required")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("stockfish binary check: %w", err)
	}
	capacity := cfg.PerOptionCapacity
	if capacity <= 0 {
		capacity = min(max(runtime.NumCPU(), 2), 4)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		binaryPath: cfg.BinaryPath,
		capacity:   capacity,
		logger:     logger,
		groups:     make(map[string]*group),
		inUse:      make(map[*Session]*group),
	}, nil
}

var errPoolClosed = errors.New("engine pool closed")

// Acquire returns an idle session for opt, or starts one while under capacity.
func (p *Pool) Acquire(ctx context.Context, opt Options) (*Session, error) {
	g, err := p.groupFor(opt)
	if err != nil {
		return nil, err
	}
	select {
	case g.permits <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for {
		s := g.popIdle()
		if s == nil {
			break
		}
		if err := s.EnsureReady(ctx); err != nil {
			p.logger.Debug("uci_idle_session_stale", zap.Error(err))
			g.drop(s)
			continue
		}
		p.lend(s, g)
		return s, nil
	}

	s, err := NewSession(ctx, p.binaryPath, g.opt, p.logger)
	if err != nil {
		<-g.permits
		return nil, err
	}
	g.mu.Lock()
	g.live++
	g.mu.Unlock()
	p.lend(s, g)
	return s, nil
}

// Release returns s to its group. A non-nil err means the session is in an
// unknown protocol state and is shut down instead of reused.
func (p *Pool) Release(s *Session, err error) {
	if s == nil {
		return
	}
	p.mu.Lock()
	g, ok := p.inUse[s]
	delete(p.inUse, s)
	closed := p.closed
	p.mu.Unlock()
	if !ok {
		_ = s.Close()
		return
	}

	if err != nil || closed {
		g.drop(s)
	} else {
		g.mu.Lock()
		g.idle = append(g.idle, s)
		g.mu.Unlock()
	}
	<-g.permits
}

// Close shuts down idle sessions. Sessions still lent out close on Release.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	groups := make([]*group, 0, len(p.groups))
	for _, g := range p.groups {
		groups = append(groups, g)
	}
	p.mu.Unlock()

	var errs []error
	for _, g := range groups {
		g.mu.Lock()
		idle := g.idle
		g.idle = nil
		g.live -= len(idle)
		g.mu.Unlock()
		for _, s := range idle {
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Stats reports live and idle sessions per option key.
func (p *Pool) Stats() map[string][2]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string][2]int, len(p.groups))
	for k, g := range p.groups {
		g.mu.Lock()
		out[k] = [2]int{g.live, len(g.idle)}
		g.mu.Unlock()
	}
	return out
}

func (p *Pool) groupFor(opt Options) (*group, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errPoolClosed
	}
	k := opt.key()
	g, ok := p.groups[k]
	if !ok {
		g = &group{opt: opt, permits: make(chan struct{}, p.capacity)}
		p.groups[k] = g
	}
	return g, nil
}

func (p *Pool) lend(s *Session, g *group) {
	p.mu.Lock()
	p.inUse[s] = g
	p.mu.Unlock()
}

func (g *group) popIdle() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.idle)
	if n == 0 {
		return nil
	}
	s := g.idle[n-1]
	g.idle = g.idle[:n-1]
	return s
}

func (g *group) drop(s *Session) {
	_ = s.Close()
	g.mu.Lock()
	g.live--
	g.mu.Unlock()
}
