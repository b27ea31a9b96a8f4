package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	handshakeTimeout = 4 * time.Second
	lineBuffer       = 64
)

var errEngineExited = errors.New("engine process exited")

// Session is one running engine process speaking UCI over stdio.
// A session serves a single search at a time.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *zap.Logger

	lines   chan string
	eof     chan struct{}
	quit    chan struct{}
	readErr error

	writeMu   sync.Mutex
	searchMu  sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewSession spawns binaryPath and completes the uci/isready handshake.
// ctx bounds the handshake only; the process lives until Close.
func NewSession(ctx context.Context, binaryPath string, opt Options, logger *zap.Logger) (*Session, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.Command(binaryPath)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("engine stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		logger: logger.With(zap.Int("engine_pid", cmd.Process.Pid)),
		lines:  make(chan string, lineBuffer),
		eof:    make(chan struct{}),
		quit:   make(chan struct{}),
	}
	go s.pump(stdout)

	hctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	if err := s.handshake(hctx, opt); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// pump forwards stdout lines until the pipe closes or the session quits.
func (s *Session) pump(r io.Reader) {
	defer close(s.eof)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		select {
		case s.lines <- line:
		case <-s.quit:
			return
		}
	}
	s.readErr = sc.Err()
}

func (s *Session) handshake(ctx context.Context, opt Options) error {
	if err := s.send("uci"); err != nil {
		return err
	}
	if err := s.waitFor(ctx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}
	for _, cmd := range opt.setoptions() {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return s.ready(ctx)
}

type SearchRequest struct {
	FEN    string
	Moves  []string
	Limits Limits
}

type SearchResponse struct {
	Candidates []Candidate
	BestMove   string
}

// Best returns the line reported for multipv slot 1.
func (r SearchResponse) Best() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

// Search runs one go command and collects info lines until bestmove.
// On error the engine may still be thinking; release the session with the error.
func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()

	goCmd, err := req.Limits.goCommand()
	if err != nil {
		return SearchResponse{}, err
	}
	position := positionCommand(req.FEN, req.Moves)
	if err := s.send(position); err != nil {
		return SearchResponse{}, err
	}
	if err := s.send(goCmd); err != nil {
		return SearchResponse{}, err
	}

	sctx, cancel := context.WithTimeout(ctx, req.Limits.deadline())
	defer cancel()

	var slots []Candidate
	for {
		line, err := s.next(sctx)
		if err != nil {
			s.logger.Warn("uci_search_aborted",
				zap.String("position", position),
				zap.String("go", goCmd),
				zap.Error(err),
			)
			return SearchResponse{}, fmt.Errorf("await bestmove: %w", err)
		}
		if info, ok := parseInfo(line); ok {
			if info.slot < 1 {
				continue
			}
			for len(slots) < info.slot {
				slots = append(slots, Candidate{})
			}
			slots[info.slot-1] = info.Candidate
			continue
		}
		if strings.HasPrefix(line, "bestmove") {
			return SearchResponse{Candidates: compact(slots), BestMove: parseBestMove(line)}, nil
		}
	}
}

// compact drops slots the engine never filled.
func compact(slots []Candidate) []Candidate {
	out := slots[:0]
	for _, c := range slots {
		if c.Move != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// EnsureReady round-trips isready within the handshake timeout.
func (s *Session) EnsureReady(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	return s.ready(rctx)
}

// NewGame clears engine hash state between unrelated positions.
func (s *Session) NewGame(ctx context.Context) error {
	if err := s.send("ucinewgame"); err != nil {
		return err
	}
	return s.EnsureReady(ctx)
}

func (s *Session) ready(ctx context.Context) error {
	if err := s.send("isready"); err != nil {
		return err
	}
	if err := s.waitFor(ctx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// Close asks the engine to quit, kills it and reaps the process.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		_ = s.send("quit")
		_ = s.stdin.Close()
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		err := s.cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = nil
		}
		s.closeErr = err
	})
	return s.closeErr
}

func (s *Session) send(cmd string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := io.WriteString(s.stdin, cmd+"\n"); err != nil {
		return fmt.Errorf("send %q: %w", strings.Fields(cmd)[0], err)
	}
	return nil
}

func (s *Session) waitFor(ctx context.Context, token string) error {
	for {
		line, err := s.next(ctx)
		if err != nil {
			return err
		}
		if line == token {
			return nil
		}
	}
}

func (s *Session) next(ctx context.Context) (string, error) {
	select {
	case line := <-s.lines:
		return line, nil
	case <-s.eof:
		select {
		case line := <-s.lines:
			return line, nil
		default:
		}
		if s.readErr != nil {
			return "", s.readErr
		}
		return "", errEngineExited
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
