package uci

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Options are the engine settings a pooled session is started with.
// The engine always plays at full strength; weakening happens in the selector.
type Options struct {
	Threads    int
	SkillLevel int
	HashMB     int
	MultiPV    int
}

func DefaultOptions() Options {
	return Options{Threads: 1, SkillLevel: 20, HashMB: 64, MultiPV: 1}
}

func (o Options) validate() error {
	switch {
	case o.SkillLevel < 0 || o.SkillLevel > 20:
		return fmt.Errorf("skill level %d out of range 0-20", o.SkillLevel)
	case o.HashMB <= 0:
		return fmt.Errorf("hash size must be > 0: %d", o.HashMB)
	case o.MultiPV <= 0:
		return fmt.Errorf("multipv must be > 0: %d", o.MultiPV)
	}
	return nil
}

// key identifies sessions that can be handed out interchangeably.
func (o Options) key() string {
	return fmt.Sprintf("t%d/s%d/h%d/pv%d", o.Threads, o.SkillLevel, o.HashMB, o.MultiPV)
}

func (o Options) setoptions() []string {
	threads := max(o.Threads, 1)
	return []string{
		"setoption name Threads value " + strconv.Itoa(threads),
		"setoption name Hash value " + strconv.Itoa(o.HashMB),
		"setoption name Skill Level value " + strconv.Itoa(o.SkillLevel),
		"setoption name MultiPV value " + strconv.Itoa(o.MultiPV),
		"setoption name UCI_LimitStrength value false",
	}
}

// Limits bound one search. At least one field must be set.
type Limits struct {
	Depth          int
	MoveTimeMillis int
	NodeCap        int
}

func (l Limits) goCommand() (string, error) {
	var sb strings.Builder
	sb.WriteString("go")
	add := func(name string, v int) {
		if v > 0 {
			sb.WriteString(" " + name + " " + strconv.Itoa(v))
		}
	}
	add("depth", l.Depth)
	add("movetime", l.MoveTimeMillis)
	add("nodes", l.NodeCap)
	if sb.Len() == len("go") {
		return "", fmt.Errorf("no search limits specified")
	}
	return sb.String(), nil
}

// deadline is how long to wait for bestmove before giving the process up.
func (l Limits) deadline() time.Duration {
	const (
		floor = 6 * time.Second
		ceil  = 20 * time.Second
	)
	if l.MoveTimeMillis > 0 {
		return 3 * time.Duration(l.MoveTimeMillis+2000) * time.Millisecond
	}
	if l.Depth > 0 {
		return min(max(time.Duration(l.Depth)*300*time.Millisecond, floor), ceil)
	}
	return floor
}

func positionCommand(fen string, moves []string) string {
	fen = strings.TrimSpace(fen)
	cmd := "position startpos"
	if fen != "" && fen != "startpos" {
		cmd = "position fen " + fen
	}
	if len(moves) > 0 {
		cmd += " moves " + strings.Join(moves, " ")
	}
	return cmd
}

type ScoreKind string

const (
	ScoreCP   ScoreKind = "cp"
	ScoreMate ScoreKind = "mate"
)

// Candidate is the latest reported line for one multipv slot.
type Candidate struct {
	Move      string
	Kind      ScoreKind
	Score     int
	Depth     int
	Principal []string
}

// infoLine is a parsed "info" message that carried a principal variation.
type infoLine struct {
	slot int
	Candidate
}

// parseInfo reads multipv slot, depth, score and pv out of an info message.
// Messages without a pv (currmove, string, hashfull) report ok=false.
func parseInfo(line string) (infoLine, bool) {
	f := strings.Fields(line)
	if len(f) == 0 || f[0] != "info" {
		return infoLine{}, false
	}
	out := infoLine{slot: 1, Candidate: Candidate{Kind: ScoreCP}}
	intAt := func(i int) (int, bool) {
		if i >= len(f) {
			return 0, false
		}
		v, err := strconv.Atoi(f[i])
		return v, err == nil
	}
	for i := 1; i < len(f); i++ {
		switch f[i] {
		case "multipv":
			if v, ok := intAt(i + 1); ok {
				out.slot = v
			}
			i++
		case "depth":
			if v, ok := intAt(i + 1); ok {
				out.Depth = v
			}
			i++
		case "score":
			if i+1 < len(f) {
				if v, ok := intAt(i + 2); ok && (f[i+1] == "cp" || f[i+1] == "mate") {
					out.Kind, out.Score = ScoreKind(f[i+1]), v
				}
			}
			i += 2
		case "pv":
			if i+1 >= len(f) {
				return infoLine{}, false
			}
			out.Principal = append([]string(nil), f[i+1:]...)
			out.Move = out.Principal[0]
			return out, true
		}
	}
	return infoLine{}, false
}

// parseBestMove returns the move token of a "bestmove" message, "(none)" included.
func parseBestMove(line string) string {
	f := strings.Fields(line)
	if len(f) < 2 {
		return ""
	}
	return f[1]
}
