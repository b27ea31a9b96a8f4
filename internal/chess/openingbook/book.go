// Package openingbook reads Polyglot opening books through corentings/chess.
package openingbook

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	chesslib "github.com/corentings/chess/v2"
)

const envBookPath = "CHESS_POLYGLOT_BOOK_PATH"

type Result struct {
	Move   string
	Weight uint16
}

type Book struct {
	path string
	book *chesslib.PolyglotBook
}

// Open loads the Polyglot book at path.
func Open(path string) (*Book, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("polyglot book path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", path, err)
	}
	defer file.Close()

	book, err := chesslib.LoadFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book %q: %w", path, err)
	}
	return &Book{path: path, book: book}, nil
}

// OpenDefault resolves the book path from explicit, the environment or well-known locations.
// A nil book with a nil error means no book is configured.
func OpenDefault(explicit string) (*Book, error) {
	path, err := ResolveBookPath(explicit)
	if err != nil || path == "" {
		return nil, err
	}
	return Open(path)
}

func (b *Book) Path() string { return b.path }

// Lookup lists the book moves for fen, heaviest first.
func (b *Book) Lookup(fen string) ([]Result, error) {
	if b == nil || b.book == nil {
		return nil, nil
	}
	hashStr, err := chesslib.NewZobristHasher().HashPosition(fen)
	if err != nil {
		return nil, fmt.Errorf("compute polyglot hash: %w", err)
	}
	entries := b.book.FindMoves(chesslib.ZobristHashToUint64(hashStr))
	out := make([]Result, 0, len(entries))
	for _, entry := range entries {
		move := chesslib.DecodeMove(entry.Move).ToMove()
		out = append(out, Result{Move: strings.ToLower(move.String()), Weight: entry.Weight})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight == out[j].Weight {
			return out[i].Move < out[j].Move
		}
		return out[i].Weight > out[j].Weight
	})
	return out, nil
}

// Pick draws a weighted book move for fen among those legal accepts.
func (b *Book) Pick(fen string, legal func(string) bool, r *rand.Rand) (Result, bool, error) {
	results, err := b.Lookup(fen)
	if err != nil || len(results) == 0 {
		return Result{}, false, err
	}
	usable := make([]Result, 0, len(results))
	total := 0
	for _, res := range results {
		if res.Weight == 0 || (legal != nil && !legal(res.Move)) {
			continue
		}
		usable = append(usable, res)
		total += int(res.Weight)
	}
	if total == 0 {
		return Result{}, false, nil
	}
	roll := r.Intn(total)
	cumulative := 0
	for _, res := range usable {
		cumulative += int(res.Weight)
		if roll < cumulative {
			return res, true, nil
		}
	}
	return usable[len(usable)-1], true, nil
}

func ResolveBookPath(explicit string) (string, error) {
	if p := strings.TrimSpace(explicit); p != "" {
		if exists(p) {
			return p, nil
		}
		return "", fmt.Errorf("polyglot book not found: %s", p)
	}
	if envPath := strings.TrimSpace(os.Getenv(envBookPath)); envPath != "" {
		if exists(envPath) {
			return envPath, nil
		}
		return "", fmt.Errorf("env %s points to missing file: %s", envBookPath, envPath)
	}
	for _, candidate := range defaultBookPaths() {
		if exists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

func defaultBookPaths() []string {
	return []string{
		filepath.Join("resources", "opening", "book.bin"),
		filepath.Join("resources", "opening", "Cerebellum3Merge.bin"),
	}
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
