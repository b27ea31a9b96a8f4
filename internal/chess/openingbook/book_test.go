package openingbook

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/park285/cheese-sparring/internal/chess/rules"
)

func TestResolveBookPath(t *testing.T) {
	t.Setenv(envBookPath, "")
	got, err := ResolveBookPath("")
	if err != nil || got != "" {
		t.Fatalf("expected no book, got %q err=%v", got, err)
	}

	if _, err := ResolveBookPath(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Fatalf("expected error for missing explicit path")
	}

	path := filepath.Join(t.TempDir(), "book.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(envBookPath, path)
	got, err = ResolveBookPath("")
	if err != nil || got != path {
		t.Fatalf("expected env path %q, got %q err=%v", path, got, err)
	}
}

func TestNilBookHasNoMoves(t *testing.T) {
	var b *Book
	res, err := b.Lookup("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if err != nil || len(res) != 0 {
		t.Fatalf("expected empty lookup, got %v err=%v", res, err)
	}
	if _, ok, err := b.Pick("", nil, rand.New(rand.NewSource(1))); ok || err != nil {
		t.Fatalf("nil book must not pick")
	}
}

func TestOpenDefaultWithoutBook(t *testing.T) {
	t.Setenv(envBookPath, "")
	b, err := OpenDefault("")
	if err != nil || b != nil {
		t.Fatalf("expected nil book, got %v err=%v", b, err)
	}
}

func TestClassifyKnownOpening(t *testing.T) {
	game, err := rules.Replay("", []string{"e2e4", "c7c5"})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	eco, ok := Classify(game.Raw())
	if !ok || eco.Code == "" || !strings.Contains(eco.Title, "Sicilian") {
		t.Fatalf("expected a Sicilian classification, got %+v ok=%v", eco, ok)
	}
	if _, ok := Classify(nil); ok {
		t.Fatalf("nil game must not classify")
	}
}
