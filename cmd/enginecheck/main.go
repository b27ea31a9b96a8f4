package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	corechess "github.com/park285/cheese-sparring/internal/chess"
	"github.com/park285/cheese-sparring/internal/chess/rules"
	"github.com/park285/cheese-sparring/internal/chessbuilder"
	appcfg "github.com/park285/cheese-sparring/internal/config"
)

// enginecheck asks the configured engine for one move and prints how it was chosen.
func main() {
	fen := flag.String("fen", "", "position to search (default: standard start)")
	preset := flag.String("preset", "level15", "difficulty preset")
	timeout := flag.Duration("timeout", 15*time.Second, "overall deadline")
	flag.Parse()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	engine, err := chessbuilder.NewEngine(cfg, nil)
	if err != nil {
		log.Fatalf("engine init error: %v", err)
	}
	defer engine.Close()

	p, err := corechess.GetPreset(*preset)
	if err != nil {
		log.Fatalf("preset error: %v", err)
	}
	pos := rules.NewPosition()
	if *fen != "" {
		if pos, err = rules.FromFEN(rules.NormalizeFEN(*fen)); err != nil {
			log.Fatalf("fen error: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	res, err := engine.ChooseMove(ctx, corechess.TurnRequest{Position: pos, StartFEN: *fen, Difficulty: p.Difficulty})
	if err != nil {
		log.Fatalf("choose move error: %v", err)
	}

	fmt.Printf("fen:        %s\n", pos.FEN())
	fmt.Printf("difficulty: %s (tier %s)\n", p.Difficulty, res.Tier.Name)
	fmt.Printf("move:       %s (%s, source %s)\n", res.Selection.Move.UCI, res.Selection.Reason, res.Source)
	if res.Recommendation != nil {
		fmt.Printf("best:       %s %s depth %d\n", res.Recommendation.Move, res.Recommendation.Score, res.Recommendation.Depth)
	}
	if res.SearchErr != nil {
		fmt.Printf("search:     %v\n", res.SearchErr)
	}
	fmt.Printf("took:       %s\n", res.Duration)
	if res.SearchErr != nil && cfg.SearchConfigured() {
		os.Exit(2)
	}
}
