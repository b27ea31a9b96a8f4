package chess

import (
	"math"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	corechess "github.com/park285/cheese-sparring/internal/chess"
	"github.com/park285/cheese-sparring/internal/domain"
)

const (
	defaultPlayerRating = 1200
	kFactor             = 24
	minEngineRating     = 600
	maxEngineRating     = 2800
)

const (
	resultWin     = "win"
	resultLoss    = "loss"
	resultDraw    = "draw"
	resultUnknown = "unknown"
)

// resultFor reports the outcome from the player's side.
func resultFor(outcome nchess.Outcome, player nchess.Color) string {
	switch outcome {
	case nchess.Draw:
		return resultDraw
	case nchess.WhiteWon:
		if player == nchess.White {
			return resultWin
		}
		return resultLoss
	case nchess.BlackWon:
		if player == nchess.Black {
			return resultWin
		}
		return resultLoss
	default:
		return resultUnknown
	}
}

func methodFromOutcome(method nchess.Method) string {
	return strings.ToLower(method.String())
}

// engineRating approximates the strength the engine plays at for d.
func engineRating(d corechess.Difficulty) int {
	if d.Scale == corechess.EloScale.Name {
		return clampRating(d.Value)
	}
	p := d.Probability()
	return clampRating(minEngineRating + int(math.Round(p*float64(maxEngineRating-minEngineRating))))
}

func clampRating(r int) int {
	switch {
	case r < minEngineRating:
		return minEngineRating
	case r > maxEngineRating:
		return maxEngineRating
	}
	return r
}

func newProfile(playerID string, now time.Time) *domain.SparringProfile {
	return &domain.SparringProfile{
		PlayerID:  playerID,
		Rating:    defaultPlayerRating,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func applyGameResult(profile *domain.SparringProfile, playerID string, d corechess.Difficulty, result string, endedAt time.Time) (*domain.SparringProfile, int) {
	if profile == nil {
		profile = newProfile(playerID, endedAt)
	}

	prevRating := profile.Rating
	profile.GamesPlayed++
	profile.LastPreset = corechess.PresetName(d)
	profile.LastPlayedAt = endedAt
	profile.UpdatedAt = endedAt

	var score float64
	switch result {
	case resultWin:
		profile.Wins++
		score = 1.0
	case resultLoss:
		profile.Losses++
		score = 0.0
	default:
		profile.Draws++
		result = resultDraw
		score = 0.5
	}

	if profile.StreakType == result {
		profile.Streak++
	} else {
		profile.Streak = 1
		profile.StreakType = result
	}

	expected := 1 / (1 + math.Pow(10, float64(engineRating(d)-profile.Rating)/400))
	newRating := float64(profile.Rating) + kFactor*(score-expected)
	profile.Rating = int(math.Round(newRating))

	return profile, profile.Rating - prevRating
}
