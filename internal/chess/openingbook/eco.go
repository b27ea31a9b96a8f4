package openingbook

import (
	"sync"

	chesslib "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

// ECO is the opening classification of a move sequence.
type ECO struct {
	Code  string
	Title string
}

func loadECO() *opening.BookECO {
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	return ecoBook
}

// Classify names the deepest ECO opening the game's moves reached.
func Classify(game *chesslib.Game) (ECO, bool) {
	if game == nil {
		return ECO{}, false
	}
	book := loadECO()
	if book == nil {
		return ECO{}, false
	}
	eco := book.Find(game.Moves())
	if eco == nil {
		return ECO{}, false
	}
	return ECO{Code: eco.Code(), Title: eco.Title()}, true
}
