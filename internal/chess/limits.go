package chess

import (
	"fmt"
	"math"
	"strings"
)

const (
	depthLevelSpan = 30
	depthSlope     = 0.7
	depthOffset    = 4
)

// SearchDepth maps d to an engine depth: max(min, floor(level*0.7)+4) with level on a 1-30 span.
func (t Tuning) SearchDepth(d Difficulty) int {
	floor := t.MinSearchDepth
	if floor <= 0 {
		floor = defaultMinSearchDepth
	}
	level := d.Probability() * depthLevelSpan
	depth := int(math.Floor(level*depthSlope+1e-9)) + depthOffset
	if depth < floor {
		return floor
	}
	return depth
}

// FormatBudget renders the search budget for logs and status lines.
func FormatBudget(req SearchRequest) string {
	parts := make([]string, 0, 2)
	if req.Depth > 0 {
		parts = append(parts, fmt.Sprintf("depth %d", req.Depth))
	}
	if req.MoveTimeMillis > 0 {
		parts = append(parts, fmt.Sprintf("movetime %dms", req.MoveTimeMillis))
	}
	if len(parts) == 0 {
		return "unbounded"
	}
	return strings.Join(parts, ", ")
}
