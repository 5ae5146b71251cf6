// Package compliance compares required separation distances against measured
// boundary distances and renders a per-tank verdict.
package compliance

import (
	"fmt"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

// Evaluation is the outcome of comparing one tank's distances.
type Evaluation struct {
	Verdict    types.Verdict
	MarginFeet *float64
	Note       string
}

// Evaluate renders a compliance verdict. A missing input on either side means
// Indeterminate; a missing measurement is never silently treated as passing.
// A tank exactly at the required distance is Compliant.
func Evaluate(requiredFeet, actualFeet *float64) Evaluation {
	switch {
	case requiredFeet == nil && actualFeet == nil:
		return Evaluation{Verdict: types.VerdictIndeterminate, Note: "no required distance and no measured distance"}
	case requiredFeet == nil:
		return Evaluation{Verdict: types.VerdictIndeterminate, Note: "no required distance available"}
	case actualFeet == nil:
		return Evaluation{Verdict: types.VerdictIndeterminate, Note: "no measured distance available"}
	}

	margin := *actualFeet - *requiredFeet
	verdict := types.VerdictCompliant
	note := fmt.Sprintf("actual %.1f ft >= required %.1f ft", *actualFeet, *requiredFeet)
	if margin < 0 {
		verdict = types.VerdictNonCompliant
		note = fmt.Sprintf("actual %.1f ft < required %.1f ft", *actualFeet, *requiredFeet)
	}
	return Evaluation{Verdict: verdict, MarginFeet: &margin, Note: note}
}

// Apply evaluates a tank in place using its governing ASD value and measured
// boundary distance. Tanks sitting inside the boundary get that noted too.
func Apply(tank *types.Tank) {
	eval := Evaluate(tank.RequiredDistanceFeet(), tank.ActualDistanceFeet)
	tank.Verdict = eval.Verdict
	tank.MarginFeet = eval.MarginFeet

	if tank.InsideBoundary && eval.Note != "" {
		eval.Note += " - inside site boundary"
	}
	if eval.Note != "" {
		if tank.Notes != "" {
			tank.Notes += "; "
		}
		tank.Notes += eval.Note
	}
}
