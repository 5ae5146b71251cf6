// Package hudcalc drives the HUD acceptable-separation-distance web
// calculator for one tank at a time and captures a screenshot of every
// calculation as audit evidence.
package hudcalc

import (
	"context"
	"errors"
	"fmt"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

// DefaultCalculatorURL is the public HUD ASD calculator.
const DefaultCalculatorURL = "https://www.hudexchange.info/programs/environmental-review/asd-calculator/"

// ErrTimeout reports that a query exceeded its wall-clock budget.
var ErrTimeout = errors.New("calculator query timed out")

// PageStructureError reports that the calculator page did not contain an
// element the client depends on — usually a sign the site changed.
type PageStructureError struct {
	Missing string
}

func (e *PageStructureError) Error() string {
	return fmt.Sprintf("unexpected calculator page structure: %s not found", e.Missing)
}

// Client queries the external calculator for one tank. Implementations do not
// retry; retry policy lives in the pipeline's step executor.
type Client interface {
	// Query fills the calculator form for the tank, reads the resulting ASD
	// values and writes a full-page screenshot under screenshotDir. A query
	// whose values were read but whose screenshot failed is a failure:
	// values without evidence are not acceptable.
	Query(ctx context.Context, tank *types.Tank, screenshotDir string) (*types.ASDResult, error)
}
