package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CapacityResolver asks the model to interpret capacity and measurement text
// the deterministic parsers gave up on. It satisfies the normalizer's
// AmbiguityResolver interface and is only ever consulted for rows that would
// otherwise stay unresolved.
type CapacityResolver struct {
	client Client
}

// NewCapacityResolver wraps a Client as a capacity resolver.
func NewCapacityResolver(client Client) *CapacityResolver {
	return &CapacityResolver{client: client}
}

const capacityPrompt = `You are interpreting a row from a fuel storage tank survey spreadsheet.
The capacity and measurement cells may be in English or Spanish, use any unit,
or describe tank dimensions instead of a capacity.

Capacity cell: %q
Measurements cell: %q

Determine the tank's total volume in US gallons. If dimensions are given,
compute the volume (treat two dimensions as a cylinder: diameter x length).
Respond with JSON only:
{"gallons": <number or null>, "reasoning": "<one sentence>"}
Use null when the text does not describe a tank volume at all.`

type capacityAnswer struct {
	Gallons   *float64 `json:"gallons"`
	Reasoning string   `json:"reasoning"`
}

// ResolveCapacity interprets the raw cells and returns a volume in gallons.
// ok is false when the model concluded there is no volume to extract; the
// answer is also rejected when it falls outside plausible tank sizes, since a
// hallucinated number is worse than an unresolved row.
func (r *CapacityResolver) ResolveCapacity(ctx context.Context, rawCapacity, rawMeasurements string) (float64, bool, error) {
	if strings.TrimSpace(rawCapacity) == "" && strings.TrimSpace(rawMeasurements) == "" {
		return 0, false, nil
	}

	prompt := fmt.Sprintf(capacityPrompt, rawCapacity, rawMeasurements)
	raw, err := r.client.GenerateJSON(ctx, prompt)
	if err != nil {
		return 0, false, fmt.Errorf("capacity interpretation failed: %w", err)
	}

	var answer capacityAnswer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return 0, false, fmt.Errorf("capacity interpretation returned malformed JSON: %w", err)
	}
	if answer.Gallons == nil {
		return 0, false, nil
	}
	if *answer.Gallons < 0.1 || *answer.Gallons > 1_000_000 {
		return 0, false, fmt.Errorf("capacity interpretation returned implausible volume %.1f gallons", *answer.Gallons)
	}
	return *answer.Gallons, true, nil
}
