package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

// BuildSummary renders the human-readable account of a run.
func BuildSummary(run *types.PipelineRun) string {
	var sb strings.Builder

	sb.WriteString("TANK COMPLIANCE RUN SUMMARY\n")
	sb.WriteString("===========================\n\n")
	fmt.Fprintf(&sb, "Run:        %s\n", run.RunID)
	fmt.Fprintf(&sb, "Input:      %s (%s)\n", run.InputPath, run.InputType)
	fmt.Fprintf(&sb, "Status:     %s\n", run.Status)
	if run.HaltReason != "" {
		fmt.Fprintf(&sb, "Halted at:  %s (%s)\n", run.CurrentStep, run.HaltReason)
	}
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(&sb, "Duration:   %s\n", run.FinishedAt.Sub(run.StartedAt).Round(100*time.Millisecond))
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Steps completed: %s\n", joinOrNone(run.CompletedSteps))
	if len(run.SkippedSteps) > 0 {
		fmt.Fprintf(&sb, "Steps skipped:   %s\n", strings.Join(run.SkippedSteps, ", "))
	}
	sb.WriteString("\n")

	writeTankSection(&sb, run.Tanks)

	if len(run.Artifacts) > 0 {
		sb.WriteString("Artifacts:\n")
		names := make([]string, 0, len(run.Artifacts))
		for name := range run.Artifacts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "  %-20s %s\n", name+":", run.Artifacts[name])
		}
		sb.WriteString("\n")
	}

	if len(run.Warnings) > 0 {
		fmt.Fprintf(&sb, "Warnings (%d):\n", len(run.Warnings))
		for _, w := range run.Warnings {
			fmt.Fprintf(&sb, "  - %s\n", w)
		}
		sb.WriteString("\n")
	}
	if len(run.Errors) > 0 {
		fmt.Fprintf(&sb, "Errors (%d):\n", len(run.Errors))
		for _, e := range run.Errors {
			fmt.Fprintf(&sb, "  - %s\n", e)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeTankSection(sb *strings.Builder, tanks []*types.Tank) {
	if len(tanks) == 0 {
		return
	}

	resolved, queried := 0, 0
	verdicts := map[types.Verdict]int{}
	for _, tank := range tanks {
		if tank.Resolved() {
			resolved++
		}
		if tank.ASD != nil {
			queried++
		}
		verdicts[tank.Verdict]++
	}

	fmt.Fprintf(sb, "Tanks:      %d total, %d resolved, %d queried\n", len(tanks), resolved, queried)
	fmt.Fprintf(sb, "Verdicts:   %d compliant, %d non-compliant, %d indeterminate\n\n",
		verdicts[types.VerdictCompliant], verdicts[types.VerdictNonCompliant], verdicts[types.VerdictIndeterminate])

	for _, tank := range tanks {
		line := fmt.Sprintf("  %-12s", tank.ID)
		if tank.VolumeGallons != nil {
			line += fmt.Sprintf(" %10.0f gal", *tank.VolumeGallons)
		} else {
			line += fmt.Sprintf(" %14s", "unresolved")
		}
		if required := tank.RequiredDistanceFeet(); required != nil {
			line += fmt.Sprintf("  ASD %6.1f ft", *required)
		}
		if tank.ActualDistanceFeet != nil {
			line += fmt.Sprintf("  dist %7.1f ft", *tank.ActualDistanceFeet)
		}
		if tank.Verdict != "" {
			line += "  " + string(tank.Verdict)
		}
		if tank.QueryError != "" {
			line += "  [" + tank.QueryError + "]"
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
