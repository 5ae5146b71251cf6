// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintNormalizedTanks outputs a summary of the normalized tank records.
func (p *Printer) PrintNormalizedTanks(tanks []*types.Tank) {
	if len(tanks) == 0 {
		return
	}

	resolved := 0
	for _, tank := range tanks {
		if tank.Resolved() {
			resolved++
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Tanks: %d (%d with resolved volume)\n\n", len(tanks), resolved))

	count := min(len(tanks), maxItemsToShow)
	for i := 0; i < count; i++ {
		tank := tanks[i]
		sb.WriteString(fmt.Sprintf("• %s", tank.ID))
		if tank.VolumeGallons != nil {
			sb.WriteString(fmt.Sprintf("  %.0f gal (%s)", *tank.VolumeGallons, tank.VolumeSource))
		} else {
			sb.WriteString("  volume unresolved")
		}
		sb.WriteString("\n")
	}
	if len(tanks) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(tanks)-maxItemsToShow))
	}

	p.printBox("NORMALIZED TANK RECORDS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCalculatorResults outputs the ASD values read from the calculator.
func (p *Printer) PrintCalculatorResults(tanks []*types.Tank) {
	queried, failed := 0, 0
	for _, tank := range tanks {
		if tank.ASD != nil {
			queried++
		} else if tank.QueryError != "" {
			failed++
		}
	}
	if queried == 0 && failed == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Queried: %d   Failed: %d\n\n", queried, failed))

	shown := 0
	for _, tank := range tanks {
		if shown >= maxItemsToShow {
			break
		}
		if tank.ASD != nil {
			if required := tank.RequiredDistanceFeet(); required != nil {
				sb.WriteString(fmt.Sprintf("• %s  max ASD %.0f ft\n", tank.ID, *required))
				shown++
			}
		} else if tank.QueryError != "" {
			msg := tank.QueryError
			if len(msg) > 38 {
				msg = msg[:35] + "..."
			}
			sb.WriteString(fmt.Sprintf("⚠ %s  %s\n", tank.ID, msg))
			shown++
		}
	}

	p.printBox("CALCULATOR RESULTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintComplianceSummary outputs the verdict tally for a finished evaluation.
func (p *Printer) PrintComplianceSummary(tanks []*types.Tank) {
	if len(tanks) == 0 {
		return
	}

	counts := map[types.Verdict]int{}
	for _, tank := range tanks {
		counts[tank.Verdict]++
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Compliant:      %d\n", counts[types.VerdictCompliant]))
	sb.WriteString(fmt.Sprintf("Non-compliant:  %d\n", counts[types.VerdictNonCompliant]))
	sb.WriteString(fmt.Sprintf("Indeterminate:  %d\n\n", counts[types.VerdictIndeterminate]))

	shown := 0
	for _, tank := range tanks {
		if tank.Verdict != types.VerdictNonCompliant {
			continue
		}
		if shown >= maxItemsToShow {
			sb.WriteString("...\n")
			break
		}
		line := fmt.Sprintf("⚠ %s", tank.ID)
		if tank.MarginFeet != nil {
			line += fmt.Sprintf("  short by %.0f ft", -*tank.MarginFeet)
		}
		sb.WriteString(line + "\n")
		shown++
	}

	p.printBox("COMPLIANCE VERDICTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunSummary outputs the run's terminal state, artifacts and problems.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRunSummary(run *types.PipelineRun) {
	if run == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s\n", run.RunID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", run.Status))
	if run.HaltReason != "" {
		sb.WriteString(fmt.Sprintf("Halted:   %s\n", run.HaltReason))
	}
	sb.WriteString(fmt.Sprintf("Steps:    %d completed, %d skipped\n",
		len(run.CompletedSteps), len(run.SkippedSteps)))

	if len(run.Artifacts) > 0 {
		sb.WriteString("\nArtifacts:\n")
		for _, name := range sortedKeys(run.Artifacts) {
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", name, run.Artifacts[name]))
		}
	}
	if len(run.Warnings) > 0 {
		sb.WriteString(fmt.Sprintf("\nWarnings: %d\n", len(run.Warnings)))
	}
	if len(run.Errors) > 0 {
		sb.WriteString(fmt.Sprintf("Errors:   %d\n", len(run.Errors)))
	}

	p.printBox("RUN SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
