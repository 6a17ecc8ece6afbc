// Package observability provides logging setup and formatted output for the
// CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/width"

	"github.com/ragcon/safety-assistant/internal/safety"
	"github.com/ragcon/safety-assistant/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out     io.Writer
	verbose bool
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// SetVerbose makes list output show every item instead of the first few.
func (p *Printer) SetVerbose(v bool) {
	p.verbose = v
}

func (p *Printer) limit(n int) int {
	if p.verbose {
		return n
	}
	return min(n, maxItemsToShow)
}

// displayWidth counts East Asian wide runes as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w += 2
		default:
			w++
		}
	}
	return w
}

// fit truncates s to at most n columns and pads it to exactly n.
func fit(s string, n int) string {
	if displayWidth(s) > n {
		var sb strings.Builder
		w := 0
		for _, r := range s {
			rw := displayWidth(string(r))
			if w+rw > n-3 {
				break
			}
			sb.WriteRune(r)
			w += rw
		}
		s = sb.String() + "..."
	}
	return s + strings.Repeat(" ", n-displayWidth(s))
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", fit(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", fit(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func riskLabel(v *types.RiskValue) string {
	if v == nil {
		return "-"
	}
	info := v.Info()
	return fmt.Sprintf("%s (%s)", info.Label, info.Code)
}

// PrintHazards outputs the risk assessment, one block per hazard.
func (p *Printer) PrintHazards(hazards []types.HazardRecord) {
	if len(hazards) == 0 {
		p.printBox("위험성 평가", "No hazards.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Hazards: %d\n\n", len(hazards)))

	count := p.limit(len(hazards))
	for i := 0; i < count; i++ {
		h := hazards[i]
		sb.WriteString(fmt.Sprintf("#%d  [%s] %s\n", i+1, h.Category, h.Cause))
		if h.Detail != "" && h.Detail != "-" {
			sb.WriteString(fmt.Sprintf("    %s\n", h.Detail))
		}
		sb.WriteString(fmt.Sprintf("    가능성 %s/%s  중대성 %s/%s  위험도 %s/%s\n",
			h.Likelihood.Level, h.Likelihood.Score,
			h.Severity.Level, h.Severity.Score,
			h.Level.Level, h.Level.Score))
		for _, m := range h.SafetyMeasures {
			sb.WriteString(fmt.Sprintf("    • %s\n", m))
		}
		if h.LegalReference != "" && h.LegalReference != "-" {
			sb.WriteString(fmt.Sprintf("    근거: %s\n", h.LegalReference))
		}
		sb.WriteString(fmt.Sprintf("    현재 위험성: %s  잔여 위험성: %s\n",
			riskLabel(h.CurrentRiskValue), riskLabel(h.ResidualRiskValue)))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(hazards) > count {
		sb.WriteString(fmt.Sprintf("\n... and %d more hazards", len(hazards)-count))
	}

	p.printBox("위험성 평가", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAccidents outputs the cited accident cases.
func (p *Printer) PrintAccidents(cases []types.AccidentCase) {
	if len(cases) == 0 {
		p.printBox("관련 사고 사례", "No related accident cases.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Cases: %d\n\n", len(cases)))

	count := p.limit(len(cases))
	for i := 0; i < count; i++ {
		c := cases[i]
		sb.WriteString(fmt.Sprintf("사례 %d  (%s)\n", c.Metadata.CaseNo, c.ID))
		if c.Content != nil {
			for _, line := range strings.Split(strings.TrimSpace(*c.Content), "\n") {
				sb.WriteString(fmt.Sprintf("    %s\n", line))
			}
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(cases) > count {
		sb.WriteString(fmt.Sprintf("\n... and %d more cases", len(cases)-count))
	}

	p.printBox("관련 사고 사례", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTbm outputs the TBM briefing section by section.
func (p *Printer) PrintTbm(tbm types.TbmRecord) {
	var sb strings.Builder
	for i, key := range types.TbmKeys {
		lines := tbm.Section(key)
		sb.WriteString(fmt.Sprintf("%s (%d)\n", key.Label(), len(lines)))
		for j, line := range lines {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", j+1, line))
		}
		if i < len(types.TbmKeys)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox("TBM", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStatus outputs one line per workflow.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintStatus(state safety.State) {
	for _, w := range safety.Workflows {
		ws := state.Status(w)
		switch {
		case ws.Loading:
			fmt.Fprintf(p.out, "  %-9s 생성 중...\n", w)
		case ws.Err != nil:
			fmt.Fprintf(p.out, "  %-9s ✗ %s (%s)\n", w, safety.UserMessage, ws.Err.Kind)
		default:
			fmt.Fprintf(p.out, "  %-9s ✓\n", w)
		}
	}
}

// PrintReport outputs a completed safety check.
func (p *Printer) PrintReport(report *safety.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Report:    %s\n", report.ID))
	sb.WriteString(fmt.Sprintf("Process:   %s\n", report.Process))
	sb.WriteString(fmt.Sprintf("Equipment: %s\n", report.Equipment))
	sb.WriteString(fmt.Sprintf("Completed: %s\n", report.CompletedAt.Format("2006-01-02 15:04")))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Hazards:   %d\n", len(report.Hazards)))
	sb.WriteString(fmt.Sprintf("Accidents: %d\n", len(report.Accidents)))
	for _, key := range types.TbmKeys {
		sb.WriteString(fmt.Sprintf("%s: %d\n", key.Label(), len(report.Tbm.Section(key))))
	}

	p.printBox("✅ 안전점검 완료", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCatalog outputs the selectable work items and equipment.
func (p *Printer) PrintCatalog() {
	var sb strings.Builder
	for _, item := range types.WorkItems {
		sb.WriteString(fmt.Sprintf("%-16s %s\n", item.Value, item.Label))
	}
	p.printBox("작업 공정", strings.TrimSuffix(sb.String(), "\n"))

	sb.Reset()
	for _, eq := range types.EquipmentItems {
		sb.WriteString(fmt.Sprintf("%-16s %s\n", eq.Value, eq.Label))
	}
	p.printBox("장비", strings.TrimSuffix(sb.String(), "\n"))
}
