package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ragcon/safety-assistant/internal/safety"
	"github.com/ragcon/safety-assistant/internal/types"
)

var errCheckIncomplete = errors.New("safety check incomplete")

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var (
		work      string
		equipment string
		yes       bool
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "check [process]",
		Short: "Run a full safety check",
		Long: `Generate the risk assessment, related accident cases and the TBM briefing
for a work process in parallel, review them and complete the safety check.

Ctrl-C cancels every running generation. Without --yes the risk assessment
and the accident cases are confirmed interactively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			process, err := resolveProcess(args, work)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch, err := opts.newOrchestrator(ctx)
			if err != nil {
				return err
			}
			if equipment != "" {
				if eq, ok := types.FindEquipment(equipment); ok {
					equipment = eq.Label
				}
				orch.SetEquipment(equipment)
			}

			progress := cmd.ErrOrStderr()
			var progressMu sync.Mutex
			orch.OnChange(func(ev safety.Event) {
				progressMu.Lock()
				defer progressMu.Unlock()
				switch ev.Kind {
				case safety.EventSucceeded:
					_, _ = fmt.Fprintf(progress, "  ✓ %s\n", ev.Workflow)
				case safety.EventFailed:
					_, _ = fmt.Fprintf(progress, "  ✗ %s: %v\n", ev.Workflow, ev.Err)
				}
			})

			task, err := orch.StartAll(process)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(progress, "안전점검활동 시작: %s\n", orch.Process())
			if err := await(ctx, orch, task); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			state := orch.Snapshot()
			p := opts.printer(out)
			if !jsonOut {
				p.PrintHazards(state.Hazards)
				p.PrintAccidents(state.Accidents)
				p.PrintTbm(state.Tbm)
			}
			if task.Outcome() == safety.OutcomeFailed {
				p.PrintStatus(state)
				return errCheckIncomplete
			}

			in := bufio.NewReader(cmd.InOrStdin())
			reviews := []struct {
				item   safety.ReviewItem
				prompt string
			}{
				{safety.ReviewRisks, "위험성 평가를 확인했습니까?"},
				{safety.ReviewAccidents, "관련 사고 사례를 확인했습니까?"},
			}
			for _, r := range reviews {
				if !yes && !confirm(in, progress, r.prompt) {
					return errCheckIncomplete
				}
				if err := orch.MarkReviewed(r.item); err != nil {
					return err
				}
			}

			report, err := orch.Complete()
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(out, report)
			}
			p.PrintReport(report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&work, "work", "w", "", "Work item from the catalog (e.g. welding) instead of a free-text process")
	cmd.Flags().StringVarP(&equipment, "equipment", "e", "", "Equipment in use (catalog value or free text)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm every review without prompting")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the completed report as JSON")
	return cmd
}

// confirm asks a yes/no question on out and reads the answer from in. EOF
// counts as no.
func confirm(in *bufio.Reader, out io.Writer, question string) bool {
	_, _ = fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		_, _ = fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "예", "네":
		return true
	}
	return false
}
