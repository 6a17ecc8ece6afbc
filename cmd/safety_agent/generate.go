package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ragcon/safety-assistant/internal/safety"
	"github.com/ragcon/safety-assistant/internal/types"
)

var errInterrupted = errors.New("interrupted; running generations were cancelled")

type generateSpec struct {
	use   string
	short string
	long  string
}

var generateSpecs = map[safety.Workflow]generateSpec{
	safety.WorkflowHazard: {
		use:   "risk [process]",
		short: "Generate a risk assessment for a work process",
		long:  "Ask the generation service for the hazards of a work process, with likelihood, severity, legal references and safety measures.",
	},
	safety.WorkflowAccident: {
		use:   "accidents [process]",
		short: "List accident cases related to a work process",
		long:  "Ask the generation service which past accidents relate to a work process and look them up in the accident-case dataset.",
	},
	safety.WorkflowTbm: {
		use:   "tbm [process]",
		short: "Generate a Toolbox Talk Meeting briefing",
		long:  "Generate the precautions, checklist and management sections of a TBM briefing for a work process. The three sections are requested in parallel.",
	},
}

func newGenerateCmd(opts *rootOptions, w safety.Workflow) *cobra.Command {
	spec := generateSpecs[w]
	var (
		work    string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Long:  spec.long,
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

			var task *safety.Task
			switch w {
			case safety.WorkflowHazard:
				task = orch.StartHazardGeneration(process)
			case safety.WorkflowAccident:
				task = orch.StartAccidentGeneration(process)
			default:
				task = orch.StartTbmGeneration(process)
			}
			if err := await(ctx, orch, task); err != nil {
				return err
			}

			state := orch.Snapshot()
			if ws := state.Status(w); ws.Err != nil {
				return fmt.Errorf("%s: %w", safety.UserMessage, ws.Err)
			}
			return printWorkflow(cmd.OutOrStdout(), opts, state, w, jsonOut)
		},
	}

	cmd.Flags().StringVarP(&work, "work", "w", "", "Work item from the catalog (e.g. welding) instead of a free-text process")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	return cmd
}

// resolveProcess picks the process description from a catalog work item or
// the positional arguments. An empty result means the configured default.
func resolveProcess(args []string, work string) (string, error) {
	if work != "" {
		if len(args) > 0 {
			return "", fmt.Errorf("--work and a process argument are mutually exclusive")
		}
		item, ok := types.FindWorkItem(work)
		if !ok {
			return "", fmt.Errorf("unknown work item %q (see 'catalog')", work)
		}
		return item.Label, nil
	}
	return strings.TrimSpace(strings.Join(args, " ")), nil
}

// await blocks until task finishes. If ctx ends first every generation is
// cancelled.
func await(ctx context.Context, orch *safety.Orchestrator, task *safety.Task) error {
	select {
	case <-task.Done():
		return nil
	case <-ctx.Done():
		orch.CancelAll()
		<-task.Done()
		return errInterrupted
	}
}

func printWorkflow(out io.Writer, opts *rootOptions, state safety.State, w safety.Workflow, jsonOut bool) error {
	if jsonOut {
		var v any
		switch w {
		case safety.WorkflowHazard:
			v = state.Hazards
		case safety.WorkflowAccident:
			v = state.Accidents
		default:
			v = state.Tbm
		}
		return writeJSON(out, v)
	}

	p := opts.printer(out)
	switch w {
	case safety.WorkflowHazard:
		p.PrintHazards(state.Hazards)
	case safety.WorkflowAccident:
		p.PrintAccidents(state.Accidents)
	default:
		p.PrintTbm(state.Tbm)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}
