package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dgallion1/cmcguide/internal/engine"
	"github.com/dgallion1/cmcguide/internal/knowledge"
	"github.com/dgallion1/cmcguide/internal/pipeline"
)

var (
	hitColor      = color.New(color.FgGreen)
	fallbackColor = color.New(color.FgYellow)
	missColor     = color.New(color.FgRed)
	headingColor  = color.New(color.Bold)
	dimColor      = color.New(color.Faint)
)

type contextFlags struct {
	product string
	stage   string
	region  string
}

func (f *contextFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.product, "product", "p", "", `product label, e.g. "CAR-T" or "AAV Vector"`)
	cmd.Flags().StringVarP(&f.stage, "stage", "s", "", `development stage, e.g. "Phase 1" or "BLA/MAA"`)
	cmd.Flags().StringVarP(&f.region, "region", "r", "", `region, e.g. "US (FDA-centric)"`)
}

func (c *cli) resolveCmd() *cobra.Command {
	var ctx contextFlags
	cmd := &cobra.Command{
		Use:   "resolve INTENT",
		Short: "Look up structured guidance and show the fallback trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			block, normalized := c.app.Engine.Resolve(args[0], ctx.product, ctx.stage, ctx.region)
			if c.jsonOut {
				return c.printJSON(map[string]any{
					"context":  normalized,
					"sections": block.Sections,
					"trace":    block.Trace,
					"outcome":  block.Outcome,
				})
			}
			writeTrace(c.out, block.Trace, block.Outcome)
			fmt.Fprintln(c.out)
			if block.Sections.Empty() {
				missColor.Fprintln(c.out, "No guidance found for this context.")
				return nil
			}
			for _, s := range block.Sections {
				headingColor.Fprintln(c.out, s.Name)
				for _, item := range s.Items {
					fmt.Fprintf(c.out, "  - %s\n", item)
				}
			}
			return nil
		},
	}
	ctx.register(cmd)
	return cmd
}

func (c *cli) askCmd() *cobra.Command {
	var (
		ctx    contextFlags
		req    engine.Request
		lambda float64
	)
	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Answer a question from the guidance tree and the reference corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Query = strings.Join(args, " ")
			req.Product, req.Stage, req.Region = ctx.product, ctx.stage, ctx.region
			if cmd.Flags().Changed("lambda") {
				req.Lambda = &lambda
			}

			resp, err := c.app.Engine.Ask(cmd.Context(), req)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(resp)
			}

			dimColor.Fprintf(c.out, "intent %s · %s · %s · %s · %s\n\n",
				resp.Intent, resp.Context.Product, resp.Context.Stage, resp.Context.Region, resp.Origin)
			if resp.NoMatch || resp.Reason != "" {
				fallbackColor.Fprintf(c.out, "retrieval: %s\n\n", resp.Reason)
			}
			fmt.Fprint(c.out, resp.Markdown)
			if c.verbose {
				fmt.Fprintln(c.out)
				for _, t := range resp.Traces {
					dimColor.Fprintf(c.out, "%s:\n", t.Intent)
					writeTrace(c.out, t.Steps, t.Outcome)
				}
			}
			return nil
		},
	}
	ctx.register(cmd)
	cmd.Flags().StringVarP(&req.Intent, "intent", "i", "", "skip routing and use this intent")
	cmd.Flags().StringVarP(&req.Detail, "detail", "d", "", "brief, standard or deep")
	cmd.Flags().StringVarP(&req.Mode, "mode", "m", "", "auto, structured or open-text")
	cmd.Flags().IntVarP(&req.K, "k", "k", 0, "chunks to retrieve")
	cmd.Flags().Float64Var(&lambda, "lambda", 0.7, "MMR relevance/diversity balance in [0,1]")
	return cmd
}

func (c *cli) rebuildCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the retrieval index from the corpus manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := c.app.Orchestrator.Run(cmd.Context(), force).Snapshot()
			if c.jsonOut {
				if err := c.printJSON(snap); err != nil {
					return err
				}
			} else {
				st := hitColor
				switch snap.Status {
				case pipeline.StatusUnchanged:
					st = fallbackColor
				case pipeline.StatusFailed:
					st = missColor
				}
				st.Fprintf(c.out, "%s", snap.Status)
				fmt.Fprintf(c.out, ": %d documents, %d chunks, index %s\n",
					snap.Progress.Documents, snap.Progress.Chunks, snap.IndexID)
				for _, e := range snap.Progress.Errors {
					missColor.Fprintf(c.out, "  %s\n", e)
				}
			}
			if snap.Status == pipeline.StatusFailed {
				return errors.New("rebuild failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "rebuild even when the corpus is unchanged")
	return cmd
}

func (c *cli) indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Show the current retrieval index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := c.app.Index.EnsureLoaded()
			if err != nil {
				if c.jsonOut {
					return c.printJSON(map[string]any{"available": false, "reason": err.Error()})
				}
				missColor.Fprintf(c.out, "no index: %s\n", err)
				return nil
			}
			info := idx.Info()
			if c.jsonOut {
				return c.printJSON(map[string]any{"available": true, "index": info})
			}
			fmt.Fprintf(c.out, "id:          %s\n", info.ID)
			fmt.Fprintf(c.out, "backend:     %s\n", info.Backend)
			fmt.Fprintf(c.out, "chunks:      %d\n", info.Chunks)
			fmt.Fprintf(c.out, "sources:     %d\n", info.Sources)
			fmt.Fprintf(c.out, "corpus hash: %s\n", info.CorpusHash)
			fmt.Fprintf(c.out, "built at:    %s\n", info.BuiltAt.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
}

// writeTrace prints one line per resolver step, colored by result.
func writeTrace(w io.Writer, steps []string, outcome knowledge.LookupOutcome) {
	for i, step := range steps {
		last := i == len(steps)-1
		switch {
		case step == knowledge.NoMatch || strings.HasSuffix(step, "(miss)"):
			missColor.Fprintf(w, "  %s\n", step)
		case last && outcome.Kind == knowledge.Hit:
			hitColor.Fprintf(w, "  %s\n", step)
		default:
			fallbackColor.Fprintf(w, "  %s\n", step)
		}
	}
}
