package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/hivemind/internal/export"
	"github.com/MikeSquared-Agency/hivemind/internal/ingest"
	"github.com/MikeSquared-Agency/hivemind/internal/memory"
)

func newIngestCmd(c *cli) *cobra.Command {
	var (
		project string
		format  string
		dryRun  bool
		force   bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Ingest a ChatGPT or Claude export",
		Long: `Parse FILE (a ChatGPT or Claude conversations export, "-" for stdin),
pair each user turn with the assistant reply that follows it, and write the
pairs to the configured memory sink.

Exports already recorded in the ingest ledger are skipped unless --force is
given. --dry-run parses and pairs without touching the sink.

Exit status: 2 undecodable JSON, 3 unsupported format, 4 sink unavailable.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			req := ingest.Request{
				Path:    args[0],
				Project: project,
				Format:  f,
				DryRun:  dryRun,
				Force:   force,
			}
			if args[0] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				req.Path = "stdin"
				req.Data = data
			}

			var sink memory.Sink
			if !dryRun {
				sink, err = c.openSink(cmd.Context())
				if err != nil {
					return err
				}
				defer sink.Close()
			}

			sum, err := c.newRunner(sink).Run(cmd.Context(), req)
			if sum != nil {
				if perr := printSummary(cmd.OutOrStdout(), sum, jsonOut); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project context for the stored units (default HIVEMIND_PROJECT)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Export format: chatgpt or claude (default: detect)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and pair without writing to the sink")
	cmd.Flags().BoolVar(&force, "force", false, "Re-ingest an export the ledger already records")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the summary as JSON")
	return cmd
}

func printSummary(w io.Writer, sum *ingest.Summary, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	fmt.Fprintln(w, "=== Ingest Summary ===")
	fmt.Fprintf(w, "Run:           %s\n", sum.RunID)
	fmt.Fprintf(w, "Source:        %s\n", sum.Path)
	fmt.Fprintf(w, "Format:        %s\n", sum.Format)
	fmt.Fprintf(w, "Project:       %s\n", sum.Project)
	if sum.Skipped {
		fmt.Fprintln(w, "Status:        already ingested, skipped (use --force to re-ingest)")
		return nil
	}
	fmt.Fprintf(w, "Conversations: %d\n", sum.Conversations)
	fmt.Fprintf(w, "Messages:      %d\n", sum.Messages)
	fmt.Fprintf(w, "Units:         %d\n", sum.Units)
	if sum.DryRun {
		fmt.Fprintln(w, "Written:       0 (dry run)")
	} else {
		fmt.Fprintf(w, "Written:       %d\n", sum.Written)
	}
	if len(sum.Diagnostics) > 0 {
		fmt.Fprintf(w, "Diagnostics:   %d\n", len(sum.Diagnostics))
		for _, d := range sum.Diagnostics {
			fmt.Fprintf(w, "  - %s\n", d)
		}
	}
	if len(sum.Errors) > 0 {
		fmt.Fprintf(w, "Errors:        %d\n", len(sum.Errors))
		for _, e := range sum.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
	return nil
}

// readArgOrStdin returns args[0] when present, otherwise all of stdin.
func readArgOrStdin(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}
