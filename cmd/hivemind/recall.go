package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/hivemind/internal/memory"
)

func newRecallCmd(c *cli) *cobra.Command {
	var (
		n       int
		project string
		kind    string
		source  string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "recall [QUERY]",
		Short: "Search stored memories",
		Long:  `Return the memories most relevant to QUERY (or stdin when QUERY is omitted).`,
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readArgOrStdin(cmd, args)
			if err != nil {
				return err
			}
			query = strings.TrimSpace(query)
			if query == "" {
				return &usageError{err: fmt.Errorf("empty query")}
			}
			if n < 1 {
				return &usageError{err: fmt.Errorf("--n must be at least 1, got %d", n)}
			}

			filter := memory.Filter{}
			if project != "" {
				filter[memory.KeyProjectContext] = project
			}
			if kind != "" {
				filter[memory.KeyType] = kind
			}
			if source != "" {
				filter[memory.KeySource] = source
			}

			sink, err := c.openSink(cmd.Context())
			if err != nil {
				return err
			}
			defer sink.Close()

			recs, err := sink.Query(cmd.Context(), query, n, filter)
			if err != nil {
				return err
			}
			return printRecords(cmd, recs, jsonOut)
		},
	}

	cmd.Flags().IntVarP(&n, "n", "n", 5, "Maximum number of results")
	cmd.Flags().StringVarP(&project, "project", "p", "", "Only memories from this project")
	cmd.Flags().StringVar(&kind, "type", "", "Only memories of this type")
	cmd.Flags().StringVar(&source, "source", "", "Only memories from this source")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	return cmd
}

func printRecords(cmd *cobra.Command, recs []memory.Record, jsonOut bool) error {
	w := cmd.OutOrStdout()
	if jsonOut {
		if recs == nil {
			recs = []memory.Record{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	if len(recs) == 0 {
		fmt.Fprintln(w, "No memories found.")
		return nil
	}
	for i, r := range recs {
		title := r.Metadata[memory.KeyConversationTitle]
		if title == "" {
			title = r.ID
		}
		fmt.Fprintf(w, "[%d] %s (score %.3f)\n", i+1, title, r.Score)
		if p := r.Metadata[memory.KeyProjectContext]; p != "" {
			fmt.Fprintf(w, "    project: %s  type: %s  source: %s\n", p, r.Metadata[memory.KeyType], r.Metadata[memory.KeySource])
		}
		if ts := r.Metadata[memory.KeyTimestamp]; ts != "" {
			fmt.Fprintf(w, "    at: %s\n", ts)
		}
		fmt.Fprintf(w, "%s\n\n", indent(r.Content, "    "))
	}
	return nil
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
