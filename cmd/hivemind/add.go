package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/hivemind/internal/pairing"
)

func newAddCmd(c *cli) *cobra.Command {
	var (
		title   string
		tags    string
		project string
		kind    string
	)

	cmd := &cobra.Command{
		Use:   "add [TEXT]",
		Short: "Store a free-text memory",
		Long:  `Store TEXT (or stdin when TEXT is omitted) as a single memory unit.`,
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readArgOrStdin(cmd, args)
			if err != nil {
				return err
			}
			in := pairing.TextInput{
				Content: content,
				Title:   title,
				Tags:    strings.Split(tags, ","),
				Project: project,
				Type:    kind,
			}
			if _, err := pairing.TextUnit(in, time.Now()); err != nil {
				if errors.Is(err, pairing.ErrEmptyContent) {
					return &usageError{err: err}
				}
				return err
			}

			sink, err := c.openSink(cmd.Context())
			if err != nil {
				return err
			}
			defer sink.Close()

			id, err := c.newRunner(sink).RunText(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Title stored as conversation_title")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project context (default HIVEMIND_PROJECT)")
	cmd.Flags().StringVar(&kind, "type", "", "Memory type (default artifact)")
	return cmd
}
