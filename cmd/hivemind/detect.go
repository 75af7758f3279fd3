package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/hivemind/internal/export"
)

func newDetectCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "detect FILE",
		Short: "Print the export format of a file",
		Long: `Print the detected export format (chatgpt or claude) of FILE.

An unrecognized format prints "unknown" and exits with status 3.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			format, err := export.DetectBytes(data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), format)
			if format == export.FormatUnknown {
				return &export.UnsupportedFormatError{Format: format}
			}
			return nil
		},
	}
}
