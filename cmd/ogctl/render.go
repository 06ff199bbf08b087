package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/uneu/ogimage/go/store/memory"
)

func newRenderCommand(root *rootOptions) *cobra.Command {
	var title, output string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one title to a PNG file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := root.newRenderer(memory.New())
			if err != nil {
				return err
			}
			encoded, err := renderer.RenderOrFetch(cmd.Context(), title)
			if err != nil {
				return err
			}
			if output == "-" {
				_, err := cmd.OutOrStdout().Write(encoded)
				return err
			}
			if err := os.WriteFile(output, encoded, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			slog.InfoContext(cmd.Context(), "rendered", "title", title, "output", output, "bytes", len(encoded))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title to draw")
	cmd.Flags().StringVarP(&output, "output", "o", "og.png", `Output file, or "-" for stdout`)
	cmd.MarkFlagRequired("title")
	return cmd
}
