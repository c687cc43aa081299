package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand(factory Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check dependency health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := build(cmd.Context(), factory)
			if err != nil {
				return err
			}
			h := svc.Health(cmd.Context())
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), RenderHealth(h)); err != nil {
				return err
			}
			if !h.Healthy() {
				return ErrUnhealthy
			}
			return nil
		},
	}
}
