package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/riskengine/internal/domain/model"
)

// cliProposalTitle is the title given to --proposal-text input.
const cliProposalTitle = "CLI Input Proposal"

func newAssessCommand(factory Factory) *cobra.Command {
	var (
		file   string
		text   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Assess a proposal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != formatText && format != formatJSON {
				return fmt.Errorf("%w: %q", ErrOutputFormat, format)
			}

			var p model.Proposal
			if file != "" {
				var err error
				if p, err = readProposal(file); err != nil {
					return err
				}
			} else {
				p = model.Proposal{Title: cliProposalTitle, Description: text}
			}
			if err := p.Validate(); err != nil {
				return err
			}

			svc, err := build(cmd.Context(), factory)
			if err != nil {
				return err
			}
			res := svc.Assess(cmd.Context(), p)

			out := cmd.OutOrStdout()
			if format == formatJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			_, err = fmt.Fprintln(out, RenderResult(res))
			return err
		},
	}
	cmd.Flags().StringVar(&file, "proposal-file", "", "Path to proposal JSON file")
	cmd.Flags().StringVar(&text, "proposal-text", "", "Proposal text directly")
	cmd.Flags().StringVar(&format, "output-format", formatText, "Output format: text or json")
	cmd.MarkFlagsMutuallyExclusive("proposal-file", "proposal-text")
	cmd.MarkFlagsOneRequired("proposal-file", "proposal-text")
	return cmd
}

func readProposal(path string) (model.Proposal, error) {
	var p model.Proposal
	b, err := os.ReadFile(path) //nolint:gosec // path is an operator supplied flag
	if err != nil {
		return p, fmt.Errorf("%w: %w", ErrReadProposal, err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("%w: %s: %w", ErrReadProposal, path, err)
	}
	return p, nil
}
