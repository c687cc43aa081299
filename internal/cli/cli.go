// Package cli implements the riskctl commands on top of the assessment service.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	service "github.com/okian/riskengine/internal/app"
	"github.com/okian/riskengine/internal/domain/model"
)

// Service is what the commands need from the assessment service.
type Service interface {
	Assess(ctx context.Context, p model.Proposal) model.RiskAssessmentResult
	AssessBatch(ctx context.Context, jobs []model.Job, workers int) ([]model.JobResult, error)
	Health(ctx context.Context) service.Health
}

// Factory builds the service on first use so commands that do not need it,
// such as create-samples, run without configuration.
type Factory func(ctx context.Context) (Service, error)

// Output formats for assess.
const (
	formatText = "text"
	formatJSON = "json"
)

// NewRootCommand returns the riskctl command tree.
func NewRootCommand(factory Factory) *cobra.Command {
	root := &cobra.Command{
		Use:   "riskctl",
		Short: "Risk assessment CLI",
		Long: `Assess proposals against the risk catalog from the command line.

Examples:
  riskctl assess --proposal-file sample_proposals/medium_proposal.json
  riskctl assess --proposal-text "We want to build a chatbot"
  riskctl health
  riskctl create-samples
  riskctl test --verbose`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newAssessCommand(factory),
		newHealthCommand(factory),
		newTestCommand(factory),
		newCreateSamplesCommand(),
	)
	return root
}

func build(ctx context.Context, factory Factory) (Service, error) {
	if factory == nil {
		return nil, ErrMissingService
	}
	return factory(ctx)
}
