package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/riskengine/internal/domain/model"
	"github.com/okian/riskengine/pkg/logger"
)

// defaultSampleDir is where create-samples writes and test reads.
const defaultSampleDir = "sample_proposals"

// Summary is one line of the test command report.
type Summary struct {
	File     string
	Count    int
	RiskIDs  []string
	Degraded bool
}

func newTestCommand(factory Factory) *cobra.Command {
	var (
		dir     string
		verbose bool
		workers int
	)
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Assess every sample proposal in a directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			jobs, err := loadJobs(dir)
			if err != nil {
				return err
			}

			svc, err := build(ctx, factory)
			if err != nil {
				return err
			}

			start := time.Now()
			results, err := svc.AssessBatch(ctx, jobs, workers)
			if err != nil {
				return fmt.Errorf("batch assessment: %w", err)
			}

			out := cmd.OutOrStdout()
			summaries := make([]Summary, 0, len(results))
			for _, r := range results {
				if verbose {
					if _, err := fmt.Fprintf(out, "%s\n%s\n\n", Styles.Subtitle.Render(r.Job.Name), RenderResult(r.Result)); err != nil {
						return err
					}
				}
				summaries = append(summaries, Summary{
					File:     r.Job.Name,
					Count:    len(r.Result.Risks),
					RiskIDs:  r.Result.RiskIDs(),
					Degraded: r.Result.Degraded(),
				})
			}

			logger.Get().Named("cli").Info(ctx, "sample proposals assessed",
				logger.Int("files", len(summaries)),
				logger.Duration("elapsed", time.Since(start)),
			)
			_, err = fmt.Fprintln(out, RenderSummary(summaries))
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", defaultSampleDir, "Directory with proposal JSON files")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show detailed results")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent assessments (default from config)")
	return cmd
}

// loadJobs reads every *.json file in dir, sorted by name.
func loadJobs(dir string) ([]model.Job, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoProposals, err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoProposals, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s; run create-samples first", ErrNoProposals, dir)
	}
	sort.Strings(paths)

	jobs := make([]model.Job, 0, len(paths))
	for _, path := range paths {
		p, err := readProposal(path)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, model.Job{Name: filepath.Base(path), Proposal: p})
	}
	return jobs, nil
}
