package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/okian/riskengine/internal/domain/model"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o644
)

// Sample is a named example proposal.
type Sample struct {
	File     string
	Proposal model.Proposal
}

// Samples returns the weak, medium and strong example proposals.
func Samples() []Sample {
	return []Sample{
		{
			File: "weak_proposal.json",
			Proposal: model.Proposal{
				CFPID:             "CFP-003",
				Title:             "AI for Everything",
				Description:       "We want to use AI to improve our business operations.",
				TechnicalApproach: "We'll use machine learning models.",
			},
		},
		{
			File: "medium_proposal.json",
			Proposal: model.Proposal{
				CFPID:             "CFP-002",
				Title:             "Customer Support Chatbot",
				Description:       "Deploy an AI chatbot using RAG to answer customer questions based on our documentation.",
				TechnicalApproach: "Fine-tune GPT-4 on our support tickets, use vector database for retrieval.",
				DataSources:       []string{"customer_tickets", "product_docs"},
				Deployment:        "Cloud-hosted API",
			},
		},
		{
			File: "strong_proposal.json",
			Proposal: model.Proposal{
				CFPID:             "CFP-001",
				Title:             "Secure AI-Powered Fraud Detection System",
				Description:       "Build a real-time fraud detection system using ensemble ML models with explainability.",
				TechnicalApproach: "Ensemble of XGBoost and neural networks, SHAP for explainability, A/B testing framework.",
				DataSources:       []string{"transaction_history", "user_behavior", "third_party_risk_scores"},
				DataGovernance:    "PII anonymization, data retention policies, audit logging",
				ModelGovernance:   "Model versioning, performance monitoring, bias testing",
				Deployment:        "Kubernetes cluster with canary deployments",
				SecurityMeasures:  "Input validation, rate limiting, encrypted data at rest and in transit",
			},
		},
	}
}

func newCreateSamplesCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "create-samples",
		Short: "Write sample proposals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := WriteSamples(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range paths {
				if _, err := fmt.Fprintf(out, "%s Created: %s\n", Styles.StatusOK.String(), p); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(out, "\nCreated %d sample proposals in %s\nRun 'riskctl test' to assess them\n", len(paths), dir)
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", defaultSampleDir, "Directory to write samples to")
	return cmd
}

// WriteSamples writes Samples into dir, creating it when needed, and returns
// the written paths.
func WriteSamples(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	samples := Samples()
	paths := make([]string, 0, len(samples))
	for _, s := range samples {
		b, err := json.MarshalIndent(s.Proposal, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", s.File, err)
		}
		path := filepath.Join(dir, s.File)
		if err := os.WriteFile(path, append(b, '\n'), filePermission); err != nil { //nolint:gosec // samples are meant to be shared
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
