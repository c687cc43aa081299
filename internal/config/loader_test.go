package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/okian/riskengine/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults and a key", func() {
			clearConfigEnvVars()
			_ = os.Setenv("GEMINI_API_KEY", "gem-key")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":5005")
				convey.So(cfg.TopN, convey.ShouldEqual, 3)
				convey.So(cfg.LLMAPIKey, convey.ShouldEqual, "gem-key")
			})
		})

		convey.Convey("When no key is available for the hosted endpoint", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should fail validation", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When only OPENAI_API_KEY is set", func() {
			clearConfigEnvVars()
			_ = os.Setenv("OPENAI_API_KEY", "oa-key")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it fills the key", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LLMAPIKey, convey.ShouldEqual, "oa-key")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			clearConfigEnvVars()
			_ = os.Setenv("RISK_ADDR", ":8080")
			_ = os.Setenv("RISK_TOP_N", "5")
			_ = os.Setenv("RISK_MAX_CANDIDATE_RISKS", "20")
			_ = os.Setenv("RISK_LLM_PROVIDER", "scripted")
			_ = os.Setenv("RISK_LLM_TEMPERATURE", "0.2")
			_ = os.Setenv("RISK_FALLBACK_KEYWORDS", "bias, fairness ,,audit")
			_ = os.Setenv("RISK_TRACE_STDOUT", "true")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TopN, convey.ShouldEqual, 5)
				convey.So(cfg.MaxCandidateRisks, convey.ShouldEqual, 20)
				convey.So(cfg.LLMProvider, convey.ShouldEqual, config.ProviderScripted)
				convey.So(cfg.LLMTemperature, convey.ShouldAlmostEqual, 0.2, 0.0001)
				convey.So(cfg.FallbackKeywords, convey.ShouldResemble, []string{"bias", "fairness", "audit"})
				convey.So(cfg.TraceStdout, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			clearConfigEnvVars()
			yamlContent := `
addr: ":9090"
llm_provider: scripted
top_n: 4
max_candidate_risks: 12
database_service_url: ""
catalog_file: "./catalog.yaml"
fallback_keywords:
  - safety
  - consent
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("RISK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.TopN, convey.ShouldEqual, 4)
				convey.So(cfg.MaxCandidateRisks, convey.ShouldEqual, 12)
				convey.So(cfg.DatabaseServiceURL, convey.ShouldEqual, "")
				convey.So(cfg.CatalogFile, convey.ShouldEqual, "./catalog.yaml")
				convey.So(cfg.FallbackKeywords, convey.ShouldResemble, []string{"safety", "consent"})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			clearConfigEnvVars()
			yamlContent := `
addr: ":9090"
llm_provider: scripted
top_n: 4
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("RISK_CONFIG", tmpFile)
			_ = os.Setenv("RISK_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TopN, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			clearConfigEnvVars()
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("RISK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			clearConfigEnvVars()
			_ = os.Setenv("RISK_CONFIG", "/non/existent/risk.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error naming the path", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "/non/existent/risk.yaml")
			})
		})

		convey.Convey("When an env value cannot be decoded", func() {
			clearConfigEnvVars()
			_ = os.Setenv("RISK_LLM_PROVIDER", "scripted")
			_ = os.Setenv("RISK_TOP_N", "three")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When env values break validation", func() {
			clearConfigEnvVars()
			_ = os.Setenv("RISK_LLM_PROVIDER", "scripted")
			_ = os.Setenv("RISK_TOP_N", "40")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an invalid config error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "max_candidate_risks")
			})
		})
	})
}

// clearConfigEnvVars removes RISK_* and the API key fallbacks.
func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "RISK_") {
			_ = os.Unsetenv(name)
		}
	}
	_ = os.Unsetenv("GEMINI_API_KEY")
	_ = os.Unsetenv("OPENAI_API_KEY")
}

// createTempConfigFile creates a temporary YAML config file with the given content.
func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "risk-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
