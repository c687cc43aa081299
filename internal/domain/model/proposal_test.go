package model_test

import (
	"encoding/json"
	"testing"
	"time"

	model "github.com/okian/riskengine/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestProposalFormat(t *testing.T) {
	convey.Convey("Given a fully populated proposal", t, func() {
		p := model.Proposal{
			Title:             "Fraud Detection",
			Description:       "Detect fraud in real time",
			TechnicalApproach: "XGBoost ensemble",
			DataSources:       []string{"transactions", "user_behavior"},
			Deployment:        "Kubernetes",
			DataGovernance:    "PII anonymization",
			ModelGovernance:   "Versioning",
			SecurityMeasures:  "Encryption at rest",
			AdditionalFields: model.Fields{
				{Key: "budget", Value: "100k"},
				{Key: "owner", Value: "risk team"},
			},
		}

		convey.Convey("When formatting it", func() {
			text := p.Format()

			convey.Convey("Then blocks follow the fixed order separated by blank lines", func() {
				expected := "Title: Fraud Detection\n\n" +
					"Description: Detect fraud in real time\n\n" +
					"Technical Approach: XGBoost ensemble\n\n" +
					"Data Sources: transactions, user_behavior\n\n" +
					"Deployment: Kubernetes\n\n" +
					"Data Governance: PII anonymization\n\n" +
					"Model Governance: Versioning\n\n" +
					"Security Measures: Encryption at rest\n\n" +
					"budget: 100k\n\n" +
					"owner: risk team"
				convey.So(text, convey.ShouldEqual, expected)
			})
		})
	})

	convey.Convey("Given a proposal with only a description", t, func() {
		p := model.Proposal{Description: "Deploy a chatbot using RAG over support tickets"}

		convey.Convey("Then absent fields are omitted without placeholders", func() {
			convey.So(p.Format(), convey.ShouldEqual, "Description: Deploy a chatbot using RAG over support tickets")
		})
	})

	convey.Convey("Given a proposal with empty data sources and blank fields", t, func() {
		p := model.Proposal{Title: "  ", Description: "x", DataSources: []string{}}

		convey.Convey("Then they are skipped", func() {
			convey.So(p.Format(), convey.ShouldEqual, "Description: x")
		})
	})
}

func TestFieldsJSON(t *testing.T) {
	convey.Convey("Given a proposal JSON document with additional fields", t, func() {
		raw := `{"description":"d","additional_fields":{"zeta":"last","alpha":1,"nested":{"k":"v"}}}`

		convey.Convey("When decoding it", func() {
			var p model.Proposal
			err := json.Unmarshal([]byte(raw), &p)

			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the key order is preserved", func() {
				convey.So(len(p.AdditionalFields), convey.ShouldEqual, 3)
				convey.So(p.AdditionalFields[0].Key, convey.ShouldEqual, "zeta")
				convey.So(p.AdditionalFields[1].Key, convey.ShouldEqual, "alpha")
				convey.So(p.AdditionalFields[2].Key, convey.ShouldEqual, "nested")
			})

			convey.Convey("And values are rendered as text", func() {
				convey.So(p.Format(), convey.ShouldEqual, "Description: d\n\nzeta: last\n\nalpha: 1\n\nnested: {\"k\":\"v\"}")
			})

			convey.Convey("And encoding keeps the same order", func() {
				b, err := json.Marshal(p.AdditionalFields)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(b), convey.ShouldEqual, `{"zeta":"last","alpha":1,"nested":{"k":"v"}}`)
			})
		})
	})

	convey.Convey("Given additional fields that are not an object", t, func() {
		var p model.Proposal
		err := json.Unmarshal([]byte(`{"description":"d","additional_fields":[1,2]}`), &p)

		convey.Convey("Then decoding fails", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given With on a proposal", t, func() {
		base := model.Proposal{Description: "d", AdditionalFields: model.Fields{{Key: "a", Value: "1"}}}
		extended := base.With("cfp_context", map[string]any{"id": "CFP-1"})

		convey.Convey("Then the original is untouched", func() {
			convey.So(len(base.AdditionalFields), convey.ShouldEqual, 1)
			convey.So(len(extended.AdditionalFields), convey.ShouldEqual, 2)
			convey.So(extended.AdditionalFields[1].Key, convey.ShouldEqual, "cfp_context")
		})
	})
}

func TestResultHelpers(t *testing.T) {
	convey.Convey("Given a result with real and sentinel entries", t, func() {
		now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		r := model.NewResult(now, []model.RiskAssessment{
			{RiskID: "R.AIR.001"},
			model.UnresolvedAssessment(),
		})

		convey.Convey("Then it is stamped and flagged as degraded", func() {
			convey.So(r.AssessmentID, convey.ShouldNotBeEmpty)
			convey.So(r.Timestamp, convey.ShouldEqual, now)
			convey.So(r.Degraded(), convey.ShouldBeTrue)
			convey.So(r.RiskIDs(), convey.ShouldResemble, []string{"R.AIR.001", "N/A"})
		})
	})

	convey.Convey("Given an error sentinel", t, func() {
		a := model.ErrorAssessment("boom")

		convey.Convey("Then it carries the fixed texts and empty controls", func() {
			convey.So(a.RiskID, convey.ShouldEqual, "ERROR")
			convey.So(a.RiskTitle, convey.ShouldEqual, "Assessment Error")
			convey.So(a.RiskDescription, convey.ShouldEqual, "An error occurred during risk assessment")
			convey.So(a.Explanation, convey.ShouldEqual, "Error: boom")
			convey.So(a.Controls, convey.ShouldNotBeNil)
			convey.So(len(a.Controls), convey.ShouldEqual, 0)
		})
	})
}
