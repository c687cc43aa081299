package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/riskengine/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCatalog(t *testing.T) {
	ctx := context.Background()

	Convey("Given the sample catalog", t, func() {
		c, err := repository.LoadCatalog(filepath.Join("testdata", "catalog.yaml"))
		So(err, ShouldBeNil)
		So(c.Len(), ShouldEqual, 8)
		So(c.Health(ctx), ShouldBeTrue)

		Convey("When searching by keywords", func() {
			found, err := c.Search(ctx, []string{"Data Privacy!", "third party"})

			Convey("Then matches come back in catalog order", func() {
				So(err, ShouldBeNil)
				ids := make([]string, len(found))
				for i, r := range found {
					ids[i] = r.RiskID
				}
				So(ids, ShouldResemble, []string{"R.AIR.001", "R.AIR.003"})
				So(found[0].RiskTitle, ShouldEqual, "Training data privacy leakage")
			})
		})

		Convey("When searching with more than three keywords", func() {
			found, err := c.Search(ctx, []string{"nothing", "nada", "zilch", "chatbot"})

			Convey("Then the extra keywords are ignored", func() {
				So(err, ShouldBeNil)
				So(found, ShouldBeEmpty)
			})
		})

		Convey("When every keyword is blank", func() {
			found, err := c.Search(ctx, []string{"", "  ", "!!"})

			Convey("Then nothing matches", func() {
				So(err, ShouldBeNil)
				So(found, ShouldBeEmpty)
			})
		})

		Convey("When a keyword matches every risk", func() {
			found, _ := c.Search(ctx, []string{"a", "model"})

			Convey("Then each risk appears once", func() {
				So(len(found), ShouldEqual, 8)
			})
		})

		Convey("When looking up controls", func() {
			controls, err := c.ControlsFor(ctx, []string{"R.AIR.001", "R.AIR.004"})

			Convey("Then every id has an entry", func() {
				So(err, ShouldBeNil)
				So(len(controls["R.AIR.001"]), ShouldEqual, 1)
				So(controls["R.AIR.001"][0].ControlID, ShouldEqual, "C.AIIM.1")
				So(controls["R.AIR.004"], ShouldNotBeNil)
				So(len(controls["R.AIR.004"]), ShouldEqual, 0)
			})
		})

		Convey("When a malformed id is requested", func() {
			_, err := c.ControlsFor(ctx, []string{"R.AIR.001; DROP TABLE"})
			So(errors.Is(err, repository.ErrInvalidRiskID), ShouldBeTrue)
		})

		Convey("When fetching a single risk", func() {
			r, err := c.Risk(ctx, "R.AIR.007")
			So(err, ShouldBeNil)
			So(r.RiskTitle, ShouldEqual, "Prompt injection")

			missing, err := c.Risk(ctx, "R.AIR.999")
			So(err, ShouldBeNil)
			So(missing, ShouldBeNil)
		})
	})

	Convey("Given a catalog file that changes on disk", t, func() {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		So(os.WriteFile(path, []byte("risks:\n  - id: R.AIR.001\n    title: One\n"), 0o600), ShouldBeNil)
		c, err := repository.LoadCatalog(path)
		So(err, ShouldBeNil)

		Convey("Then a reload picks up the new risks", func() {
			So(os.WriteFile(path, []byte("risks:\n  - id: R.AIR.001\n  - id: R.AIR.002\n"), 0o600), ShouldBeNil)
			So(c.Reload(), ShouldBeNil)
			So(c.Len(), ShouldEqual, 2)
		})

		Convey("And a broken reload keeps the old snapshot", func() {
			So(os.WriteFile(path, []byte("risks:\n  - id: bad\n"), 0o600), ShouldBeNil)
			So(errors.Is(c.Reload(), repository.ErrInvalidCatalog), ShouldBeTrue)
			So(c.Len(), ShouldEqual, 1)
		})
	})

	Convey("Given invalid catalog documents", t, func() {
		cases := []struct{ name, doc string }{
			{"a malformed id", "risks:\n  - id: AIR-1\n"},
			{"a duplicate id", "risks:\n  - id: R.AIR.001\n  - id: R.AIR.001\n"},
			{"an unknown field", "risks:\n  - id: R.AIR.001\n    severity: high\n"},
			{"a dangling control", "risks:\n  - id: R.AIR.001\ncontrols:\n  - id: C.1\n    risks: [R.AIR.002]\n"},
		}
		for _, tc := range cases {
			Convey("Then "+tc.name+" is rejected", func() {
				doc, err := repository.ParseCatalog(strings.NewReader(tc.doc))
				if err == nil {
					_, err = repository.NewCatalog(doc)
				}
				So(errors.Is(err, repository.ErrInvalidCatalog), ShouldBeTrue)
			})
		}
	})

	Convey("Given an in-memory catalog and a cancelled context", t, func() {
		c, err := repository.NewCatalog(repository.CatalogDocument{})
		So(err, ShouldBeNil)
		So(c.Health(ctx), ShouldBeFalse)
		So(errors.Is(c.Reload(), repository.ErrInvalidCatalog), ShouldBeTrue)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = c.Search(cancelled, []string{"x"})
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}

func TestSanitizeAndValidate(t *testing.T) {
	Convey("Given raw keywords", t, func() {
		So(repository.SanitizeKeyword("data'; DROP TABLE risks;--"), ShouldEqual, "data DROP TABLE risks--")
		So(repository.SanitizeKeyword("model_bias-v2"), ShouldEqual, "model_bias-v2")
		So(len(repository.SanitizeKeyword(strings.Repeat("a", 150))), ShouldEqual, 100)
		So(repository.SanitizeKeyword("!!!"), ShouldEqual, "")
	})

	Convey("Given risk ids", t, func() {
		So(repository.ValidateRiskID("R.AIR.001"), ShouldBeNil)
		So(repository.ValidateRiskID("R.DATA.42"), ShouldBeNil)
		So(repository.ValidateRiskID("r.air.001"), ShouldNotBeNil)
		So(repository.ValidateRiskID("R.AIR.001 "), ShouldNotBeNil)
		So(repository.ValidateRiskID("R.AIR."), ShouldNotBeNil)
	})
}
