package tracing_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/okian/riskengine/pkg/tracing"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	Convey("Given tracing disabled", t, func() {
		shutdown, err := tracing.Init(context.Background(), tracing.Config{ServiceName: "test"})

		Convey("Then a no-op shutdown is returned", func() {
			So(err, ShouldBeNil)
			So(shutdown(context.Background()), ShouldBeNil)
		})
	})

	Convey("Given tracing to a buffer", t, func() {
		var buf bytes.Buffer
		shutdown, err := tracing.Init(context.Background(), tracing.Config{
			ServiceName: "test", ServiceVersion: "0.0.1", Stdout: true, Writer: &buf,
		})
		So(err, ShouldBeNil)

		Convey("When a span ends and the provider shuts down", func() {
			_, span := tracing.Tracer("unit").Start(context.Background(), "unit.span")
			span.End()
			So(shutdown(context.Background()), ShouldBeNil)

			Convey("Then the span is exported", func() {
				So(buf.String(), ShouldContainSubstring, "unit.span")
			})
		})
	})
}
