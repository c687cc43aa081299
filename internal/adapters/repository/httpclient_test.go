package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/riskengine/internal/adapters/repository"
	"github.com/okian/riskengine/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

// dbService imitates the database service REST API.
type dbService struct {
	mu      sync.Mutex
	queries []string
	failing bool
}

func (d *dbService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		d.queries = append(d.queries, r.URL.Query().Get("q"))
		failing := d.failing
		d.mu.Unlock()
		if failing {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		results := map[string][]map[string]string{
			"privacy": {
				{"type": "risk", "id": "R.AIR.001", "title": "Privacy", "description": "d1"},
				{"type": "control", "id": "C.AIIM.1", "title": "c", "description": "c"},
				{"type": "risk", "id": "R.AIR.002", "title": "Leakage", "description": "d2"},
			},
			"deployment": {
				{"type": "risk", "id": "R.AIR.002", "title": "Duplicate", "description": "dup"},
				{"type": "risk", "id": "DROP TABLE", "title": "bad", "description": "bad"},
				{"type": "risk", "id": "R.AIR.003", "title": "Deploy", "description": "d3"},
			},
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results[r.URL.Query().Get("q")]})
	})
	mux.HandleFunc("/api/relationships", func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		d.queries = append(d.queries, r.URL.Query().Get("risk_ids"))
		d.mu.Unlock()
		_, _ = w.Write([]byte(`[
			{"source_id":"R.AIR.001","relationship_type":"risk_control","target_id":"C.AIIM.1"},
			{"source_id":"R.AIR.001","relationship_type":"risk_risk","target_id":"R.AIR.009"},
			{"source_id":"R.AIR.002","relationship_type":"risk_control","target_id":"C.AIIM.2"},
			{"source_id":"R.AIR.002","relationship_type":"risk_control","target_id":""}
		]`))
	})
	mux.HandleFunc("/api/risks/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/R.AIR.001") {
			_, _ = w.Write([]byte(`{"id":"R.AIR.001","title":"Privacy","description":"d1"}`))
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		d.mu.Lock()
		failing := d.failing
		d.mu.Unlock()
		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

func (d *dbService) seen() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.queries...)
}

func (d *dbService) setFailing(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failing = v
}

func TestHTTPClient(t *testing.T) {
	ctx := context.Background()

	Convey("Given a database service", t, func() {
		svc := &dbService{}
		srv := httptest.NewServer(svc.handler())
		defer srv.Close()
		client := repository.NewHTTPClient(srv.URL + "/")

		Convey("When searching with sanitized keywords", func() {
			found, err := client.Search(ctx, []string{"privacy", "deployment", "'; --", "bias", "governance"})

			Convey("Then risk results are merged without duplicates or malformed ids", func() {
				So(err, ShouldBeNil)
				ids := make([]string, len(found))
				for i, r := range found {
					ids[i] = r.RiskID
				}
				So(ids, ShouldResemble, []string{"R.AIR.001", "R.AIR.002", "R.AIR.003"})
				So(found[1].RiskTitle, ShouldEqual, "Leakage")
			})

			Convey("And only the first three usable keywords are queried", func() {
				So(svc.seen(), ShouldResemble, []string{"privacy", "deployment", "--"})
			})
		})

		Convey("When fetching controls", func() {
			controls, err := client.ControlsFor(ctx, []string{"R.AIR.001", "R.AIR.002", "R.AIR.003"})

			Convey("Then only risk_control edges become controls", func() {
				So(err, ShouldBeNil)
				So(len(controls["R.AIR.001"]), ShouldEqual, 1)
				So(controls["R.AIR.001"][0].ControlID, ShouldEqual, "C.AIIM.1")
				So(controls["R.AIR.001"][0].ControlTitle, ShouldEqual, "Control C.AIIM.1")
				So(controls["R.AIR.001"][0].ControlDescription, ShouldEqual, "Control for risk R.AIR.001")
				So(len(controls["R.AIR.002"]), ShouldEqual, 1)
				So(controls["R.AIR.003"], ShouldNotBeNil)
				So(len(controls["R.AIR.003"]), ShouldEqual, 0)
				So(svc.seen(), ShouldResemble, []string{"R.AIR.001,R.AIR.002,R.AIR.003"})
			})
		})

		Convey("When a malformed id is passed", func() {
			_, err := client.ControlsFor(ctx, []string{"R.AIR.001", "../admin"})

			Convey("Then no request is made", func() {
				So(errors.Is(err, repository.ErrInvalidRiskID), ShouldBeTrue)
				So(svc.seen(), ShouldBeEmpty)
			})
		})

		Convey("When fetching single risks", func() {
			r, err := client.Risk(ctx, "R.AIR.001")
			So(err, ShouldBeNil)
			So(r.RiskTitle, ShouldEqual, "Privacy")

			missing, err := client.Risk(ctx, "R.AIR.404")
			So(err, ShouldBeNil)
			So(missing, ShouldBeNil)
		})

		Convey("When the service fails", func() {
			svc.setFailing(true)
			_, err := client.Search(ctx, []string{"privacy"})

			Convey("Then the status is reported", func() {
				So(errors.Is(err, repository.ErrUnexpectedStatus), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "503")
				So(client.Health(ctx), ShouldBeFalse)
			})
		})

		Convey("Then a healthy service passes the probe", func() {
			So(client.Health(ctx), ShouldBeTrue)
		})
	})

	Convey("Given an unreachable service", t, func() {
		client := repository.NewHTTPClient("http://127.0.0.1:1", repository.WithTimeout(200*time.Millisecond))
		_, err := client.Search(ctx, []string{"privacy"})

		Convey("Then the error is service unavailable", func() {
			So(errors.Is(err, repository.ErrServiceUnavailable), ShouldBeTrue)
			So(client.Health(ctx), ShouldBeFalse)
		})
	})

	Convey("Given a breaker that trips after two failures", t, func() {
		svc := &dbService{failing: true}
		srv := httptest.NewServer(svc.handler())
		defer srv.Close()
		client := repository.NewHTTPClient(srv.URL, repository.WithBreakerSettings(repository.BreakerSettings{
			Name:         "test-breaker",
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      time.Minute,
			FailureRatio: 0.5,
			MinRequests:  2,
		}))

		for range 2 {
			_, _ = client.Search(ctx, []string{"privacy"})
		}
		before := len(svc.seen())
		_, err := client.Search(ctx, []string{"privacy"})

		Convey("Then further calls fail fast without reaching the service", func() {
			So(errors.Is(err, repository.ErrServiceUnavailable), ShouldBeTrue)
			So(len(svc.seen()), ShouldEqual, before)
		})
	})
}
