package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/avesk/pickboard/internal/adapters/http/api"
	"github.com/avesk/pickboard/internal/directory"
	"github.com/avesk/pickboard/internal/domain/types"
	"github.com/avesk/pickboard/internal/domain/window"
	"github.com/avesk/pickboard/internal/ingest"
)

// fakeDeps implements api.Dependencies with canned responses.
type fakeDeps struct {
	stats     types.PickerStats
	rankings  types.RankingsView
	detail    types.PickerDetail
	uploadDup bool
	uploadErr error

	lastPickerID string
	lastFilter   string
	lastCohort   string
	lastUpload   string
}

func (f *fakeDeps) GetPickerStats(_ context.Context, pickerID, filter string) (types.PickerStats, error) {
	if _, err := window.ParseFilter(filter); err != nil {
		return types.PickerStats{}, err
	}
	f.lastPickerID, f.lastFilter = pickerID, filter
	return f.stats, nil
}

func (f *fakeDeps) GetRankings(_ context.Context, filter, cohort string) (types.RankingsView, error) {
	if _, err := window.ParseFilter(filter); err != nil {
		return types.RankingsView{}, err
	}
	f.lastFilter, f.lastCohort = filter, cohort
	return f.rankings, nil
}

func (f *fakeDeps) GetPickerDetail(_ context.Context, pickerID, filter string) (types.PickerDetail, error) {
	if _, err := window.ParseFilter(filter); err != nil {
		return types.PickerDetail{}, err
	}
	f.lastPickerID = pickerID
	return f.detail, nil
}

func (f *fakeDeps) BuildReport(_ context.Context, filter, cohort string, w io.Writer) (string, error) {
	if _, err := window.ParseFilter(filter); err != nil {
		return "", err
	}
	fmt.Fprintln(w, "Rank,Picker ID,Picklists,Items Picked,Items Lost,Score")
	fmt.Fprintln(w, "1,alice,2,5,0,5")
	return "cohort1_rankings_today_20251112_140000.csv", nil
}

func (f *fakeDeps) IngestUpload(_ context.Context, r io.Reader, filename string) (ingest.Summary, bool, error) {
	if f.uploadErr != nil {
		return ingest.Summary{}, false, f.uploadErr
	}
	body, _ := io.ReadAll(r)
	f.lastUpload = string(body)
	return ingest.Summary{Filename: filename, RowsInserted: 2, PickersAdded: 1}, f.uploadDup, nil
}

func (f *fakeDeps) ImportCohorts(_ context.Context, _ io.Reader) (directory.ImportSummary, error) {
	return directory.ImportSummary{}, nil
}

type fakeStats struct{}

func (fakeStats) GetStats(_ context.Context) map[string]any {
	return map[string]any{"total_pickers": 4}
}

func newTestServer(deps *fakeDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, fakeStats{}).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestPickerRoutes(t *testing.T) {
	convey.Convey("Given a running API server", t, func() {
		deps := &fakeDeps{
			stats: types.PickerStats{Score: 7, Rank: 2, TotalPickers: 9},
			detail: types.PickerDetail{
				PickerID: "alice",
				Details:  []types.DetailRow{{PicklistID: "P1", Status: "COMPLETED"}},
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		convey.Convey("When GET /api/picker/alice/stats", func() {
			resp, err := http.Get(srv.URL + "/api/picker/alice/stats?filter=today")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then the stats payload comes back", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				var got types.PickerStats
				convey.So(json.NewDecoder(resp.Body).Decode(&got), convey.ShouldBeNil)
				convey.So(got.Score, convey.ShouldEqual, 7)
				convey.So(got.Rank, convey.ShouldEqual, 2)
				convey.So(deps.lastPickerID, convey.ShouldEqual, "alice")
			})
		})

		convey.Convey("When GET /api/picker/alice/detail", func() {
			resp, err := http.Get(srv.URL + "/api/picker/alice/detail")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then the detail payload comes back", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				var got types.PickerDetail
				convey.So(json.NewDecoder(resp.Body).Decode(&got), convey.ShouldBeNil)
				convey.So(len(got.Details), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the filter is invalid", func() {
			resp, err := http.Get(srv.URL + "/api/picker/alice/stats?filter=last_month")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then the server answers 400", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusBadRequest)
			})
		})

		convey.Convey("When the picker path is malformed", func() {
			resp, err := http.Get(srv.URL + "/api/picker//stats")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When the picker action is unknown", func() {
			resp, err := http.Get(srv.URL + "/api/picker/alice/history")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRankingsRoute(t *testing.T) {
	convey.Convey("Given a running API server", t, func() {
		deps := &fakeDeps{
			rankings: types.RankingsView{
				Rankings:     []types.Entry{{Rank: 1, PickerID: "alice", Score: 5}},
				TotalPickers: 1,
				DailyAvg:     5,
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		convey.Convey("When GET /api/rankings with filter and cohort", func() {
			resp, err := http.Get(srv.URL + "/api/rankings?filter=this_week&cohort=2")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then the view and the query params pass through", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				var got types.RankingsView
				convey.So(json.NewDecoder(resp.Body).Decode(&got), convey.ShouldBeNil)
				convey.So(got.TotalPickers, convey.ShouldEqual, 1)
				convey.So(deps.lastFilter, convey.ShouldEqual, "this_week")
				convey.So(deps.lastCohort, convey.ShouldEqual, "2")
			})
		})

		convey.Convey("When the method is POST", func() {
			resp, err := http.Post(srv.URL+"/api/rankings", "application/json", nil)
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestReportRoute(t *testing.T) {
	convey.Convey("Given a running API server", t, func() {
		srv := newTestServer(&fakeDeps{})
		defer srv.Close()

		convey.Convey("When GET /api/report", func() {
			resp, err := http.Get(srv.URL + "/api/report?filter=today&cohort=1")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then a CSV attachment is served", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(resp.Header.Get("Content-Type"), convey.ShouldStartWith, "text/csv")
				convey.So(resp.Header.Get("Content-Disposition"), convey.ShouldContainSubstring,
					"cohort1_rankings_today_20251112_140000.csv")

				body, err := io.ReadAll(resp.Body)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(body), convey.ShouldStartWith, "Rank,Picker ID")
			})
		})

		convey.Convey("When the filter is invalid", func() {
			resp, err := http.Get(srv.URL + "/api/report?filter=nope")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusBadRequest)
		})
	})
}

func uploadRequest(t *testing.T, url, field, filename, body string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url+"/api/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestUploadRoute(t *testing.T) {
	convey.Convey("Given a running API server", t, func() {
		deps := &fakeDeps{}
		srv := newTestServer(deps)
		defer srv.Close()

		convey.Convey("When a CSV is uploaded in the csv_file field", func() {
			resp := uploadRequest(t, srv.URL, "csv_file", "export.csv", "header\nrow\n")
			defer resp.Body.Close()

			convey.Convey("Then the ingestion summary comes back", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				var got map[string]any
				convey.So(json.NewDecoder(resp.Body).Decode(&got), convey.ShouldBeNil)
				convey.So(got["success"], convey.ShouldEqual, true)
				convey.So(got["rows_inserted"], convey.ShouldEqual, 2)
				convey.So(deps.lastUpload, convey.ShouldEqual, "header\nrow\n")
			})
		})

		convey.Convey("When the field name is wrong", func() {
			resp := uploadRequest(t, srv.URL, "file", "export.csv", "data")
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When the file is not a CSV", func() {
			resp := uploadRequest(t, srv.URL, "csv_file", "export.txt", "data")
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When the file was already processed", func() {
			deps.uploadDup = true
			resp := uploadRequest(t, srv.URL, "csv_file", "export.csv", "data")
			defer resp.Body.Close()

			convey.Convey("Then the response flags the duplicate", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				var got map[string]any
				convey.So(json.NewDecoder(resp.Body).Decode(&got), convey.ShouldBeNil)
				convey.So(got["duplicate"], convey.ShouldEqual, true)
			})
		})
	})
}

func TestStatsRoute(t *testing.T) {
	convey.Convey("Given a running API server", t, func() {
		srv := newTestServer(&fakeDeps{})
		defer srv.Close()

		convey.Convey("When GET /stats", func() {
			resp, err := http.Get(srv.URL + "/stats")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then operational counters are returned", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				var got map[string]any
				convey.So(json.NewDecoder(resp.Body).Decode(&got), convey.ShouldBeNil)
				convey.So(got["total_pickers"], convey.ShouldEqual, 4)
			})
		})
	})
}

func TestHealthRoute(t *testing.T) {
	convey.Convey("Given a running API server", t, func() {
		srv := newTestServer(&fakeDeps{})
		defer srv.Close()

		convey.Convey("When GET /healthz", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then metrics exposition is served", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				body, err := io.ReadAll(resp.Body)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(body), convey.ShouldContainSubstring, "pickboard_engine")
			})
		})
	})
}
