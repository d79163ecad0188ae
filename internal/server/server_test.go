package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/attrguard/internal/model"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeRunner records the URLs it was asked to scan.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	run   func(ctx context.Context, urls []string) model.Outcome
}

func (f *fakeRunner) Run(ctx context.Context, urls []string) model.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, urls)
	f.mu.Unlock()
	return f.run(ctx, urls)
}

func (f *fakeRunner) lastCall() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func reportRunner(reportPath string) *fakeRunner {
	return &fakeRunner{run: func(_ context.Context, urls []string) model.Outcome {
		rep := model.NewBatchReport("batch-1", model.ProviderSimulated)
		rep.ProviderStatus = "Simulated scanner (forced)"
		for _, u := range urls {
			rep.Results = append(rep.Results, model.URLResult{
				URL:        u,
				RiskLevel:  model.RiskLow,
				Threats:    []string{"Cookie Stuffing"},
				ScanStatus: model.ScanStatusCompleted,
				RawDetections: []model.DetectionRecord{
					{Kind: model.KindCookie, URL: u, Detail: "aff=1", Origin: u, Referer: u},
				},
			})
		}
		rep.TotalScanned = len(urls)
		rep.TotalThreats = len(urls)
		rep.ReportPath = reportPath
		return model.Succeeded(rep)
	}}
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func newTestServer(runner Runner) *Server {
	n := 0
	var mu sync.Mutex
	return New(runner, WithIDGenerator(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return "scan-" + string(rune('0'+n))
	}))
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(reportRunner(""))
	rec := doRequest(t, s.Handler(), http.MethodGet, "/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
	if body["message"] != "attrguard API is running" {
		t.Errorf("unexpected message %q", body["message"])
	}
}

func TestStartScan_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing body", "", "URLs array is required and must not be empty"},
		{"missing urls", `{}`, "URLs array is required and must not be empty"},
		{"urls not an array", `{"urls":"https://a.example"}`, "URLs array is required and must not be empty"},
		{"empty array", `{"urls":[]}`, "URLs array is required and must not be empty"},
		{"malformed JSON", `{"urls":[`, "URLs array is required and must not be empty"},
		{"no valid entries", `{"urls":["not a url", 42, "ftp://files.example"]}`, "No valid URLs provided"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := reportRunner("")
			s := newTestServer(runner)
			rec := doRequest(t, s.Handler(), http.MethodPost, "/api/scan", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			body := decode[errorResponse](t, rec)
			if body.Success {
				t.Error("expected success false")
			}
			if body.Error != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, body.Error)
			}
			if s.Jobs().Len() != 0 {
				t.Errorf("expected no job to be created, got %d", s.Jobs().Len())
			}
		})
	}
}

func TestStartScan_RunsAndCompletes(t *testing.T) {
	t.Parallel()

	runner := reportRunner("")
	s := newTestServer(runner)
	h := s.Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/scan",
		`{"urls":["https://shop.example/deal","nonsense","https://blog.example/post"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	started := decode[startScanResponse](t, rec)
	if !started.Success || started.ScanID == "" {
		t.Fatalf("unexpected start response: %+v", started)
	}
	if started.Message != "Started scanning 2 URLs" {
		t.Errorf("unexpected message %q", started.Message)
	}
	if started.EstimatedTime != 4 {
		t.Errorf("expected estimatedTime 4, got %d", started.EstimatedTime)
	}

	s.Wait()

	got := runner.lastCall()
	if len(got) != 2 || got[0] != "https://shop.example/deal" || got[1] != "https://blog.example/post" {
		t.Errorf("runner received %v, want the two valid URLs in order", got)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/scan/"+started.ScanID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	job := decode[jobResponse](t, rec)
	if !job.Success {
		t.Error("expected success true")
	}
	if job.Status != JobCompleted {
		t.Errorf("expected status completed, got %q", job.Status)
	}
	if job.Progress != 100 || job.Total != 2 {
		t.Errorf("unexpected progress %d/%d", job.Progress, job.Total)
	}
	if len(job.Results) != 2 || job.TotalThreats != 2 {
		t.Errorf("unexpected results %d / threats %d", len(job.Results), job.TotalThreats)
	}
	if job.ScannerType != model.ProviderSimulated || job.ScannerStatus == "" {
		t.Errorf("unexpected scanner %q / %q", job.ScannerType, job.ScannerStatus)
	}
	if job.EndTime == nil {
		t.Error("expected endTime to be set")
	}
}

func TestGetScan_RunningJob(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	runner := &fakeRunner{run: func(_ context.Context, _ []string) model.Outcome {
		<-release
		return model.Succeeded(model.NewBatchReport("b", model.ProviderSimulated))
	}}
	s := newTestServer(runner)
	t.Cleanup(func() {
		close(release)
		s.Wait()
	})

	rec := doRequest(t, s.Handler(), http.MethodPost, "/api/scan", `{"urls":["https://shop.example/"]}`)
	started := decode[startScanResponse](t, rec)

	rec = doRequest(t, s.Handler(), http.MethodGet, "/api/scan/"+started.ScanID, "")
	job := decode[jobResponse](t, rec)
	if job.Status != JobRunning {
		t.Errorf("expected running, got %q", job.Status)
	}
	if job.Progress != 0 || job.EndTime != nil {
		t.Errorf("running job should have no progress or end time: %+v", job.Job)
	}
}

func TestGetScan_FailedOutcome(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{run: func(_ context.Context, _ []string) model.Outcome {
		return model.Failed(model.NewScanError("scan failed", context.DeadlineExceeded))
	}}
	s := newTestServer(runner)

	rec := doRequest(t, s.Handler(), http.MethodPost, "/api/scan", `{"urls":["https://shop.example/"]}`)
	started := decode[startScanResponse](t, rec)
	s.Wait()

	rec = doRequest(t, s.Handler(), http.MethodGet, "/api/scan/"+started.ScanID, "")
	job := decode[jobResponse](t, rec)
	if job.Status != JobError {
		t.Fatalf("expected error status, got %q", job.Status)
	}
	if !strings.HasPrefix(job.Error, "scan failed") {
		t.Errorf("unexpected error %q", job.Error)
	}
}

func TestGetScan_NotFound(t *testing.T) {
	t.Parallel()

	s := newTestServer(reportRunner(""))
	for _, path := range []string{"/api/scan/unknown", "/api/scan/unknown/csv"} {
		rec := doRequest(t, s.Handler(), http.MethodGet, path, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestDownloadCSV(t *testing.T) {
	t.Parallel()

	t.Run("serves the report as an attachment", func(t *testing.T) {
		t.Parallel()

		csvPath := filepath.Join(t.TempDir(), "scan_report.csv")
		content := "type,url,detail,origin,referer\ncookie,https://shop.example/,aff=1,https://shop.example/,https://shop.example/\n"
		if err := os.WriteFile(csvPath, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write csv: %v", err)
		}

		s := newTestServer(reportRunner(csvPath))
		started := decode[startScanResponse](t, doRequest(t, s.Handler(), http.MethodPost, "/api/scan", `{"urls":["https://shop.example/"]}`))
		s.Wait()

		rec := doRequest(t, s.Handler(), http.MethodGet, "/api/scan/"+started.ScanID+"/csv", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, CSVDownloadName) {
			t.Errorf("expected Content-Disposition to name %s, got %q", CSVDownloadName, cd)
		}
		if rec.Body.String() != content {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
	})

	t.Run("404 when the report was not written", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(reportRunner(""))
		started := decode[startScanResponse](t, doRequest(t, s.Handler(), http.MethodPost, "/api/scan", `{"urls":["https://shop.example/"]}`))
		s.Wait()

		rec := doRequest(t, s.Handler(), http.MethodGet, "/api/scan/"+started.ScanID+"/csv", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if body := decode[errorResponse](t, rec); body.Error != "CSV report not found" {
			t.Errorf("unexpected error %q", body.Error)
		}
	})

	t.Run("404 when the file is gone", func(t *testing.T) {
		t.Parallel()

		missing := filepath.Join(t.TempDir(), "deleted.csv")
		s := newTestServer(reportRunner(missing))
		started := decode[startScanResponse](t, doRequest(t, s.Handler(), http.MethodPost, "/api/scan", `{"urls":["https://shop.example/"]}`))
		s.Wait()

		rec := doRequest(t, s.Handler(), http.MethodGet, "/api/scan/"+started.ScanID+"/csv", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if body := decode[errorResponse](t, rec); body.Error != "CSV file not found on disk" {
			t.Errorf("unexpected error %q", body.Error)
		}
	})
}

func TestClose_CancelsRunningScans(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{run: func(ctx context.Context, _ []string) model.Outcome {
		<-ctx.Done()
		return model.Failed(model.NewScanError("scan failed", ctx.Err()))
	}}
	s := newTestServer(runner)

	started := decode[startScanResponse](t, doRequest(t, s.Handler(), http.MethodPost, "/api/scan", `{"urls":["https://shop.example/"]}`))

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	job, ok := s.Jobs().Get(started.ScanID)
	if !ok || job.Status != JobError {
		t.Errorf("expected cancelled job in error state, got %+v", job)
	}
}

func TestCORSHeaders(t *testing.T) {
	t.Parallel()

	s := newTestServer(reportRunner(""))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected Access-Control-Allow-Origin *, got %q", got)
	}
}
