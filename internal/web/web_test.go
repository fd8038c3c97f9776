package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"improvfest/internal/config"
	"improvfest/internal/festival"
	"improvfest/internal/generator"
	"improvfest/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	last    *generator.Report
	runErr  error
	runs    int
	nextRep generator.Report
}

func (f *fakeRunner) TryRun(context.Context) (generator.Report, error) {
	f.runs++
	if f.runErr != nil {
		return generator.Report{}, f.runErr
	}
	return f.nextRep, nil
}

func (f *fakeRunner) Last() (generator.Report, bool) {
	if f.last == nil {
		return generator.Report{}, false
	}
	return *f.last, true
}

func testServer(t *testing.T, runner Runner, mutate func(*config.Config)) (*Server, string) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg, runner), cfg.OutputDir
}

func do(s *Server, method, path string, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t, &fakeRunner{}, nil)
	w := do(s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("unexpected health response %d %q", w.Code, w.Body.String())
	}
}

func TestServesOutputDir(t *testing.T) {
	s, dir := testServer(t, &fakeRunner{}, nil)
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>festivals</h1>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w := do(s, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "festivals") {
		t.Fatalf("unexpected index response %d %q", w.Code, w.Body.String())
	}

	w = do(s, http.MethodGet, "/api/unknown", nil)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "not found") {
		t.Fatalf("unknown api path must 404 as JSON, got %d %q", w.Code, w.Body.String())
	}
}

func TestFestivals(t *testing.T) {
	runner := &fakeRunner{}
	s, _ := testServer(t, runner, nil)

	if w := do(s, http.MethodGet, "/api/festivals", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503 before first run, got %d", w.Code)
	}

	asia, _ := model.ContinentBySlug("asia")
	runner.last = &generator.Report{
		RunID: "r1",
		Result: festival.Result{
			Now:        time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
			Continents: model.Continents(),
			Events: []model.Event{{
				Name: "Seoul Impro", When: model.YearMonth{Year: 2025, Month: 10},
				DisplayDate: "Oct 3", Continent: asia,
			}},
		},
	}

	w := do(s, http.MethodGet, "/api/festivals", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	var doc struct {
		Continents []festival.Group `json:"continents"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Continents) != 5 || len(doc.Continents[3].Events) != 1 {
		t.Fatalf("unexpected doc %+v", doc)
	}
}

func TestRefresh(t *testing.T) {
	runner := &fakeRunner{nextRep: generator.Report{RunID: "r2"}}
	s, _ := testServer(t, runner, nil)

	w := do(s, http.MethodPost, "/api/refresh", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"run_id":"r2"`) {
		t.Fatalf("unexpected refresh response %d %q", w.Code, w.Body.String())
	}

	runner.runErr = generator.ErrBusy
	if w := do(s, http.MethodPost, "/api/refresh", nil); w.Code != http.StatusConflict {
		t.Fatalf("want 409 while busy, got %d", w.Code)
	}

	runner.runErr = errors.New("sheets down")
	if w := do(s, http.MethodPost, "/api/refresh", nil); w.Code != http.StatusBadGateway {
		t.Fatalf("want 502 on failure, got %d", w.Code)
	}
}

func TestRefresh_BasicAuth(t *testing.T) {
	runner := &fakeRunner{}
	s, _ := testServer(t, runner, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "pw"}
	})

	if w := do(s, http.MethodPost, "/api/refresh", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 without credentials, got %d", w.Code)
	}
	if runner.runs != 0 {
		t.Fatalf("unauthorized request must not run")
	}

	w := do(s, http.MethodPost, "/api/refresh", func(r *http.Request) { r.SetBasicAuth("admin", "pw") })
	if w.Code != http.StatusOK {
		t.Fatalf("want 200 with credentials, got %d", w.Code)
	}

	if w := do(s, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", w.Code)
	}
}
