package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bcnelson/blackbox-target-manager/internal/api"
	"github.com/bcnelson/blackbox-target-manager/internal/client"
	"github.com/bcnelson/blackbox-target-manager/internal/console"
	"github.com/bcnelson/blackbox-target-manager/internal/domain"
	"github.com/bcnelson/blackbox-target-manager/internal/service"
	"github.com/bcnelson/blackbox-target-manager/internal/storage/memory"
)

type testEnv struct {
	console *console.Console
	handler http.Handler
	hub     *Hub
	backend *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	svc := service.NewTargetService(memory.New(), logger)
	if err := svc.EnsureDefaultProbes(context.Background()); err != nil {
		t.Fatalf("seeding probes: %v", err)
	}
	backend := httptest.NewServer(api.NewRouter(svc, logger, []string{"*"}))
	t.Cleanup(backend.Close)

	c := console.New(client.New(backend.URL, 5*time.Second, logger), time.Hour, logger)
	t.Cleanup(c.Close)
	if err := c.Bootstrap(context.Background(), console.BootstrapOptions{Attempts: 1}); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	hub := NewHub(renderer, logger)
	srv := NewServer(c, renderer, hub, logger)
	return &testEnv{console: c, handler: srv.Router(), hub: hub, backend: backend}
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path string, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// notice returns the level and message carried by a redirect.
func notice(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body = %s", rec.Code, rec.Body.String())
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location: %v", err)
	}
	return loc.Query().Get("level"), loc.Query().Get("notice")
}

func targetForm(host string) url.Values {
	return url.Values{
		"hostname":   {host},
		"region":     {"US"},
		"zone":       {"z1"},
		"probe_type": {"HTTP"},
		"enabled":    {"on"},
		"probe_ids":  {AllProbesValue},
	}
}

func TestIndexRendersFlash(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/?level=success&notice=Saved+%3Cb%3E", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Saved &lt;b&gt;") {
		t.Errorf("flash not rendered escaped:\n%s", body)
	}
	if !strings.Contains(body, `id="list-surface"`) {
		t.Error("list surface missing")
	}
}

func TestCreateTargetFromForm(t *testing.T) {
	env := newTestEnv(t)

	level, msg := notice(t, env.post(t, "/targets", targetForm("web-01")))
	if level != "success" || !strings.Contains(msg, "web-01") {
		t.Fatalf("notice = %s %q", level, msg)
	}

	snap := env.console.Store.Snapshot()
	if len(snap.Targets) != 1 {
		t.Fatalf("targets = %d, want 1", len(snap.Targets))
	}
	got := snap.Targets[0]
	if len(got.ProbeIDs) != len(domain.DefaultProbes()) {
		t.Errorf("aggregate option should select every probe, got %v", got.ProbeIDs)
	}

	table := env.get(t, "/targets/table", true)
	if !strings.Contains(table.Body.String(), "web-01") {
		t.Errorf("table missing new target:\n%s", table.Body.String())
	}
}

func TestCreateTargetValidation(t *testing.T) {
	env := newTestEnv(t)

	form := targetForm("  ")
	level, msg := notice(t, env.post(t, "/targets", form))
	if level != "error" || !strings.Contains(msg, "hostname") {
		t.Errorf("notice = %s %q", level, msg)
	}

	form = targetForm("web-01")
	form.Set("port", "eighty")
	level, msg = notice(t, env.post(t, "/targets", form))
	if level != "error" || !strings.Contains(msg, "number") {
		t.Errorf("notice = %s %q", level, msg)
	}

	if n := len(env.console.Store.Snapshot().Targets); n != 0 {
		t.Errorf("nothing should be created, got %d", n)
	}
}

func TestEditAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	notice(t, env.post(t, "/targets", targetForm("web-01")))
	id := env.console.Store.Snapshot().Targets[0].ID
	path := "/targets/" + itoa(id)

	edit := env.get(t, path+"/edit", true)
	if edit.Code != http.StatusOK || !strings.Contains(edit.Body.String(), `value="web-01"`) {
		t.Fatalf("edit form = %d\n%s", edit.Code, edit.Body.String())
	}

	form := targetForm("web-01")
	form.Set("region", "EU")
	level, _ := notice(t, env.post(t, path, form))
	if level != "success" {
		t.Errorf("update level = %s", level)
	}
	got, _ := env.console.Store.Target(id)
	if got.Region != "EU" {
		t.Errorf("region = %q", got.Region)
	}

	if rec := env.get(t, "/targets/999/edit", true); rec.Code != http.StatusNotFound {
		t.Errorf("missing target edit status = %d", rec.Code)
	}
}

func TestUpdateKeepsFieldsMissingFromForm(t *testing.T) {
	env := newTestEnv(t)
	port := 443
	created, err := env.console.Gateway.CreateTarget(context.Background(), domain.TargetFields{
		Hostname:  "web-01",
		Region:    "US",
		Zone:      "z1",
		ProbeType: domain.ProbeTypeHTTP,
		Enabled:   true,
		Port:      &port,
		Protocol:  "https",
		Path:      "/healthz",
	})
	if err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}
	path := "/targets/" + itoa(created.ID)

	form := url.Values{
		"hostname":   {"web-01"},
		"region":     {"EU"},
		"zone":       {"z1"},
		"probe_type": {"HTTP"},
		"enabled":    {"false", "on"},
	}
	if level, msg := notice(t, env.post(t, path, form)); level != "success" {
		t.Fatalf("update notice = %s %q", level, msg)
	}
	got, err := env.console.LookupTarget(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("LookupTarget: %v", err)
	}
	if got.Region != "EU" {
		t.Errorf("region = %q, want EU", got.Region)
	}
	if got.Protocol != "https" || got.Path != "/healthz" {
		t.Errorf("protocol/path = %q %q, want kept", got.Protocol, got.Path)
	}
	if got.Port == nil || *got.Port != 443 {
		t.Errorf("port = %v, want 443", got.Port)
	}
	if !got.Enabled {
		t.Error("checked box should keep the target enabled")
	}

	// An unchecked box sends only the hidden value; an empty port clears it.
	form = url.Values{"enabled": {"false"}, "port": {""}}
	if level, msg := notice(t, env.post(t, path, form)); level != "success" {
		t.Fatalf("second update notice = %s %q", level, msg)
	}
	got, err = env.console.LookupTarget(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("LookupTarget: %v", err)
	}
	if got.Enabled {
		t.Error("unchecked box should disable the target")
	}
	if got.Port != nil {
		t.Errorf("port = %d, want cleared", *got.Port)
	}
	if got.Protocol != "https" || got.Region != "EU" {
		t.Errorf("untouched fields changed: protocol %q region %q", got.Protocol, got.Region)
	}
}

func TestUpdateMissingTarget(t *testing.T) {
	env := newTestEnv(t)
	level, msg := notice(t, env.post(t, "/targets/999", targetForm("ghost")))
	if level != "error" || msg == "" {
		t.Errorf("notice = %s %q", level, msg)
	}
}

func TestHealthReportsBackend(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/health", false)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"backend":"ok"`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}

	env.backend.Close()
	rec = env.get(t, "/health", false)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"backend":"unreachable"`) {
		t.Errorf("health after backend stop = %d %s", rec.Code, rec.Body.String())
	}
}

func TestIndexShowsStatistics(t *testing.T) {
	env := newTestEnv(t)
	notice(t, env.post(t, "/targets", targetForm("web-01")))
	off := targetForm("web-02")
	off.Del("enabled")
	notice(t, env.post(t, "/targets", off))

	body := env.get(t, "/", false).Body.String()
	if !strings.Contains(body, "2 targets: 1 enabled, 1 disabled") {
		t.Errorf("summary line missing:\n%s", body)
	}
}

func TestSelectionAndBatch(t *testing.T) {
	env := newTestEnv(t)
	for _, h := range []string{"a", "b", "c"} {
		notice(t, env.post(t, "/targets", targetForm(h)))
	}
	targets := env.console.Store.Snapshot().Targets
	first, second := targets[0].ID, targets[1].ID

	// htmx toggles re-render the list in place.
	req := httptest.NewRequest(http.MethodPost, "/selection/"+itoa(first)+"/toggle", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "1 selected") {
		t.Fatalf("toggle fragment = %d\n%s", rec.Code, rec.Body.String())
	}
	env.post(t, "/selection/"+itoa(second)+"/toggle", nil)

	level, msg := notice(t, env.post(t, "/batch/disable", nil))
	if level != "success" || !strings.Contains(msg, "2 target(s) disabled") {
		t.Fatalf("disable notice = %s %q", level, msg)
	}
	if env.console.Store.HasSelection() {
		t.Error("selection should be cleared after a batch")
	}
	for _, tg := range env.console.Store.Snapshot().Targets {
		if want := tg.ID != first && tg.ID != second; tg.Enabled != want {
			t.Errorf("target %d enabled = %v, want %v", tg.ID, tg.Enabled, want)
		}
	}

	env.post(t, "/selection/all", nil)
	level, msg = notice(t, env.post(t, "/batch/delete", nil))
	if level != "success" || !strings.Contains(msg, "3") {
		t.Errorf("delete notice = %s %q", level, msg)
	}
	if n := len(env.console.Store.Snapshot().Targets); n != 0 {
		t.Errorf("targets after delete = %d", n)
	}

	if rec := env.post(t, "/batch/explode", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown batch op status = %d", rec.Code)
	}
}

func TestBatchWithoutSelection(t *testing.T) {
	env := newTestEnv(t)
	level, msg := notice(t, env.post(t, "/batch/enable", nil))
	if level != "error" || msg == "" {
		t.Errorf("notice = %s %q", level, msg)
	}
}

func TestDeleteSingleTarget(t *testing.T) {
	env := newTestEnv(t)
	notice(t, env.post(t, "/targets", targetForm("web-01")))
	id := env.console.Store.Snapshot().Targets[0].ID

	level, _ := notice(t, env.post(t, "/targets/"+itoa(id)+"/delete", nil))
	if level != "success" {
		t.Errorf("level = %s", level)
	}

	level, msg := notice(t, env.post(t, "/targets/"+itoa(id)+"/delete", nil))
	if level != "error" || !strings.Contains(msg, itoa(id)) {
		t.Errorf("second delete notice = %s %q", level, msg)
	}
}

func TestSearchKeepsFilter(t *testing.T) {
	env := newTestEnv(t)
	notice(t, env.post(t, "/targets", targetForm("web-01")))
	eu := targetForm("db-01")
	eu.Set("region", "EU")
	notice(t, env.post(t, "/targets", eu))

	rec := env.get(t, "/search?q=region%3DEU", true)
	body := rec.Body.String()
	if !strings.Contains(body, "db-01") || strings.Contains(body, "web-01") {
		t.Fatalf("search fragment:\n%s", body)
	}
	if env.console.Sync.Filter() != "region=EU" {
		t.Errorf("filter = %q", env.console.Sync.Filter())
	}

	// A later mutation reloads with the same filter.
	notice(t, env.post(t, "/targets", targetForm("web-02")))
	for _, tg := range env.console.Store.Snapshot().Targets {
		if tg.Region != "EU" {
			t.Errorf("filter lost after mutation, saw %s", tg.Hostname)
		}
	}
}

func TestHTMXRedirect(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/targets", strings.NewReader(targetForm("web-01").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if loc := rec.Header().Get("HX-Redirect"); !strings.HasPrefix(loc, "/?") {
		t.Errorf("HX-Redirect = %q", loc)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
