package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/weekplan/internal/calendar"
	"github.com/julianstephens/weekplan/internal/datestatus"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/planner"
	"github.com/julianstephens/weekplan/internal/storage"
)

// Wednesday, June 12 2024.
var now = time.Date(2024, 6, 12, 14, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, cal calendar.Client) (*Server, *planner.Service) {
	t.Helper()
	slot := storage.NewFileSlot(filepath.Join(t.TempDir(), "sequences.json"))
	if err := slot.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	store := storage.NewSequenceStore(slot)
	store.Load()
	svc := planner.New(store, cal, datestatus.New(datestatus.FixedClock{T: now}, time.UTC), time.Monday)

	srv, err := New(Config{Planner: svc, RolloverCron: "0 0 * * 1"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, svc
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, svc := newTestServer(t, nil)
	if _, err := New(Config{Planner: svc, RolloverCron: "every monday"}); err == nil {
		t.Error("New() with invalid cron expression should fail")
	}
	if _, err := New(Config{}); err == nil {
		t.Error("New() without planner should fail")
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[map[string]string](t, rec)["status"]; got != "ok" {
		t.Errorf("status field = %q, want ok", got)
	}
}

func TestSequenceLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/api/sequences", `{"name":"Read","dayPattern":"FULL_WEEK"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	seq := decode[models.Sequence](t, rec)
	base := "/api/sequences/" + seq.ID

	for _, date := range []string{"2024-06-10", "2024-06-12"} {
		rec = do(t, srv, http.MethodPost, base+"/toggle", `{"date":"`+date+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("toggle %s status = %d, body %s", date, rec.Code, rec.Body)
		}
	}

	rec = do(t, srv, http.MethodGet, "/api/week?date=2024-06-12", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("week status = %d", rec.Code)
	}
	view := decode[planner.WeekView](t, rec)
	if len(view.Days) != 7 || len(view.Sequences) != 1 {
		t.Fatalf("week has %d days and %d rows", len(view.Days), len(view.Sequences))
	}
	want := models.SequenceStats{Completed: 2, Total: 7, Percentage: 29}
	if got := view.Sequences[0].Stats; got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}

	rec = do(t, srv, http.MethodPatch, base, `{"name":"Read more"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", rec.Code, rec.Body)
	}
	edited := decode[models.Sequence](t, rec)
	if edited.Name != "Read more" || len(edited.CompletedDays) != 2 {
		t.Errorf("patched = %+v, want renamed with history kept", edited)
	}

	rec = do(t, srv, http.MethodPost, base+"/pause", "")
	if rec.Code != http.StatusOK || !decode[models.Sequence](t, rec).Paused {
		t.Fatalf("pause status = %d, body %s", rec.Code, rec.Body)
	}
	rec = do(t, srv, http.MethodPost, base+"/toggle", `{"date":"2024-06-11"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("toggle while paused status = %d, want 409", rec.Code)
	}
	do(t, srv, http.MethodPost, base+"/resume", "")

	rec = do(t, srv, http.MethodPost, base+"/clear", "")
	if got := decode[models.Sequence](t, rec); len(got.CompletedDays) != 0 {
		t.Errorf("clear left %v", got.CompletedDays)
	}

	rec = do(t, srv, http.MethodDelete, base, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, base, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestCreateSequenceValidation(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantField string
	}{
		{"missing name", `{"name":"  "}`, http.StatusBadRequest, "name"},
		{"custom without days", `{"name":"Gym","dayPattern":"CUSTOM"}`, http.StatusBadRequest, "customDays"},
		{"unknown field", `{"title":"Gym"}`, http.StatusBadRequest, ""},
		{"bad start date", `{"name":"Gym","startDate":"06/12/2024"}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/sequences", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body)
			}
			if tt.wantField == "" {
				return
			}
			resp := decode[errorResponse](t, rec)
			if resp.Fields[tt.wantField] == "" {
				t.Errorf("fields = %v, want an error for %s", resp.Fields, tt.wantField)
			}
		})
	}
}

func TestRollover(t *testing.T) {
	srv, svc := newTestServer(t, nil)
	once := false
	single, err := svc.AddSequence(models.SequenceInput{Name: "Trip", Recurring: &once})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddSequence(models.SequenceInput{Name: "Read"}); err != nil {
		t.Fatal(err)
	}

	rec := do(t, srv, http.MethodPost, "/api/rollover", `{"date":"2024-06-17"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("rollover status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decode[rolloverResponse](t, rec)
	if resp.WeekStart != "2024-06-17" || len(resp.Kept) != 1 || len(resp.Archived) != 1 {
		t.Errorf("rollover = %+v", resp)
	}

	rec = do(t, srv, http.MethodGet, "/api/sequences?archived=true", "")
	archived := decode[[]models.Sequence](t, rec)
	if len(archived) != 1 || archived[0].ID != single.ID {
		t.Errorf("archived = %+v", archived)
	}

	rec = do(t, srv, http.MethodPost, "/api/sequences/"+single.ID+"/restore", "")
	if rec.Code != http.StatusOK {
		t.Errorf("restore status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestScheduledRollover(t *testing.T) {
	srv, svc := newTestServer(t, nil)
	once := false
	if _, err := svc.AddSequence(models.SequenceInput{Name: "Trip", Recurring: &once}); err != nil {
		t.Fatal(err)
	}

	srv.scheduledRollover()

	if got := len(svc.Sequences()); got != 0 {
		t.Errorf("active sequences after rollover = %d, want 0", got)
	}
	if got := len(svc.Archived()); got != 1 {
		t.Errorf("archived sequences after rollover = %d, want 1", got)
	}
	if entries := srv.cron.Entries(); len(entries) != 1 {
		t.Errorf("cron entries = %d, want 1", len(entries))
	}
}

func TestEvents(t *testing.T) {
	cal := calendar.NewLocalClient(filepath.Join(t.TempDir(), "calendar.ics"), time.UTC)
	srv, _ := newTestServer(t, cal)

	rec := do(t, srv, http.MethodPost, "/api/events",
		`{"summary":"Dentist","startDate":"2024-06-13","startTime":"08:00","endTime":"09:00","notificationMinutes":0}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	created := decode[models.Event](t, rec)
	if created.Reminders == nil || len(created.Reminders.Overrides) != 1 {
		t.Errorf("reminders = %+v, want one override", created.Reminders)
	}

	rec = do(t, srv, http.MethodGet, "/api/events?start=2024-06-10&end=2024-06-16", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	events := decode[[]planner.EventView](t, rec)
	if len(events) != 1 || events[0].Summary != "Dentist" || events[0].TimeLabel != "8:00 AM" {
		t.Fatalf("events = %+v", events)
	}

	rec = do(t, srv, http.MethodPost, "/api/events", `{"summary":"","startDate":"2024-06-13"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid draft status = %d, want 400", rec.Code)
	}

	rec = do(t, srv, http.MethodDelete, "/api/events/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body)
	}
	rec = do(t, srv, http.MethodDelete, "/api/events/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/events?start=2024-06-16&end=2024-06-10", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("reversed range status = %d, want 400", rec.Code)
	}
}

func TestEventsWithoutCalendar(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/api/events", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	do(t, srv, http.MethodGet, "/health", "")
	do(t, srv, http.MethodGet, "/api/sequences/missing", "")

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	body := rec.Body.Bytes()
	for _, want := range []string{
		`weekplan_http_requests_total{method="GET",route="/health",status="200"} 1`,
		`status="404"} 1`,
		`weekplan_last_rollover_sequences{outcome="kept"} 0`,
		`weekplan_last_rollover_sequences{outcome="archived"} 0`,
	} {
		if !bytes.Contains(body, []byte(want)) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsAfterRollover(t *testing.T) {
	srv, svc := newTestServer(t, nil)
	if _, err := svc.AddSequence(models.SequenceInput{Name: "Read"}); err != nil {
		t.Fatalf("AddSequence() error = %v", err)
	}
	if rec := do(t, srv, http.MethodPost, "/api/rollover", `{"date":"2024-06-17"}`); rec.Code != http.StatusOK {
		t.Fatalf("rollover status = %d", rec.Code)
	}

	body := do(t, srv, http.MethodGet, "/metrics", "").Body.Bytes()
	for _, want := range []string{
		`weekplan_rollovers_total{trigger="api"} 1`,
		`weekplan_last_rollover_sequences{outcome="kept"} 1`,
	} {
		if !bytes.Contains(body, []byte(want)) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
