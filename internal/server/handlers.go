package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/weekplan/internal/auth"
	"github.com/julianstephens/weekplan/internal/calendar"
	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/planner"
	"github.com/julianstephens/weekplan/internal/storage"
	"github.com/julianstephens/weekplan/internal/utils"
	"github.com/julianstephens/weekplan/internal/validation"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// sequenceRequest is the body of POST /api/sequences. PATCH uses the same
// shape; omitted fields keep their current value.
type sequenceRequest struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Color       *string            `json:"color"`
	DayPattern  *models.DayPattern `json:"dayPattern"`
	CustomDays  []time.Weekday     `json:"customDays"`
	Recurring   *bool              `json:"recurring"`
	StartDate   string             `json:"startDate"`
}

type dateRequest struct {
	Date string `json:"date"`
}

type rolloverResponse struct {
	WeekStart string   `json:"weekStart"`
	Kept      []string `json:"kept"`
	Archived  []string `json:"archived"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps planner, store and calendar errors to HTTP statuses.
func writeFailure(w http.ResponseWriter, err error) {
	if fe, ok := validation.AsFieldErrors(err); ok {
		fields := make(map[string]string, len(fe))
		for field, e := range fe {
			fields[field] = e.Message
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fe.Error(), Fields: fields})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, calendar.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, planner.ErrSequencePaused), errors.Is(err, planner.ErrDayInactive):
		status = http.StatusConflict
	case errors.Is(err, calendar.ErrReadOnly):
		status = http.StatusMethodNotAllowed
	case errors.Is(err, auth.ErrNotSignedIn):
		status = http.StatusUnauthorized
	case errors.Is(err, planner.ErrNoCalendar):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

// decodeBody reads a JSON body into v. An empty body leaves v unchanged.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// dateParam parses a YYYY-MM-DD value in the planner's location. An empty
// value means today.
func (s *Server) dateParam(value string) (time.Time, error) {
	if value == "" {
		return s.planner.Today(), nil
	}
	loc := s.planner.Classifier.Location()
	d, err := utils.ParseDateInLocation(value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s", value, constants.DateFormat)
	}
	return d, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	date, err := s.dateParam(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	view, err := s.planner.Week(r.Context(), date)
	s.mu.Unlock()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRollover(w http.ResponseWriter, r *http.Request) {
	var req dateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := s.dateParam(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	res := s.planner.Rollover(date)
	weekStart := s.planner.WeekStart(date)
	s.mu.Unlock()

	s.recordRollover("api", len(res.Kept), len(res.Archived))
	resp := rolloverResponse{WeekStart: utils.DateKey(weekStart), Kept: []string{}, Archived: []string{}}
	for _, seq := range res.Kept {
		resp.Kept = append(resp.Kept, seq.ID)
	}
	for _, seq := range res.Archived {
		resp.Archived = append(resp.Archived, seq.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSequences(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var seqs []models.Sequence
	if r.URL.Query().Get("archived") == "true" {
		seqs = s.planner.Archived()
	} else {
		seqs = s.planner.Sequences()
	}
	s.mu.Unlock()
	if seqs == nil {
		seqs = []models.Sequence{}
	}
	writeJSON(w, http.StatusOK, seqs)
}

func (s *Server) handleGetSequence(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	seq, err := s.planner.Sequence(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seq)
}

// input overlays req on base.
func (s *Server) input(req sequenceRequest, base models.SequenceInput) (models.SequenceInput, error) {
	in := base
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Color != nil {
		in.Color = *req.Color
	}
	if req.DayPattern != nil {
		in.DayPattern = *req.DayPattern
	}
	if req.CustomDays != nil {
		in.CustomDays = req.CustomDays
	}
	if req.Recurring != nil {
		in.Recurring = req.Recurring
	}
	if req.StartDate != "" {
		d, err := s.dateParam(req.StartDate)
		if err != nil {
			return in, err
		}
		in.StartDate = d
	}
	return in, nil
}

func (s *Server) handleCreateSequence(w http.ResponseWriter, r *http.Request) {
	var req sequenceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := s.input(req, models.SequenceInput{})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	seq, err := s.planner.AddSequence(in)
	s.mu.Unlock()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, seq)
}

func (s *Server) handleUpdateSequence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req sequenceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.planner.Sequence(id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	base := current.Input()
	// A new pattern other than custom must not inherit the old day list.
	if req.DayPattern != nil && req.CustomDays == nil {
		base.CustomDays = nil
	}
	in, err := s.input(req, base)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	seq, err := s.planner.EditSequence(id, in)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seq)
}

func (s *Server) handleDeleteSequence(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.planner.Delete(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req dateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := s.dateParam(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	seq, err := s.planner.ToggleDay(chi.URLParam(r, "id"), date)
	s.mu.Unlock()
	if err != nil {
		writeFailure(w, err)
		return
	}
	s.metrics.DaysToggled.Inc()
	writeJSON(w, http.StatusOK, seq)
}

// sequenceAction adapts a planner method that takes only an id.
func (s *Server) sequenceAction(fn func(id string) (models.Sequence, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		seq, err := fn(chi.URLParam(r, "id"))
		s.mu.Unlock()
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, seq)
	}
}

// handleListEvents lists events in [start, end]. Both bounds are dates and
// default to the current week.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := s.dateParam(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.Get("start") == "" {
		start = s.planner.WeekStart(start)
	}
	end := start.AddDate(0, 0, constants.DaysInWeek)
	if v := q.Get("end"); v != "" {
		last, err := s.dateParam(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		end = last.AddDate(0, 0, 1)
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "end must not be before start")
		return
	}

	events, err := s.planner.ListEvents(r.Context(), start, end)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var draft models.EventDraft
	if err := decodeBody(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	e, err := s.planner.AddEvent(r.Context(), draft)
	if err != nil {
		writeFailure(w, err)
		return
	}
	s.metrics.EventsCreated.Inc()
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.planner.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, err)
		return
	}
	s.metrics.EventsDeleted.Inc()
	w.WriteHeader(http.StatusNoContent)
}
