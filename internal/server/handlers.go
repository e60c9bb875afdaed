package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/posetrack/internal/models"
	"github.com/claude/posetrack/internal/track"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type startSessionRequest struct {
	Exercise string `json:"exercise"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	exercise, known := models.NormalizeExerciseType(req.Exercise)
	if !known {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown exercise: " + req.Exercise})
		return
	}

	enabled, err := s.db.IsExerciseEnabled(r.Context(), exercise)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !enabled {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise disabled: " + exercise})
		return
	}

	sess, err := s.engine.StartSession(userID, exercise)
	if err != nil {
		s.log.Error("starting session", "exercise", exercise, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":            sess.ID,
		"exercise_type": sess.ExerciseType,
		"started_at":    sess.StartedAt,
	})
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}

	var batch models.FrameBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if len(batch.Frames) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no frames in batch"})
		return
	}

	result, err := s.engine.ProcessFrames(id, batch)
	if err != nil {
		if errors.Is(err, track.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type stopSessionRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}

	// Notes are optional; an empty body is fine.
	var req stopSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	row, err := s.engine.StopSession(r.Context(), id, req.Notes)
	if err != nil {
		if errors.Is(err, track.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return
		}
		s.log.Error("stopping session", "session", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleLiveSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.LiveSessions())
}

func (s *Server) handleQuerySessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	typeFilter := r.URL.Query().Get("type")
	if typeFilter != "" {
		if normalized, known := models.NormalizeExerciseType(typeFilter); known {
			typeFilter = normalized
		}
	}

	sessions, err := s.db.QuerySessions(r.Context(), start, end, userID, typeFilter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}

	detail, err := s.db.GetSession(r.Context(), id, userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleSessionTimeline(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}

	bucket := 5
	if v := r.URL.Query().Get("bucket_sec"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			bucket = n
		}
	}

	points, err := s.db.GetScoreTimeline(r.Context(), id, bucket)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	return parseTimeRangeDays(r, 7)
}

func parseTimeRangeDays(r *http.Request, defaultDays int) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		end = time.Now()
		start = end.AddDate(0, 0, -defaultDays)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
