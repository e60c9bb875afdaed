package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/posetrack/internal/models"
	"github.com/claude/posetrack/internal/storage"
	"github.com/google/uuid"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestQuerySessions verifies the HTTP client sends the right query params
// and correctly parses the JSON array response.
func TestQuerySessions(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("type"); got != "bridge" {
				t.Errorf("type=%q, want bridge", got)
			}
			if got := r.URL.Query().Get("start"); got == "" {
				t.Error("start param missing")
			}

			score := 82
			writeTestJSON(t, w, []models.SessionRow{
				{
					ID:              uuid.MustParse("79c5a9ae-13ff-4b3c-a0a2-3f2d1c9b6e01"),
					ExerciseType:    "bridge",
					StartedAt:       time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
					DurationSeconds: 300,
					Reps:            12,
					PostureScore:    &score,
				},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)

	sessions, err := client.QuerySessions(context.Background(), start, end, 1, "bridge")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].Reps != 12 {
		t.Errorf("reps=%d, want 12", sessions[0].Reps)
	}
	if *sessions[0].PostureScore != 82 {
		t.Errorf("posture_score=%d, want 82", *sessions[0].PostureScore)
	}
}

// TestGetRangeSummary verifies the HTTP client correctly parses a single struct response.
func TestGetRangeSummary(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/summary": func(w http.ResponseWriter, r *http.Request) {
			avg := 78.5
			writeTestJSON(t, w, storage.RangeSummary{
				Sessions:        14,
				TotalReps:       168,
				AvgPostureScore: &avg,
				ActiveDays:      6,
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	summary, err := client.GetRangeSummary(context.Background(), start, end, 1)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Sessions != 14 {
		t.Errorf("sessions=%d, want 14", summary.Sessions)
	}
	if *summary.AvgPostureScore != 78.5 {
		t.Errorf("avg_posture_score=%f, want 78.5", *summary.AvgPostureScore)
	}
}

// TestGetExerciseTrend verifies the trend endpoint parsing and agg mapping.
func TestGetExerciseTrend(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/trend": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("agg"); got != "weekly" {
				t.Errorf("agg=%q, want weekly", got)
			}
			writeTestJSON(t, w, []storage.TrendPeriod{
				{
					Period: "2026-01-05",
					Exercises: []storage.ExercisePeriodSummary{
						{Type: "bridge", Count: 5, TotalReps: 60},
					},
				},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	periods, err := client.GetExerciseTrend(context.Background(), start, end, "1 week", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(periods) != 1 {
		t.Fatalf("got %d periods, want 1", len(periods))
	}
	if periods[0].Exercises[0].TotalReps != 60 {
		t.Errorf("total_reps=%d, want 60", periods[0].Exercises[0].TotalReps)
	}
}

// TestGetScheduleSummary verifies the schedule endpoint parsing.
func TestGetScheduleSummary(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/schedule": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("agg"); got != "daily" {
				t.Errorf("agg=%q, want daily", got)
			}
			writeTestJSON(t, w, []storage.SchedulePeriod{
				{Period: "2026-01-05", Sessions: 2, ActiveDays: 1, AvgPracticeTime: "09:15"},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)

	periods, err := client.GetScheduleSummary(context.Background(), start, end, "1 day", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(periods) != 1 {
		t.Fatalf("got %d periods, want 1", len(periods))
	}
	if periods[0].AvgPracticeTime != "09:15" {
		t.Errorf("avg_practice_time=%q, want 09:15", periods[0].AvgPracticeTime)
	}
}

// TestGetFormBreakdown verifies the breakdown endpoint and exercise filter param.
func TestGetFormBreakdown(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/breakdown": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("type"); got != "pelvic_tilt" {
				t.Errorf("type=%q, want pelvic_tilt", got)
			}
			writeTestJSON(t, w, storage.FormBreakdownResult{
				TotalSessions:  20,
				ScoredSessions: 18,
				ScoreDistribution: []storage.ScoreBand{
					{Band: "good", ScoreRange: "75-89", Sessions: 10, Pct: 55.6},
				},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	result, err := client.GetFormBreakdown(context.Background(), start, end, 1, "pelvic_tilt")
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalSessions != 20 {
		t.Errorf("total_sessions=%d, want 20", result.TotalSessions)
	}
	if len(result.ScoreDistribution) != 1 {
		t.Fatalf("got %d bands, want 1", len(result.ScoreDistribution))
	}
}

// TestGetExerciseCatalog verifies the exercises endpoint returns a flat array.
func TestGetExerciseCatalog(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, []storage.CatalogExercise{
				{ExerciseType: "bridge", DisplayName: "Bridge", Category: "core", Enabled: true},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	catalog, err := client.GetExerciseCatalog(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog) != 1 {
		t.Fatalf("got %d exercises, want 1", len(catalog))
	}
	if catalog[0].ExerciseType != "bridge" {
		t.Errorf("exercise_type=%q, want bridge", catalog[0].ExerciseType)
	}
}

// TestBucketToAgg verifies the bucket-to-agg mapping used for trend requests.
func TestBucketToAgg(t *testing.T) {
	cases := []struct {
		bucket string
		want   string
	}{
		{"1 day", "daily"},
		{"1 week", "weekly"},
		{"1 month", "monthly"},
		{"", "weekly"},
	}
	for _, tc := range cases {
		if got := bucketToAgg(tc.bucket); got != tc.want {
			t.Errorf("bucketToAgg(%q) = %q, want %q", tc.bucket, got, tc.want)
		}
	}
}

// TestHTTPClientServerError verifies the client returns an error on non-200 responses.
func TestHTTPClientServerError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"database down"}`))
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	_, err := client.GetExerciseCatalog(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}
