package mcp

import (
	"context"
	"time"

	"github.com/claude/posetrack/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

// analysisTimeRange returns start/end defaulting to the last 12 weeks, the
// window the trend and consistency tools look at.
func analysisTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -84)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetExerciseSessions = mcp.NewTool("get_exercise_sessions",
	mcp.WithDescription("Query recorded exercise sessions. Returns per-session duration, rep count, posture score and accuracy."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("type", mcp.Description("Filter by exercise type (e.g. 'bridge', 'pelvic_tilt')")),
)

var toolGetSessionStats = mcp.NewTool("get_session_stats",
	mcp.WithDescription("Aggregate session statistics over a time range: session count, total reps, practice time, average posture score, active days."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
)

var toolGetExerciseTrend = mcp.NewTool("get_exercise_trend",
	mcp.WithDescription("Per-period training trend: session counts, reps, duration and posture score by exercise type, plus period totals."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 12 weeks ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to '1 week'."), mcp.Enum("1 day", "1 week", "1 month")),
)

var toolGetScheduleConsistency = mcp.NewTool("get_schedule_consistency",
	mcp.WithDescription("Practice schedule analysis per period: sessions, active days, average time of day the user practices and its spread. A tight spread means a settled routine."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 12 weeks ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to '1 week'."), mcp.Enum("1 day", "1 week", "1 month")),
)

var toolGetFormBreakdown = mcp.NewTool("get_form_breakdown",
	mcp.WithDescription("Posture score distribution across sessions, per-exercise form stats, and optional day-by-day progression for one exercise."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 12 weeks ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Exercise type to include day-by-day progression for (e.g. 'bridge')")),
)

var toolComparePeriods = mcp.NewTool("compare_periods",
	mcp.WithDescription("Compare aggregate session statistics between two time periods (e.g. this week vs last week)."),
	mcp.WithString("period_a_start", mcp.Required(), mcp.Description("Period A start date")),
	mcp.WithString("period_a_end", mcp.Required(), mcp.Description("Period A end date")),
	mcp.WithString("period_b_start", mcp.Required(), mcp.Description("Period B start date")),
	mcp.WithString("period_b_end", mcp.Required(), mcp.Description("Period B end date")),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List all exercises in the recovery program with their categories and enabled status."),
)

// --- Tool handlers ---

func (h *handlers) getExerciseSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	typeFilter := req.GetString("type", "")
	if typeFilter != "" {
		if canonical, known := models.NormalizeExerciseType(typeFilter); known {
			typeFilter = canonical
		}
	}

	uid := UserIDFromContext(ctx)

	sessions, err := h.ds.QuerySessions(ctx, start, end, uid, typeFilter)
	if err != nil {
		h.log.Error("mcp get_exercise_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sessions)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSessionStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)

	summary, err := h.ds.GetRangeSummary(ctx, start, end, uid)
	if err != nil {
		h.log.Error("mcp get_session_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(summary)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getExerciseTrend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := analysisTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	bucket := req.GetString("bucket", "1 week")
	uid := UserIDFromContext(ctx)

	periods, err := h.ds.GetExerciseTrend(ctx, start, end, bucket, uid)
	if err != nil {
		h.log.Error("mcp get_exercise_trend", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(periods)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getScheduleConsistency(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := analysisTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	bucket := req.GetString("bucket", "1 week")
	uid := UserIDFromContext(ctx)

	periods, err := h.ds.GetScheduleSummary(ctx, start, end, bucket, uid)
	if err != nil {
		h.log.Error("mcp get_schedule_consistency", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(periods)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getFormBreakdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := analysisTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	exerciseFilter := req.GetString("exercise", "")
	if exerciseFilter != "" {
		if canonical, known := models.NormalizeExerciseType(exerciseFilter); known {
			exerciseFilter = canonical
		}
	}

	uid := UserIDFromContext(ctx)

	breakdown, err := h.ds.GetFormBreakdown(ctx, start, end, uid, exerciseFilter)
	if err != nil {
		h.log.Error("mcp get_form_breakdown", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(breakdown)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) comparePeriods(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	aStartStr, err := req.RequireString("period_a_start")
	if err != nil {
		return mcp.NewToolResultError("period_a_start is required"), nil
	}
	aEndStr, err := req.RequireString("period_a_end")
	if err != nil {
		return mcp.NewToolResultError("period_a_end is required"), nil
	}
	bStartStr, err := req.RequireString("period_b_start")
	if err != nil {
		return mcp.NewToolResultError("period_b_start is required"), nil
	}
	bEndStr, err := req.RequireString("period_b_end")
	if err != nil {
		return mcp.NewToolResultError("period_b_end is required"), nil
	}

	aStart, err := parseFlexTime(aStartStr)
	if err != nil {
		return mcp.NewToolResultError("invalid period_a_start: " + err.Error()), nil
	}
	aEnd, err := parseFlexTime(aEndStr)
	if err != nil {
		return mcp.NewToolResultError("invalid period_a_end: " + err.Error()), nil
	}
	bStart, err := parseFlexTime(bStartStr)
	if err != nil {
		return mcp.NewToolResultError("invalid period_b_start: " + err.Error()), nil
	}
	bEnd, err := parseFlexTime(bEndStr)
	if err != nil {
		return mcp.NewToolResultError("invalid period_b_end: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)

	summaryA, err := h.ds.GetRangeSummary(ctx, aStart, aEnd, uid)
	if err != nil {
		h.log.Error("mcp compare_periods A", "error", err)
		return mcp.NewToolResultError("query failed for period A: " + err.Error()), nil
	}

	summaryB, err := h.ds.GetRangeSummary(ctx, bStart, bEnd, uid)
	if err != nil {
		h.log.Error("mcp compare_periods B", "error", err)
		return mcp.NewToolResultError("query failed for period B: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"period_a": summaryA,
		"period_b": summaryB,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listExercises(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalog, err := h.ds.GetExerciseCatalog(ctx)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(catalog)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
