package mcp

import (
	"context"
	"time"

	"github.com/claude/posetrack/internal/models"
	"github.com/claude/posetrack/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	QuerySessions(ctx context.Context, start, end time.Time, userID int, exerciseType string) ([]models.SessionRow, error)
	GetRangeSummary(ctx context.Context, start, end time.Time, userID int) (*storage.RangeSummary, error)
	GetExerciseTrend(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrendPeriod, error)
	GetScheduleSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.SchedulePeriod, error)
	GetFormBreakdown(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) (*storage.FormBreakdownResult, error)
	GetExerciseCatalog(ctx context.Context) ([]storage.CatalogExercise, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
