package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("PoseTrack", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("PoseTrack exercise tracking server. Query recorded posture sessions, rep counts, form quality trends and practice consistency. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetExerciseSessions, Handler: h.getExerciseSessions},
		server.ServerTool{Tool: toolGetSessionStats, Handler: h.getSessionStats},
		server.ServerTool{Tool: toolGetExerciseTrend, Handler: h.getExerciseTrend},
		server.ServerTool{Tool: toolGetScheduleConsistency, Handler: h.getScheduleConsistency},
		server.ServerTool{Tool: toolGetFormBreakdown, Handler: h.getFormBreakdown},
		server.ServerTool{Tool: toolComparePeriods, Handler: h.comparePeriods},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resRecentSessions = mcp.NewResource(
	"posetrack://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("Exercise sessions from the last 14 days"),
	mcp.WithMIMEType("application/json"),
)

var resExerciseCatalog = mcp.NewResource(
	"posetrack://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("All exercises in the recovery program with categories and enabled status"),
	mcp.WithMIMEType("application/json"),
)
