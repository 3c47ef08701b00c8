package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/liftcoach/internal/recommend"
	"github.com/meltforce/liftcoach/internal/suggest"
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

// historyDepth is how many recent sessions feed recommendations and recovery.
const historyDepth = 10

// New creates an MCP server with all tools and resources registered.
// sessions may be nil, in which case get_session is left out.
func New(ds DataSource, sessions SessionSource, engine suggest.Engine, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftCoach", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftCoach strength training server. Suggest set targets from personal records, recommend the next workout from recovery status, and inspect the exercise catalog, records and training history. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, sessions: sessions, engine: engine, recommender: recommend.New(), log: log, now: time.Now}

	s.AddTools(
		server.ServerTool{Tool: toolSuggestSet, Handler: h.suggestSet},
		server.ServerTool{Tool: toolRecommendExercises, Handler: h.recommendExercises},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolGetPersonalRecords, Handler: h.getPersonalRecords},
		server.ServerTool{Tool: toolGetTrainingHistory, Handler: h.getTrainingHistory},
	)
	if sessions != nil {
		s.AddTool(toolGetSession, h.getSession)
	}

	s.AddResources(
		server.ServerResource{Resource: resRecovery, Handler: h.recovery},
		server.ServerResource{Resource: resCatalog, Handler: h.catalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds          DataSource
	sessions    SessionSource
	engine      suggest.Engine
	recommender recommend.Recommender
	log         *slog.Logger
	now         func() time.Time
}

// --- Resource definitions ---

var resRecovery = mcp.NewResource(
	"liftcoach://recovery",
	"Recovery Status",
	mcp.WithResourceDescription("Per-muscle-group days since last trained, recovery threshold and whether the group is recovered"),
	mcp.WithMIMEType("application/json"),
)

var resCatalog = mcp.NewResource(
	"liftcoach://catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("All exercises with type, movement pattern and muscle group"),
	mcp.WithMIMEType("application/json"),
)
