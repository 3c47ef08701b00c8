package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/liftcoach/internal/aiplan"
	"github.com/meltforce/liftcoach/internal/backfill"
	"github.com/meltforce/liftcoach/internal/models"
	"github.com/meltforce/liftcoach/internal/recommend"
	"github.com/meltforce/liftcoach/internal/session"
	"github.com/meltforce/liftcoach/internal/suggest"
)

// Store is the slice of storage the handlers read. *storage.DB satisfies it.
type Store interface {
	UserResolver
	ListExercises(ctx context.Context, f models.ExerciseFilter) ([]models.ExerciseDescriptor, error)
	GetExercise(ctx context.Context, id string) (*models.ExerciseDescriptor, error)
	GetExercises(ctx context.Context, ids []string) ([]models.ExerciseDescriptor, error)
	GetRecord(ctx context.Context, userID int, exerciseID string) (*models.PersonalRecord, error)
	ListRecords(ctx context.Context, userID int) ([]models.PersonalRecord, error)
	RecentSessions(ctx context.Context, userID, limit int) ([]models.HistorySession, error)
	ListSessions(ctx context.Context, userID, limit int) ([]models.SessionRecord, error)
	GetStats(ctx context.Context, userID int) (*models.UserStats, error)
}

// Planner runs the model-backed planner. *aiplan.Service satisfies it.
type Planner interface {
	Generate(ctx context.Context, userID int, c aiplan.Context) (aiplan.Plan, error)
}

// historyDepth is how many recent sessions feed recommendations.
const historyDepth = 10

// Importer writes workouts from an export. *backfill.Importer satisfies it.
type Importer interface {
	Import(ctx context.Context, userID int, workouts []backfill.Workout, dryRun bool) (backfill.Report, error)
}

// Deps are the collaborators of a Server. Planner and Importer may be nil,
// which disables their endpoints.
type Deps struct {
	Store    Store
	Sessions *session.Manager
	Engine   suggest.Engine
	Cache    *recommend.Cache
	Planner  Planner
	Importer Importer
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       Store
	sessions    *session.Manager
	engine      suggest.Engine
	recommender recommend.Recommender
	cache       *recommend.Cache
	planner     Planner
	importer    Importer
	whois       WhoIsClient
	log         *slog.Logger
	apiKey      string
	now         func() time.Time
	router      chi.Router
}

// New creates a new Server with all routes configured.
func New(deps Deps, apiKey string, log *slog.Logger) *Server {
	cache := deps.Cache
	if cache == nil {
		cache = recommend.NewCache()
	}
	s := &Server{
		store:       deps.Store,
		sessions:    deps.Sessions,
		engine:      deps.Engine,
		recommender: recommend.New(),
		cache:       cache,
		planner:     deps.Planner,
		importer:    deps.Importer,
		log:         log,
		apiKey:      apiKey,
		now:         time.Now,
		router:      chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches identity from the dev user to Tailscale WhoIs.
func (s *Server) SetTailscale(wc WhoIsClient) {
	s.whois = wc
}

// SetMCP mounts an MCP handler at /mcp behind the API key.
func (s *Server) SetMCP(h http.Handler) {
	s.router.With(APIKeyAuth(s.apiKey)).Handle("/mcp", h)
	s.router.With(APIKeyAuth(s.apiKey)).Handle("/mcp/*", h)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identify)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)
		r.Get("/exercises", s.handleListExercises)
		r.Get("/exercises/{id}", s.handleGetExercise)
		r.Get("/records", s.handleListRecords)
		r.Get("/records/{exerciseID}", s.handleGetRecord)
		r.Get("/suggestions", s.handleSuggestion)
		r.Get("/recommendations", s.handleRecommendations)
		r.Post("/recommendations/ai", s.handleAIRecommendations)
		r.Get("/history", s.handleHistory)
		r.Get("/history/recent", s.handleRecentHistory)
		r.Get("/stats", s.handleStats)
		r.Post("/import/alpha", s.handleAlphaImport)

		r.Post("/sessions", s.handleStartSession)
		r.Route("/sessions/current", func(r chi.Router) {
			r.Get("/", s.handleCurrentSession)
			r.Get("/events", s.handleSessionEvents)
			r.Put("/inputs", s.handleSetInputs)
			r.Post("/exercises", s.handleAddExercise)
			r.Post("/{action}", s.handleSessionAction)
		})
	})
}
