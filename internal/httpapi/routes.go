package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/pr0mega/BCLLDraft/internal/hub"
	"github.com/pr0mega/BCLLDraft/internal/ws"
)

type Options struct {
	// CORSOrigins may use a single "*" wildcard, e.g. http://localhost:*.
	CORSOrigins []string
	Clock       clockwork.Clock
	Logger      *zap.Logger
}

func SetupRoutes(h *hub.Hub, opts Options) http.Handler {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, ws.Options{OriginPatterns: originPatterns(opts.CORSOrigins), Logger: opts.Logger}))

	r.Route("/lobbies", func(r chi.Router) {
		r.Post("/", CreateLobby(h, opts.Logger))
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/state", GetState(h))
			r.Post("/players", UploadPlayers(h, opts.Clock, opts.Logger))
			r.Get("/export/rosters.csv", ExportRosters(h))
			r.Get("/export/draft-log.csv", ExportDraftLog(h))
		})
	})
	return r
}

// originPatterns turns CORS origins into websocket host patterns, which match
// on host only.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		out = append(out, o)
	}
	return out
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
