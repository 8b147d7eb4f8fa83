// Package httpapi exposes the installed apps over JSON HTTP endpoints.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/kompassi/kompassi/internal/badges"
	"github.com/kompassi/kompassi/internal/labour"
	"github.com/kompassi/kompassi/internal/mailings"
	"github.com/kompassi/kompassi/internal/metrics"
	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/programme"
)

type Events interface {
	EventBySlug(ctx context.Context, slug string) (models.Event, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Programmes interface {
	Listing(ctx context.Context, eventID int64, format string, includeAll bool) ([]map[string]any, error)
	View(ctx context.Context, programmeID int64) (programme.View, error)
	EventViews(ctx context.Context, eventID int64) ([]programme.View, error)
	SaveForEvent(ctx context.Context, eventID int64, p *models.Programme, e programme.Edit) error
	Transition(ctx context.Context, programmeID int64, to models.ProgrammeState) (models.Programme, error)
	FutureProgrammes(ctx context.Context, personID int64) ([]models.Programme, error)
	PastProgrammes(ctx context.Context, personID int64) ([]models.Programme, error)
	RejectedProgrammes(ctx context.Context, personID int64) ([]models.Programme, error)
}

type Badges interface {
	Ensure(ctx context.Context, eventID, personID int64) (*models.Badge, error)
	CreateManual(ctx context.Context, eventID int64, actorID *int64, form badges.ManualBadge) (models.Badge, error)
	MarkPrinted(ctx context.Context, eventID, badgeID int64) error
}

type Labour interface {
	SpecialDiets(ctx context.Context, eventID int64) (labour.SpecialDietReport, error)
	SaveSignupExtra(ctx context.Context, eventID, personID int64, form labour.SignupExtraForm) (models.SignupExtra, error)
}

type Mailings interface {
	List(ctx context.Context, eventID int64) ([]models.Message, error)
	Editor(ctx context.Context, eventID, messageID int64, action string, form mailings.MessageForm) (mailings.Outcome, error)
}

type Enrollment interface {
	Enroll(ctx context.Context, eventID, personID int64, answers map[string]any) (models.Enrollment, error)
}

// Deps are the services behind the endpoints. Services of apps that are not installed
// may be left nil.
type Deps struct {
	Events     Events
	DB         Pinger
	Programmes Programmes
	Badges     Badges
	Labour     Labour
	Mailings   Mailings
	Enrollment Enrollment
	Log        *zap.Logger
}

type Options struct {
	Apps        []string
	CORSOrigins []string
	Location    *time.Location
}

type Server struct {
	Deps
	opts   Options
	router *httprouter.Router
}

func New(opts Options, d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	s := &Server{Deps: d, opts: opts, router: httprouter.New()}
	s.routes()
	return s
}

func (s *Server) installed(app string) bool { return slices.Contains(s.opts.Apps, app) }

func (s *Server) routes() {
	s.handle(http.MethodGet, "/healthz", s.healthz)
	if s.installed("metrics") {
		s.router.Handler(http.MethodGet, "/metrics", metrics.Handler())
	}

	if s.installed("programme") {
		s.handle(http.MethodGet, "/events/:event/programmes", s.listProgrammes)
		s.handle(http.MethodPost, "/events/:event/programmes", s.createProgramme)
		s.handle(http.MethodGet, "/events/:event/programmes/:id", s.getProgramme)
		s.handle(http.MethodPut, "/events/:event/programmes/:id", s.updateProgramme)
		s.handle(http.MethodPost, "/events/:event/programmes/:id/state", s.transitionProgramme)
		s.handle(http.MethodGet, "/events/:event/exports/programmes.xlsx", s.exportProgrammes)
		s.handle(http.MethodGet, "/people/:person/programmes", s.personProgrammes)
	}
	if s.installed("badges") {
		s.handle(http.MethodPost, "/events/:event/badges", s.createBadge)
		s.handle(http.MethodPost, "/events/:event/badges/:id/printed", s.markBadgePrinted)
		s.handle(http.MethodPost, "/events/:event/people/:person/badge", s.ensureBadge)
	}
	if s.installed("labour") {
		s.handle(http.MethodGet, "/events/:event/special-diets", s.specialDiets)
		s.handle(http.MethodGet, "/events/:event/exports/special-diets.xlsx", s.exportSpecialDiets)
		s.handle(http.MethodPut, "/events/:event/signup-extras/:person", s.saveSignupExtra)
		s.handle(http.MethodGet, "/events/:event/messages", s.listMessages)
		s.handle(http.MethodPost, "/events/:event/messages", s.messageEditor)
		s.handle(http.MethodPost, "/events/:event/messages/:id", s.messageEditor)
	}
	if s.installed("enrollment") {
		s.handle(http.MethodPost, "/events/:event/enrollment/:person", s.enroll)
	}
}

// Handler wraps the router with the middleware chain: cors, security headers, request
// context and access logging.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader, personHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	return requestContext(accessLog(s.Log, securityHeaders(c.Handler(s.router))))
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
		defer cancel()
		t0 := time.Now()
		if err := s.DB.PingContext(ctx); err != nil {
			http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		metrics.ObserveDBPing(time.Since(t0))
	}
	_, _ = w.Write([]byte("ok"))
}

// Start serves h on addr until ctx is cancelled.
func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	return srv
}
