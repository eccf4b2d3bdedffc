package api

import (
	"net/http"
	"time"

	"github.com/Taka1304/sigza/internal/api/handler"
	"github.com/Taka1304/sigza/internal/app/service"
	"github.com/Taka1304/sigza/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	orgService *service.OrganizationService,
	problemService *service.ProblemService,
	submissionService *service.SubmissionService,
	rankingService *service.RankingService,
	skillService *service.SkillService,
	auxService *service.AuxiliaryService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		v1.Route("/auth", authHandler.RegisterRoutes)

		orgHandler := handler.NewOrganizationHandler(orgService)
		v1.Route("/organizations", orgHandler.RegisterRoutes)

		problemHandler := handler.NewProblemHandler(problemService)
		v1.Route("/problems", problemHandler.RegisterRoutes)

		submissionHandler := handler.NewSubmissionHandler(submissionService)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		rankingHandler := handler.NewRankingHandler(rankingService)
		v1.Route("/rankings", rankingHandler.RegisterRoutes)

		skillHandler := handler.NewSkillHandler(skillService)
		v1.Route("/skills", skillHandler.RegisterRoutes)

		auxHandler := handler.NewAuxiliaryHandler(auxService)
		v1.Route("/notifications", auxHandler.RegisterNotificationRoutes)
		v1.Route("/announcements", auxHandler.RegisterAnnouncementRoutes)
		v1.Route("/settings", auxHandler.RegisterSettingRoutes)
		v1.Route("/external-learnings", auxHandler.RegisterExternalLearningRoutes)

		webhookHandler := handler.NewWebhookHandler(submissionService)
		v1.Route("/webhook", webhookHandler.RegisterRoutes)
	})

	return r
}
