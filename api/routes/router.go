package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/tombamento-backend/api/controllers"
	"github.com/angelmondragon/tombamento-backend/api/middleware"
	"github.com/angelmondragon/tombamento-backend/internal/inventory"
	"github.com/angelmondragon/tombamento-backend/internal/ledger"
	"github.com/angelmondragon/tombamento-backend/internal/patterns"
	"github.com/angelmondragon/tombamento-backend/internal/reconciliation"
	"github.com/angelmondragon/tombamento-backend/pkg/config"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
	"github.com/angelmondragon/tombamento-backend/pkg/redis"
)

// redisStore backs idempotency and is checked by the readiness check.
type redisStore interface {
	redis.IdempotencyStore
	Ping(context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient redisStore,
	inventoryService inventory.Service,
	ledgerService ledger.Service,
	patternsService patterns.Service,
	reconciliationService reconciliation.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Operator(logg))
		idempotency := middleware.NewIdempotency(redisClient, cfg.Idempotency.TTL, logg)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", controllers.StartSession(reconciliationService, logg))
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Delete("/", controllers.EndSession(reconciliationService, logg))
				r.Route("/items/{inventoryId}", func(r chi.Router) {
					r.Get("/suggestions", controllers.SuggestCandidates(reconciliationService, logg))
					r.Post("/proposals", controllers.ProposeLink(reconciliationService, logg))
					r.With(idempotency.Require).Post("/confirm", controllers.ConfirmLink(reconciliationService, logg))
				})
			})
		})

		r.With(idempotency.Allow).Post("/batch-match", controllers.BatchMatch(reconciliationService, logg))
		r.Get("/links", controllers.ListLinks(patternsService, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/untagged", controllers.ListUntagged(inventoryService, logg))
			r.Post("/{inventoryId}/transfer", controllers.TransferRecord(inventoryService, logg))
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Post("/refresh", controllers.LedgerRefresh(ledgerService, logg))
			r.Get("/{assetTag}", controllers.LedgerLookup(ledgerService, logg))
		})

		r.Route("/tools", func(r chi.Router) {
			r.Post("/similarity", controllers.ToolSimilarity(logg))
			r.Post("/normalize-text", controllers.ToolNormalizeText(logg))
			r.Post("/normalize-asset-tag", controllers.ToolNormalizeAssetTag(logg))
			r.Post("/parse-condition", controllers.ToolParseCondition(logg))
		})
	})

	return r
}
