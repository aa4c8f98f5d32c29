package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/catering-backend/api/controllers"
	"github.com/angelmondragon/catering-backend/api/middleware"
	"github.com/angelmondragon/catering-backend/internal/inventory"
	"github.com/angelmondragon/catering-backend/pkg/config"
	"github.com/angelmondragon/catering-backend/pkg/db"
	"github.com/angelmondragon/catering-backend/pkg/logger"
	"github.com/angelmondragon/catering-backend/pkg/redis"
)

// AgentTools is the tool gateway surface used directly by HTTP handlers.
type AgentTools interface {
	controllers.ToolLister
	controllers.FlightLookup
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	inventoryService inventory.Service,
	runner controllers.WorkflowRunner,
	tools AgentTools,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	ready := map[string]controllers.Pinger{"db": dbP}
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		ready["redis"] = redisClient
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})

	if cfg.FeatureFlags.Metrics && gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.BodyLimit(cfg.Agent.MaxUploadBytes()),
			middleware.Idempotency(idempotencyStore, cfg.Redis.IdempotencyTTL, logg),
		)

		r.Route("/inventory", func(r chi.Router) {
			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.CreateProduct(inventoryService, logg))
				r.Get("/", controllers.ListProducts(inventoryService, logg))
				r.Get("/{id}", controllers.GetProduct(inventoryService, logg))
				r.Patch("/{id}", controllers.UpdateProduct(inventoryService, logg))
				r.Delete("/{id}", controllers.DeleteProduct(inventoryService, logg))
				r.Get("/{id}/lots", controllers.ListProductLots(inventoryService, logg))
			})
			r.Route("/lots", func(r chi.Router) {
				r.Post("/", controllers.CreateLot(inventoryService, logg))
				r.Get("/", controllers.ListLots(inventoryService, logg))
				r.Get("/{id}", controllers.GetLot(inventoryService, logg))
				r.Patch("/{id}", controllers.UpdateLot(inventoryService, logg))
				r.Delete("/{id}", controllers.DeleteLot(inventoryService, logg))
				r.Get("/{id}/detailed", controllers.GetLotDetailed(inventoryService, logg))
				r.Get("/{id}/items", controllers.ListLotItems(inventoryService, logg))
				r.Get("/{id}/products", controllers.ListLotProducts(inventoryService, logg))
				r.Put("/{id}/assignment", controllers.UpsertLotAssignment(inventoryService, logg))
			})
			r.Route("/lot-items", func(r chi.Router) {
				r.Post("/", controllers.AddLotItem(inventoryService, logg))
				r.Get("/", controllers.ListAllLotItems(inventoryService, logg))
				r.Get("/{id}", controllers.GetLotItem(inventoryService, logg))
				r.Patch("/{id}", controllers.UpdateLotItem(inventoryService, logg))
				r.Delete("/{id}", controllers.DeleteLotItem(inventoryService, logg))
			})
			r.Route("/assignments", func(r chi.Router) {
				r.Post("/", controllers.CreateAssignment(inventoryService, logg))
				r.Get("/", controllers.ListAssignments(inventoryService, logg))
				r.Get("/{id}", controllers.GetAssignment(inventoryService, logg))
				r.Patch("/{id}", controllers.UpdateAssignment(inventoryService, logg))
				r.Delete("/{id}", controllers.DeleteAssignment(inventoryService, logg))
			})
		})

		r.Route("/agent", func(r chi.Router) {
			r.Post("/run", controllers.AgentRun(runner, logg))
			r.Post("/run-multipart", controllers.AgentRunMultipart(runner, cfg.Agent.UploadDir, cfg.Agent.MaxUploadBytes(), logg))
			r.Get("/tools", controllers.AgentTools(tools, logg))
		})

		r.Get("/flights/future", controllers.FutureFlights(tools, nil, logg))
	})

	return r
}
