package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coveplatform/mosh/internal/config"
	"github.com/coveplatform/mosh/internal/ledger"
	"github.com/coveplatform/mosh/internal/repository"
	"github.com/coveplatform/mosh/internal/services/account"
	"github.com/coveplatform/mosh/internal/services/email"
	"github.com/coveplatform/mosh/internal/services/task"
	"github.com/coveplatform/mosh/internal/services/webhook"
	"github.com/coveplatform/mosh/pkg/logger"
	"github.com/coveplatform/mosh/pkg/redis"
)

// HandlerManager wires all handlers onto the router.
type HandlerManager struct {
	config   *config.Config
	repos    repository.RepositoryManager
	ledger   *ledger.Service
	accounts *account.Service
	tasks    *task.Service
	emails   *email.Service
	ingester *webhook.Ingester
	redisSvc redis.RedisServiceInterface
}

// NewHandlerManager creates the handler manager from already-wired
// services.
func NewHandlerManager(
	cfg *config.Config,
	repos repository.RepositoryManager,
	ledgerSvc *ledger.Service,
	accounts *account.Service,
	tasks *task.Service,
	emails *email.Service,
	ingester *webhook.Ingester,
	redisSvc redis.RedisServiceInterface,
) *HandlerManager {
	return &HandlerManager{
		config:   cfg,
		repos:    repos,
		ledger:   ledgerSvc,
		accounts: accounts,
		tasks:    tasks,
		emails:   emails,
		ingester: ingester,
		redisSvc: redisSvc,
	}
}

// SetupAllRoutes sets up all routes with middleware.
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	router.Use(CORSMiddleware)
	router.Use(GlobalLoggingMiddleware)

	router.HandleFunc("/healthz", hm.handleHealth).Methods("GET")

	hm.SetupAPIRoutes(router)
	hm.SetupWebhookRoutes(router)

	logger.Base().Info("all application routes registered")
}

// SetupAPIRoutes sets up the owner-scoped API surface.
func (hm *HandlerManager) SetupAPIRoutes(router *mux.Router) {
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(ValidationMiddleware)
	apiRouter.Use(OwnerMiddleware)

	taskHandler := NewTaskHandler(hm.tasks, hm.accounts)
	taskHandler.SetupTaskRoutes(apiRouter)

	emailHandler := NewEmailHandler(hm.emails, hm.accounts)
	emailHandler.SetupEmailRoutes(apiRouter)

	creditHandler := NewCreditHandler(hm.ledger, hm.accounts)
	creditHandler.SetupCreditRoutes(apiRouter)

	countryHandler := NewCountryHandler()
	countryHandler.SetupCountryRoutes(apiRouter)

	router.PathPrefix("/api/").HandlerFunc(handleCORS).Methods("OPTIONS")

	logger.Base().Info("api routes registered")
}

// SetupWebhookRoutes sets up the provider and billing webhook routes.
func (hm *HandlerManager) SetupWebhookRoutes(router *mux.Router) {
	vapiHandler := NewVapiWebhookHandler(hm.ingester, hm.repos, hm.redisSvc, hm.config.VapiWebhookSecret)
	vapiHandler.SetupVapiWebhookRoutes(router)

	billingHandler := NewBillingWebhookHandler(hm.accounts, hm.ledger)
	billingRouter := router.PathPrefix("/webhooks/billing").Subrouter()
	billingRouter.Use(AdminKeyMiddleware(hm.config.AdminAPIKeys))
	billingHandler.SetupBillingWebhookRoutes(billingRouter)

	logger.Base().Info("webhook routes registered")
}

func (hm *HandlerManager) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := hm.repos.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCORS handles CORS preflight requests for API routes.
func handleCORS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, HEAD, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Owner-ID, X-Admin-Key")
	w.WriteHeader(http.StatusOK)
}
