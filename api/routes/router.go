package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/camilavaldes/splitabill-backend/api/controllers"
	"github.com/camilavaldes/splitabill-backend/api/middleware"
	"github.com/camilavaldes/splitabill-backend/internal/groups"
	"github.com/camilavaldes/splitabill-backend/internal/invoices"
	"github.com/camilavaldes/splitabill-backend/internal/payments"
	"github.com/camilavaldes/splitabill-backend/internal/realtime"
	"github.com/camilavaldes/splitabill-backend/internal/sessions"
	"github.com/camilavaldes/splitabill-backend/internal/settlements"
	"github.com/camilavaldes/splitabill-backend/internal/wallets"
	"github.com/camilavaldes/splitabill-backend/pkg/config"
	"github.com/camilavaldes/splitabill-backend/pkg/db"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
	"github.com/camilavaldes/splitabill-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	sessionService *sessions.Service,
	groupService *groups.Service,
	walletService *wallets.Service,
	invoiceService *invoices.Service,
	paymentService *payments.Service,
	settlementService *settlements.Service,
	dispatcher *realtime.Dispatcher,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/ws/table-sessions/{sessionID}", controllers.SessionSocket(dispatcher, cfg.Hub, logg))

	r.Route("/api/v1/table-sessions", func(r chi.Router) {
		r.Post("/", controllers.SessionCreate(sessionService, logg))
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", controllers.SessionGet(sessionService, logg))
			r.Get("/items", controllers.SessionItems(sessionService, logg))
			r.Get("/participants", controllers.SessionParticipants(sessionService, logg))
			r.Put("/close", controllers.SessionClose(sessionService, logg))
			r.Post("/settle/creditors", controllers.SessionSettleCreditors(paymentService, logg))
			r.Post("/settle/wallet", controllers.SessionSettleWallet(paymentService, logg))
		})
	})

	r.Route("/api/v1/invoices", func(r chi.Router) {
		r.Post("/", controllers.InvoiceCreate(invoiceService, logg))
		r.Get("/", controllers.InvoiceList(invoiceService, logg))
		r.Get("/available-groups", controllers.InvoiceAvailableGroups(groupService, logg))
		r.Route("/{invoiceID}", func(r chi.Router) {
			r.Get("/", controllers.InvoiceGet(invoiceService, logg))
			r.Put("/", controllers.InvoiceUpdate(invoiceService, logg))
			r.Put("/mark-paid", controllers.InvoiceMarkPaid(paymentService, logg))
		})
	})

	r.Route("/api/v1/users/{userID}", func(r chi.Router) {
		r.Get("/invoices", controllers.UserInvoices(invoiceService, logg))
		r.Get("/invoices/pending", controllers.UserPendingInvoices(invoiceService, logg))
		r.Get("/groups", controllers.UserGroups(groupService, logg))
	})

	r.Route("/api/v1/wallets", func(r chi.Router) {
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", controllers.WalletGetForUser(walletService, logg))
			r.Get("/transactions", controllers.WalletTransactionsForUser(walletService, logg))
			r.Post("/top-up", controllers.WalletTopUp(walletService, logg))
		})
		r.Route("/{walletID}", func(r chi.Router) {
			r.Get("/", controllers.WalletGet(walletService, logg))
			r.Get("/transactions", controllers.WalletTransactions(walletService, logg))
		})
	})

	r.Route("/api/v1/settlements", func(r chi.Router) {
		r.Post("/", controllers.SettlementCreate(settlementService, logg))
		r.Get("/", controllers.SettlementList(settlementService, logg))
		r.Get("/{settlementID}", controllers.SettlementGet(settlementService, logg))
	})

	r.Route("/api/v1/groups", func(r chi.Router) {
		r.Post("/", controllers.GroupCreate(groupService, logg))
		r.Route("/{groupID}", func(r chi.Router) {
			r.Get("/", controllers.GroupGet(groupService, logg))
			r.Get("/members", controllers.GroupMembers(groupService, logg))
			r.Post("/members", controllers.GroupAddMember(groupService, logg))
			r.Delete("/members/{userID}", controllers.GroupRemoveMember(groupService, logg))
		})
	})

	return r
}
