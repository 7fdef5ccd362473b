package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/evandyer/cleanloop/internal/config"
	"github.com/evandyer/cleanloop/internal/handler"
	"github.com/evandyer/cleanloop/internal/imagestore"
	"github.com/evandyer/cleanloop/internal/ledger"
	"github.com/evandyer/cleanloop/internal/lifecycle"
	"github.com/evandyer/cleanloop/internal/middleware"
	"github.com/evandyer/cleanloop/internal/oracle"
	"github.com/evandyer/cleanloop/internal/store"
	ws "github.com/evandyer/cleanloop/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	reportH        *handler.ReportHandler
	collectH       *handler.CollectHandler
	rewardH        *handler.RewardHandler
	notificationH  *handler.NotificationHandler
	imageH         *handler.ImageHandler
	sessionStore   *store.SessionStore
	userStore      *store.UserStore
	reportStore    *store.ReportStore
	rateLimiter    *middleware.RateLimiter
	loginRateLimit int
	sweeper        *lifecycle.Sweeper
	logger         *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	reportStore := store.NewReportStore(db)
	collectionStore := store.NewCollectionStore(db)
	transactionStore := store.NewTransactionStore(db)
	rewardStore := store.NewRewardStore(db)
	notificationStore := store.NewNotificationStore(db)

	oracleClient := oracle.NewClient(cfg.Oracle)
	images := imagestore.New(cfg.Images)
	ledgerSvc := ledger.NewService(transactionStore, userStore)
	lifecycleSvc := lifecycle.NewService(reportStore, collectionStore, images, oracleClient, logger.With("component", "lifecycle"))

	// Stale-claim sweeper. Released reports are announced so task lists
	// refresh without polling.
	sweeper := lifecycle.NewSweeper(reportStore, sessionStore, func(ids []int64) {
		for _, id := range ids {
			hub.Broadcast(ws.NewMessage("report", "released", id, nil))
		}
	}, logger.With("component", "sweeper"))

	secureCookies := cfg.Environment == "production"

	return &Server{
		db:             db,
		hub:            hub,
		authH:          handler.NewAuthHandler(userStore, sessionStore, secureCookies, logger.With("component", "auth")),
		reportH:        handler.NewReportHandler(reportStore, lifecycleSvc, oracleClient, images, hub, logger.With("component", "report")),
		collectH:       handler.NewCollectHandler(reportStore, lifecycleSvc, hub, logger.With("component", "collect")),
		rewardH:        handler.NewRewardHandler(rewardStore, transactionStore, ledgerSvc, hub, logger.With("component", "reward")),
		notificationH:  handler.NewNotificationHandler(notificationStore, logger.With("component", "notification")),
		imageH:         handler.NewImageHandler(images, logger.With("component", "image")),
		sessionStore:   sessionStore,
		userStore:      userStore,
		reportStore:    reportStore,
		rateLimiter:    middleware.NewRateLimiter(),
		loginRateLimit: cfg.LoginRateLimit,
		sweeper:        sweeper,
		logger:         logger,
	}
}

// Sweeper returns the stale-claim sweeper so main can manage its lifetime.
func (s *Server) Sweeper() *lifecycle.Sweeper {
	return s.sweeper
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, s.loginRateLimit, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Auth
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Reports
	mux.HandleFunc("POST /api/reports/analyze", s.reportH.Analyze)
	mux.HandleFunc("POST /api/reports", s.reportH.Create)
	mux.HandleFunc("GET /api/reports", s.reportH.List)

	// Collection
	mux.HandleFunc("GET /api/collect/tasks", s.collectH.Tasks)
	mux.HandleFunc("POST /api/reports/{id}/claim", s.collectH.Claim)
	mux.HandleFunc("POST /api/reports/{id}/verify", s.collectH.Verify)

	// Points and rewards
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/balance", s.rewardH.Balance)
	mux.HandleFunc("GET /api/transactions", s.rewardH.Transactions)
	mux.HandleFunc("GET /api/leaderboard", s.rewardH.Leaderboard)

	// Notifications
	mux.HandleFunc("GET /api/notifications", s.notificationH.ListUnread)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.notificationH.MarkRead)

	// Images
	mux.HandleFunc("GET /api/images/{key...}", s.imageH.Serve)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handle(s.hub, s.logger.With("component", "ws_handler")))
}
