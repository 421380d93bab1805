package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"ledger-service/internal/config"
	"ledger-service/internal/handler"
	"ledger-service/internal/queue"
	"ledger-service/internal/repository"
	"ledger-service/internal/service"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	router    *mux.Router
	server    *http.Server
	db        *sql.DB
	publisher io.Closer
	logger    *slog.Logger
	port      string
}

// NewServer connects to the database, applies migrations when enabled and wires
// the store, services and handlers onto a router.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Successfully connected to database", "host", cfg.DBHost, "database", cfg.DBName)

	if cfg.RunMigrations {
		if err := repository.RunMigrations(cfg.GetDBURL(), logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Server{
		db:     db,
		logger: logger,
	}

	store := repository.NewStore(db, logger)

	var publisher service.EventPublisher
	if cfg.RabbitMQURL != "" {
		rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("Publishing transaction events", "queue", queue.TransactionQueue)
		publisher = rabbit
		s.publisher = rabbit
	}

	accountService := service.NewAccountService(store, logger)
	transactionService := service.NewTransactionService(store, publisher, logger)

	s.router = NewRouter(
		handler.NewAccountHandler(accountService),
		handler.NewTransactionHandler(transactionService),
		store,
		logger,
	)
	return s, nil
}

// NewRouter registers every route of the ledger API.
func NewRouter(accounts *handler.AccountHandler, transactions *handler.TransactionHandler, db Pinger, logger *slog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	handle(router, "/accounts", accounts.CreateAccount, http.MethodPost)
	handle(router, "/accounts/{account_id}", accounts.GetAccount, http.MethodGet)

	handle(router, "/transfers", transactions.Transfer, http.MethodPost)
	handle(router, "/deposits", transactions.Deposit, http.MethodPost)
	handle(router, "/withdrawals", transactions.Withdraw, http.MethodPost)
	handle(router, "/transactions/{transaction_id}", transactions.GetTransaction, http.MethodGet)

	router.HandleFunc("/health", healthHandler(db)).Methods(http.MethodGet)

	return router
}

// handle serves path with and without a trailing slash. StrictSlash would
// answer with a redirect, which clients replay as GET for POST requests.
func handle(router *mux.Router, path string, fn http.HandlerFunc, method string) {
	router.HandleFunc(path, fn).Methods(method)
	router.HandleFunc(path+"/", fn).Methods(method)
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start listens on port ("0" picks a free one) and serves in the background.
// It returns the port actually bound.
func (s *Server) Start(port string) (string, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server stopped unexpectedly", "error", err)
		}
	}()

	return s.port, nil
}

// Stop drains in-flight requests, then releases the publisher and the database.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var shutdownErr error
	if s.server != nil {
		shutdownErr = s.server.Shutdown(ctx)
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", "error", err)
		}
	}
	return shutdownErr
}

func (s *Server) GetPort() string {
	return s.port
}

func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// StartServer builds the server from cfg and starts it.
func StartServer(cfg *config.Config, logger *slog.Logger) (*Server, string, error) {
	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.Stop(context.Background())
		return nil, "", err
	}

	return server, port, nil
}
