package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/freeflow/freeflow/backend-go/internal/auth"
	"github.com/freeflow/freeflow/backend-go/internal/board"
	"github.com/freeflow/freeflow/backend-go/internal/collab"
	"github.com/freeflow/freeflow/backend-go/internal/config"
	"github.com/freeflow/freeflow/backend-go/internal/db"
	"github.com/freeflow/freeflow/backend-go/internal/discovery"
	"github.com/freeflow/freeflow/backend-go/internal/element"
	"github.com/freeflow/freeflow/backend-go/internal/export"
	mw "github.com/freeflow/freeflow/backend-go/internal/middleware"
	"github.com/freeflow/freeflow/backend-go/internal/telemetry"
)

var version = "dev"

// The playground board is shared, anonymous and never persisted.
const playgroundBoardID = "board_playground"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.InitJaeger(telemetry.ServiceName, version, cfg.JaegerEndpoint)
	if err != nil {
		slog.Error("init tracing", "error", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	queries := db.New(pool)

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	boardService := board.NewService(queries).WithTx(func(ctx context.Context, fn func(board.Store) error) error {
		return queries.InTx(ctx, func(q *db.Queries) error { return fn(q) })
	})
	boardHandler := board.NewHandler(boardService)

	exportHandler := export.NewHandler()

	loadBoard := func(ctx context.Context, boardID string) ([]element.Element, error) {
		if boardID == playgroundBoardID {
			return []element.Element{}, nil
		}
		return boardService.LoadElements(ctx, boardID)
	}
	saveBoard := func(ctx context.Context, boardID string, elements []element.Element) error {
		if boardID == playgroundBoardID {
			return nil
		}
		v, err := boardService.SaveElements(ctx, boardID, elements)
		if err != nil {
			return err
		}
		slog.Debug("board saved", "board", boardID, "version", v)
		return nil
	}

	hub := collab.NewHub(loadBoard, saveBoard, cfg.AutosaveInterval)
	go hub.Run()
	boardService.WithReplacer(hub.Replace)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Tracing(telemetry.Tracer()))
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Export endpoint (public, renders the posted board file)
	r.HandleFunc("/export/pdf", exportHandler.ExportPDF).Methods("POST", "OPTIONS")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	boardHandler.Routes(api)

	// WebSocket endpoint
	r.HandleFunc("/ws/board/{boardId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, boardService, cfg.OriginPatterns())
	})

	var advertiser *discovery.Advertiser
	if cfg.MDNSEnabled {
		advertiser, err = discovery.Advertise("", cfg.Port)
		if err != nil {
			slog.Warn("mdns advertise", "error", err)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		if err := advertiser.Shutdown(); err != nil {
			slog.Warn("mdns shutdown", "error", err)
		}

		// Stop hub first to save all dirty boards
		slog.Info("saving all boards...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown", "error", err)
		}
	}()

	slog.Info("server starting", "addr", addr, "version", version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, boardSvc *board.Service, originPatterns []string) {
	boardID := mux.Vars(r)["boardId"]

	var userID string
	var displayName string

	if boardID == playgroundBoardID {
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		var err error
		userID, err = authSvc.Authenticate(r, auth.QueryToken)
		if err != nil {
			auth.WriteError(w, err)
			return
		}

		if err := boardSvc.CheckMembership(r.Context(), boardID, userID); err != nil {
			http.Error(w, "not a board member", http.StatusForbidden)
			return
		}

		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			auth.WriteError(w, err)
			return
		}
		displayName = user.DisplayName
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, userID, displayName, boardID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
