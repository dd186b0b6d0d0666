package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/siteshift/siteshift/internal/auth"
	"github.com/siteshift/siteshift/internal/collab"
	"github.com/siteshift/siteshift/internal/config"
	"github.com/siteshift/siteshift/internal/engine"
	"github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/metrics"
	mw "github.com/siteshift/siteshift/internal/middleware"
	"github.com/siteshift/siteshift/internal/project"
	"github.com/siteshift/siteshift/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st store.Store
	switch cfg.Store {
	case "postgres":
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		st, err = store.NewPGStore(ctx, pool)
		if err != nil {
			slog.Error("prepare database", "error", err)
			os.Exit(1)
		}
	default:
		st, err = store.NewFileStore(cfg.DocumentDir, store.Codec(cfg.DocumentCodec))
		if err != nil {
			slog.Error("open document dir", "error", err)
			os.Exit(1)
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	authService := auth.NewService(cfg.JWTSecret)

	hub := collab.NewHub()
	projectService := project.NewService(st, hub,
		engine.WithEpsilon(cfg.Epsilon),
		engine.WithLogger(logger),
		engine.WithObserver(m),
	)
	hub.AcceptTransforms(projectService.Transform)
	go hub.Run(ctx)

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	project.NewHandler(projectService).Routes(api)

	r.HandleFunc("/ws/documents/{documentId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, projectService, originPatterns(cfg.Origins()))
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
		cancel()
	}()

	slog.Info("server starting", "addr", addr, "store", cfg.Store)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// originPatterns turns configured origins into the host patterns the
// websocket handshake checks against.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		}
	}
	return out
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, docs *project.Service, origins []string) {
	documentID := mux.Vars(r)["documentId"]

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	eng, err := docs.Open(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		slog.Error("open document", "document", documentID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	snap, err := eng.Snapshot()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: origins})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, userID, userID, documentID, clientID)

	welcome, _ := json.Marshal(collab.WelcomePayload{ClientID: clientID, DocumentID: documentID, Version: snap.Version})
	client.Send(&collab.Message{Type: collab.TypeWelcome, DocumentID: documentID, ClientID: clientID, Payload: welcome})
	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
