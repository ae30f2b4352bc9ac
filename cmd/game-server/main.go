package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"puzzle-party/internal/archive"
	"puzzle-party/internal/broadcast"
	"puzzle-party/internal/config"
	"puzzle-party/internal/content"
	"puzzle-party/internal/game"
	"puzzle-party/internal/lobby"
	"puzzle-party/internal/logging"
	"puzzle-party/internal/notify"
	"puzzle-party/internal/scoring"
	"puzzle-party/internal/store"
	httptransport "puzzle-party/internal/transport/http"
	"puzzle-party/internal/variants"
	"puzzle-party/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// server holds the long lived pieces main runs and shuts down.
type server struct {
	cfg      config.AppConfig
	store    *store.Store
	registry *lobby.Registry
	hub      *broadcast.Hub
	archive  *archive.Worker
	notify   *notify.Manager
	router   *chi.Mux
}

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	srv, err := newServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("server init failed")
	}
	logRoutes(srv.router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}

func newServer(cfg config.AppConfig) (*server, error) {
	bank, err := content.LoadBank(cfg.Content)
	if err != nil {
		return nil, err
	}
	var remote content.QuestionSource
	if cfg.Content.TriviaAPIEnabled && cfg.Content.TriviaAPIURL != "" {
		remote = content.NewOpenTDB(cfg.Content)
	}
	sources := content.NewSources(bank, remote, log.With().Str("component", "content").Logger())

	factory := variants.NewFactory(variants.Deps{
		Scoring: scoring.FromConfig(cfg.Scoring),
		Content: sources,
	})

	srv := &server{cfg: cfg, hub: broadcast.NewHub(256)}

	var sink game.ResultSink = archive.Discard{}
	var results httptransport.ResultReader
	var ping func(ctx context.Context) error
	if cfg.Server.PostgresDSN != "" {
		st, err := store.New(cfg.Server.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := st.Ping(context.Background()); err != nil {
			st.Close()
			return nil, err
		}
		srv.store = st
		srv.archive = archive.New(st, archive.ConfigFromServer(cfg.Server))
		sink = srv.archive
		results = st
		ping = st.Ping
	} else {
		log.Warn().Msg("POSTGRES_DSN not set, results will not be archived")
	}

	notifyCfg, err := notify.ConfigFromServer(cfg.Server)
	if err != nil {
		srv.close()
		return nil, err
	}
	srv.notify = notify.NewManager(notifyCfg)

	srv.registry = lobby.NewRegistry(factory, lobby.Options{
		Out:          srv.hub,
		Sink:         game.FanOut(sink, srv.notify),
		Timing:       game.TimingFromConfig(cfg.Game),
		NameMaxRunes: cfg.Game.NameMaxRunes,
		Log:          log.With().Str("component", "lobby").Logger().Level(logging.ParseLevel(cfg.Log.RoomLevel, zerolog.InfoLevel)),
		OnClose:      srv.hub.CloseRoom,
	})

	wsServer := ws.NewServer(srv.registry, srv.hub, ws.Options{
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		MessagesPerSecond: cfg.Server.WSMessagesPerSecond,
		Burst:             cfg.Server.WSBurst,
	})
	srv.router = newRouter(httptransport.Deps{
		Registry: srv.registry,
		Hub:      srv.hub,
		Results:  results,
		Ping:     ping,
		WS:       http.HandlerFunc(wsServer.HandleWS),
		AdminKey: cfg.Server.AdminAPIKey,
	})
	return srv, nil
}

func (s *server) run(ctx context.Context) error {
	defer s.close()

	httpServer := &http.Server{
		Addr:              s.cfg.Server.HTTPAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	s.registry.StartJanitor(ctx, time.Duration(s.cfg.Server.JanitorIntervalMS)*time.Millisecond)
	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if s.archive != nil {
		g.Go(func() error { return s.archive.Run(ctx) })
	}
	g.Go(func() error { return s.notify.Run(ctx) })
	return g.Wait()
}

func (s *server) close() {
	if s.registry != nil {
		s.registry.Shutdown()
	}
	if s.store != nil {
		s.store.Close()
	}
}
