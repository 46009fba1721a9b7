// README: Entry point; loads config, wires the channel, coordinator, and local API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"valetlink/internal/config"
	"valetlink/internal/conn"
	"valetlink/internal/credstore"
	httptransport "valetlink/internal/http"
	"valetlink/internal/modules/location"
	"valetlink/internal/modules/request"
	"valetlink/internal/registry"
	"valetlink/internal/types"
	"valetlink/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	log := logging.NewLogger("valetlink-agent")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds := credstore.NewRedis(cfg.Redis.Addr)
	defer creds.Close()

	identity, err := credstore.LoadIdentity(ctx, creds)
	if err != nil {
		log.Error("no usable session, log in first", "error", err)
		os.Exit(1)
	}
	log.Info("session loaded", "user_id", identity.UserID, "role", identity.Role)

	reg := registry.New(log)
	coord := request.NewCoordinator(identity.UserID, log)
	coord.Attach(reg)

	mgr := conn.NewManager(conn.Config{
		URL:          cfg.Conn.SocketURL,
		BackoffFloor: cfg.Conn.BackoffFloor,
		BackoffCap:   cfg.Conn.BackoffCap,
	}, conn.WebsocketDialer, func(ctx context.Context) (types.SessionIdentity, error) {
		return credstore.LoadIdentity(ctx, creds)
	}, reg, log)

	exec := request.NewRESTExecutor(cfg.API.BaseURL, func(ctx context.Context) (string, error) {
		return creds.Read(ctx, credstore.KeySessionToken)
	})

	var locator location.Provider
	if cfg.Location.GoogleKey != "" {
		google, err := location.NewGoogleProvider(cfg.Location.GoogleKey)
		if err != nil {
			log.Error("google maps init failed", "error", err)
			os.Exit(1)
		}
		locator = google
	} else {
		log.Warn("no geolocation key configured, reporting the depot position")
		locator = location.StaticProvider{Position: types.Point{Lat: cfg.Depot.Lat, Lng: cfg.Depot.Lng}}
	}
	reporter := location.NewReporter(mgr, cfg.Location.ReportsPerMinute)

	svc := request.NewService(request.ServiceDeps{
		Coord:    coord,
		Exec:     exec,
		Locator:  locator,
		Emitter:  mgr,
		Reporter: reporter,
		Depot:    types.Point{Lat: cfg.Depot.Lat, Lng: cfg.Depot.Lng},
		Self:     identity.UserID,
		Log:      log,
	})

	if err := mgr.Connect(ctx); err != nil {
		log.Error("channel connect", "error", err)
		os.Exit(1)
	}
	if err := svc.Refresh(ctx); err != nil {
		log.Warn("initial snapshot unavailable, waiting for pushes", "error", err)
	}

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Requests: svc,
		Coord:    coord,
		Conn:     mgr,
		Creds:    creds,
		Log:      log,
	})
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go func() {
		<-ctx.Done()
		mgr.Disconnect()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("listening", "addr", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("http server", "error", err)
		os.Exit(1)
	}
}
