package system

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/fleetboard/internal/cli"
	"github.com/julianstephens/fleetboard/internal/logger"
	"github.com/julianstephens/fleetboard/internal/service/memory"
	"github.com/julianstephens/fleetboard/internal/storage"
)

// DevserverCmd serves a seeded in-memory Schedule Service for local use
type DevserverCmd struct {
	Addr   string `help:"Listen address (defaults to FLEETBOARD_DEV_ADDR)."`
	Secret string `help:"Token signing secret (defaults to FLEETBOARD_DEV_SECRET)."`
	DB     string `help:"SQLite file that keeps state between runs (defaults to FLEETBOARD_DEV_DB, empty for none)." type:"path"`
}

func (cmd *DevserverCmd) Run(ctx *cli.Context) error {
	addr, secret := cmd.Addr, cmd.Secret
	if addr == "" {
		addr = ctx.Config.Dev.Addr
	}
	if secret == "" {
		secret = ctx.Config.Dev.Secret
	}
	dbPath := cmd.DB
	if dbPath == "" {
		dbPath = ctx.Config.Dev.DB
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := memory.Seed([]byte(secret))
	if dbPath == "" {
		return cmd.serve(sigCtx, ctx, ln, svc)
	}

	store, err := storage.Open(sigCtx, dbPath)
	if err != nil {
		ln.Close()
		return err
	}
	defer store.Close()
	if err := restore(sigCtx, store, svc); err != nil {
		ln.Close()
		return err
	}
	ctx.Printf("State kept in %s\n", store.Path())

	serveErr := cmd.serve(sigCtx, ctx, ln, svc)
	if err := store.Save(context.Background(), svc.State()); err != nil {
		return errors.Join(serveErr, fmt.Errorf("save state: %w", err))
	}
	logger.Info("devserver state saved", "path", store.Path())
	return serveErr
}

// restore loads saved state into svc. A fresh database leaves the seed as is.
func restore(ctx context.Context, store *storage.Store, svc *memory.Service) error {
	st, ok, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if ok {
		svc.Restore(st)
		logger.Info("devserver state restored", "path", store.Path(), "schedules", len(st.Schedules))
	}
	return nil
}

func (cmd *DevserverCmd) serve(ctx context.Context, c *cli.Context, ln net.Listener, svc *memory.Service) error {
	srv := &http.Server{
		Handler:           memory.NewHandler(svc),
		ReadHeaderTimeout: 5 * time.Second,
	}

	c.Printf("Schedule Service listening on http://%s/api/v1\n", ln.Addr())
	c.Printf("  accounts: admin/%s  dispatch/%s  viewer/%s\n",
		memory.AdminPassword, memory.DispatcherPassword, memory.ViewerPassword)
	logger.Info("devserver started", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("devserver stopped")
	return nil
}
