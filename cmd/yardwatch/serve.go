package main

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

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/banshee-data/yardwatch/internal/api"
	"github.com/banshee-data/yardwatch/internal/config"
	"github.com/banshee-data/yardwatch/internal/db"
	"github.com/banshee-data/yardwatch/internal/monitoring"
	"github.com/banshee-data/yardwatch/internal/serialmux"
	"github.com/banshee-data/yardwatch/internal/statusrpc"
	"github.com/banshee-data/yardwatch/internal/timeutil"
	"github.com/banshee-data/yardwatch/internal/version"
	"github.com/banshee-data/yardwatch/internal/yard"
)

// NewServeCommand creates the serve command, which runs the monitor.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the yard monitor",
		Long: `Reads section snapshots from the serial transport (or a fixture file),
runs the yard engine, persists its output and serves the HTTP API.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = &listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.GetListen())
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.GetListen(), err)
			}
			return serve(ctx, cfg, ln, timeutil.RealClock{})
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "override the HTTP listen address")

	return cmd
}

// serve runs the monitor until ctx is cancelled. The API stays up after a
// fixture runs out. serve owns ln.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener, clock timeutil.Clock) error {
	store, err := db.NewDB(cfg.GetDatabasePath())
	if err != nil {
		ln.Close()
		return err
	}
	defer store.Close()

	reg, err := store.LoadTopology()
	if err != nil {
		ln.Close()
		return config.Errorf("layout", "no usable layout in %s (run `yardwatch layout import`): %v", cfg.GetDatabasePath(), err)
	}

	m, err := serialmux.Open(cfg, clock)
	if err != nil {
		ln.Close()
		return err
	}
	defer m.Close()

	rec := yard.NewAsyncRecorder(store, cfg.GetRecorderQueueSize())
	hub := api.NewStatusHub()
	defer hub.Close()

	engine := yard.New(reg, rec,
		yard.WithClock(clock),
		yard.WithPublisher(hub),
		yard.WithLocation(cfg.GetIDLocation()),
	)
	_ = rec.RecordSystemEvent(yard.SystemEvent{
		TS:          timeutil.Epoch(clock.Now()),
		EventID:     "startup",
		Description: fmt.Sprintf("yardwatch %s (%s) started with %d sections", version.Version, version.GitSHA, len(reg.Sections())),
	})

	queue := yard.NewQueue()

	mux := http.NewServeMux()
	srv := api.NewServer(engine, store, m, hub,
		api.WithRecorder(rec),
		api.WithResetRoles(cfg.GetResetRoles()),
		api.WithClock(clock),
	)
	mux.Handle("/", srv.ServeMux())
	if cfg.GetDebugRoutes() {
		m.AttachAdminRoutes(mux)
		if err := store.AttachAdminRoutes(mux); err != nil {
			ln.Close()
			return err
		}
	}
	server := &http.Server{Handler: api.LoggingMiddleware(mux)}

	var grpcServer *grpc.Server
	var grpcLn net.Listener
	if addr := cfg.GetGRPCListen(); addr != "" {
		grpcLn, err = net.Listen("tcp", addr)
		if err != nil {
			ln.Close()
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		grpcServer = grpc.NewServer()
		statusrpc.Register(grpcServer, statusrpc.NewServer(hub, engine, cfg.GetGRPCMaxClients()))
	}

	// The recorder outlives the other goroutines so it can flush whatever
	// the engine wrote on the way down.
	recCtx, stopRecorder := context.WithCancel(context.Background())
	recDone := make(chan error, 1)
	go func() { recDone <- rec.Run(recCtx) }()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := m.Monitor(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("serial monitor: %w", err)
		}
		monitoring.Logf("serial monitor stopped")
		return nil
	})

	g.Go(func() error {
		id, ch := m.Subscribe()
		defer m.Unsubscribe(id)
		defer queue.Close()
		for {
			select {
			case <-gctx.Done():
				return nil
			case payload, ok := <-ch:
				if !ok {
					return nil
				}
				queue.Enqueue(payload)
			}
		}
	})

	g.Go(func() error {
		err := queue.Run(gctx, func(payload string) {
			if err := serialmux.HandleEvent(engine, rec, payload); err != nil {
				monitoring.Warnf("dropped message: %v", err)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		monitoring.Logf("listening on %s", ln.Addr())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if grpcServer != nil {
		g.Go(func() error {
			monitoring.Logf("gRPC status stream on %s", grpcLn.Addr())
			if err := grpcServer.Serve(grpcLn); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		// Closing the hub ends every status stream.
		hub.Close()
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		monitoring.Logf("shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Warnf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				monitoring.Warnf("HTTP server close error: %v", err)
			}
		}
		return nil
	})

	runErr := g.Wait()

	_ = rec.RecordSystemEvent(yard.SystemEvent{
		TS:          timeutil.Epoch(clock.Now()),
		EventID:     "shutdown",
		Description: fmt.Sprintf("yardwatch stopped after %d ticks", engine.Ticks()),
	})
	stopRecorder()
	if err := <-recDone; err != nil {
		monitoring.Errorf("recorder: %v", err)
	}
	st := rec.Stats()
	monitoring.Logf("recorder flushed: %d written, %d failed, %d dropped", st.Written, st.Failed, st.Dropped)

	return runErr
}
