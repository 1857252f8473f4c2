package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/snake-duel/internal/api"
	"github.com/vovakirdan/snake-duel/internal/config"
	"github.com/vovakirdan/snake-duel/internal/platform/tui"
)

var (
	flagSSHAddr  string
	flagHTTPAddr string
	flagHostKey  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SSH game server and the HTTP API",
	Long: `Start an SSH server that allows users to connect and play.

Each SSH connection gets its own session with the menu. All sessions
share one lobby, so players on the same server can duel each other, and
one leaderboard. The HTTP API serves scores, recent duels and rooms.

The config file is watched; difficulty and lobby changes apply to new
matches without a restart.

Examples:
  snake serve                        # Listen on the configured addresses
  snake serve --ssh :2222 --http :8080
  snake serve --http ""              # SSH only

Users can connect with:
  ssh localhost -p 2222`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH server address (default from config)")
	serveCmd.Flags().StringVar(&flagHTTPAddr, "http", "", "HTTP API address (default from config)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.holder.Load()
	sshAddr := cfg.Server.SSHAddr
	if flagSSHAddr != "" {
		sshAddr = flagSSHAddr
	}
	httpAddr := cfg.Server.HTTPAddr
	if cmd.Flags().Changed("http") {
		httpAddr = flagHTTPAddr
	}
	hostKey := cfg.Server.HostKey
	if flagHostKey != "" {
		hostKey = flagHostKey
	}

	r, err := a.openRooms(ctx)
	if err != nil {
		return err
	}

	server, err := tui.NewSSHServer(tui.SSHServerConfig{
		Address:     sshAddr,
		HostKeyPath: hostKey,
		IdleTimeout: cfg.Server.IdleTimeout,
	}, tui.Services{
		Config: a.holder,
		Scores: a.scores,
		Lobby:  r.lobby,
		Logger: a.logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.ListenAndServe(ctx)
	})

	if httpAddr != "" {
		g.Go(func() error {
			return serveHTTP(ctx, httpAddr, api.NewRouter(a.scores, r.lobby, a.logger))
		})
	}

	if r.lister != nil {
		g.Go(func() error {
			return r.lobby.RunJanitor(ctx, r.lister)
		})
	}

	if a.cfgPath != "" {
		g.Go(func() error {
			if err := config.Watch(ctx, a.cfgPath, a.holder, a.logger); err != nil {
				a.logger.Warn("config reload disabled", "err", err)
			}
			return nil
		})
	}

	fmt.Printf("Snake server listening on %s\n", sshAddr)
	if httpAddr != "" {
		fmt.Printf("HTTP API on %s\n", httpAddr)
	}
	fmt.Println("Press Ctrl+C to stop")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serveHTTP runs handler until ctx is done.
func serveHTTP(ctx context.Context, addr string, handler *gin.Engine) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
