package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/parley/internal/config"
	"github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/testutil/fakeapi"
)

// mockPrefix is where the fake API is mounted, matching the real service.
const mockPrefix = "/api/v9"

var mockserverCmd = &cobra.Command{
	Use:   "mockserver",
	Short: "Serve a fake chat API for local testing",
	Long: `Serve a fake chat API for local testing.

The server holds a small fixed account in memory. Point the client at it
with PARLEY_API_BASE_URL=http://<addr>/api/v9 and log in as a@b.com with
password "secret".`,
	Args: cobra.NoArgs,
	RunE: runMockserver,
}

var mockserverAddr string

func init() {
	mockserverCmd.Flags().StringVar(&mockserverAddr, "addr", "127.0.0.1:8089", "listen address")
	rootCmd.AddCommand(mockserverCmd)
}

func runMockserver(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := CreateLogger(cfg)
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", mockserverAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", mockserverAddr, err)
	}
	return serveMock(ctx, ln, newMockRouter(fakeapi.New(fakeapi.DefaultFixture(), fakeapi.WithLogger(logger))), cmd)
}

// newMockRouter mounts srv under mockPrefix next to a health check.
func newMockRouter(srv *fakeapi.Server) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)
	r.PathPrefix(mockPrefix + "/").Handler(srv.Routes(mockPrefix))
	return r
}

// serveMock serves h on ln until ctx is done.
func serveMock(ctx context.Context, ln net.Listener, h http.Handler, cmd *cobra.Command) error {
	server := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Fake API listening on http://%s%s\n", ln.Addr(), mockPrefix)
	fmt.Fprintf(cmd.OutOrStdout(), "  export PARLEY_API_BASE_URL=http://%s%s\n", ln.Addr(), mockPrefix)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	<-errCh
	return nil
}
