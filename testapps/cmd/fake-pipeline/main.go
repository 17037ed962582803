package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/trendctl/pkg/fakeapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	var port int
	var opts fakeapi.Options

	rootCmd := &cobra.Command{
		Use:   "fake-pipeline",
		Short: "Serve a scripted ingestion backend for trendctl smoke runs",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.InitLoggerFromCobra(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return serve(ctx, port, opts)
		},
	}
	rootCmd.Flags().IntVar(&port, "port", 8000, "Port to listen on (0 for ephemeral)")
	rootCmd.Flags().IntVar(&opts.QueriesPerStep, "queries-per-step", 2, "Status queries each step stays running")
	rootCmd.Flags().StringVar(&opts.FailStep, "fail-step", "", "Name of the step that fails every run")
	rootCmd.Flags().StringVar(&opts.FailMessage, "fail-message", "", "Error reported by a failed run")
	rootCmd.Flags().BoolVar(&opts.Refuse, "refuse", false, "Refuse every run request")

	cobra.CheckErr(logging.AddLoggingLayerToRootCommand(rootCmd, "fake-pipeline"))
	cobra.CheckErr(rootCmd.Execute())
}

func serve(ctx context.Context, port int, opts fakeapi.Options) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	log.Info().Str("api_url", "http://"+ln.Addr().String()+fakeapi.Prefix).Msg("fake pipeline listening")

	srv := &http.Server{
		Handler:           fakeapi.New(opts).Handler(),
		ReadHeaderTimeout: 2 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	return nil
}
