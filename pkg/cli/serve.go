package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/virasto/pkg/server"
	"github.com/m-mizutani/virasto/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	var (
		cfg           config
		addr          string
		askMode       string
		maxUploadSize int64
		corsOrigins   []string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       "127.0.0.1:5000",
			Sources:     cli.EnvVars("VIRASTO_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "ask-mode",
			Usage:       "Answer mode of POST /ask (stream, single)",
			Value:       string(server.AskModeStream),
			Sources:     cli.EnvVars("VIRASTO_ASK_MODE"),
			Destination: &askMode,
		},
		&cli.IntFlag{
			Name:        "max-upload-size",
			Usage:       "Maximum upload size in bytes",
			Value:       server.DefaultMaxUploadSize,
			Sources:     cli.EnvVars("VIRASTO_MAX_UPLOAD_SIZE"),
			Destination: &maxUploadSize,
		},
		&cli.StringSliceFlag{
			Name:        "cors-origin",
			Usage:       "Allowed CORS origin, repeatable",
			Value:       []string{"*"},
			Sources:     cli.EnvVars("VIRASTO_CORS_ORIGINS"),
			Destination: &corsOrigins,
		},
	}
	flags = append(flags, loggingFlags(&cfg)...)
	flags = append(flags, geminiFlags(&cfg)...)
	flags = append(flags, assistantFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, archiveFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			mode := server.AskMode(askMode)
			if mode != server.AskModeStream && mode != server.AskModeSingle {
				return goerr.New("invalid ask mode", goerr.V("mode", askMode))
			}

			uc, cleanup, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			handler := server.New(uc,
				server.WithAskMode(mode),
				server.WithMaxUploadSize(maxUploadSize),
				server.WithCORSOrigins(corsOrigins...),
			)

			return listenAndServe(ctx, addr, handler)
		},
	}
}

// listenAndServe runs the server until SIGINT or SIGTERM and then drains
// in-flight requests. No write timeout is set so streams can run long.
func listenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	logger := logging.From(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return goerr.Wrap(err, "server stopped", goerr.V("addr", addr))
		}
		return nil
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shutdown server")
	}

	logger.Info("server stopped")
	return nil
}
