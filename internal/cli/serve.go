package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"metinanaliz/internal/logger"
	"metinanaliz/internal/uploads"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		log := logger.For("server")
		srv := &http.Server{
			Addr:              cfg.Server.Address,
			Handler:           a.router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		sweeper := uploads.NewSweeper(cfg.Paths.UploadDir, cfg.Processing.UploadTTL())

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.WithField("addr", srv.Addr).Info("server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			return sweeper.Run(gctx, cfg.Processing.SweepInterval())
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			log.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
