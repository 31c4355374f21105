package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/docanalyzer-go/internal/infrastructure/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and upload UI",
	Long:  `Start the HTTP server for document summarization and question answering. With --watch the inbox watcher runs alongside.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var serveWatch bool

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "listen host")
	serveCmd.Flags().Int("port", 8080, "listen port")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "also summarize documents dropped into the inbox")
	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setup(needs{qa: true})
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	srv := http.NewServer(a.docs, a.registry.SupportedFormats(), a.metrics, a.gatherer, http.Config{
		Addr:           a.cfg.Server.Addr(),
		MaxUploadBytes: a.cfg.Server.MaxUploadMB * megabyte,
		ReadTimeout:    a.cfg.Server.ReadTimeout,
		WriteTimeout:   a.cfg.Server.WriteTimeout,
		ShutdownGrace:  a.cfg.Server.ShutdownGrace,
	}, a.logger.Named("http"))
	for name, check := range a.health {
		srv.AddHealthCheck(name, check)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})
	if serveWatch || a.cfg.Watch.Enabled {
		inbox, err := a.inbox()
		if err != nil {
			return err
		}
		g.Go(func() error {
			return inbox.Run(ctx)
		})
	}

	err = g.Wait()
	a.logger.Info("docanalyzer stopped", zap.Error(err))
	return err
}
