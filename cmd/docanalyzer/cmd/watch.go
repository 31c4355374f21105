package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/0xcro3dile/docanalyzer-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/docanalyzer-go/internal/domain/usecases"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Summarize documents dropped into the inbox directory",
	Long:  `Summarize every document already in the inbox, then watch it and write <output>/<name>.summary.txt for each new or changed document.`,
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("inbox", "./inbox", "directory to watch")
	watchCmd.Flags().String("output", "./summaries", "directory summaries are written to")
	mustBindPFlag("watch.inbox_dir", watchCmd.Flags().Lookup("inbox"))
	mustBindPFlag("watch.output_dir", watchCmd.Flags().Lookup("output"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setup(needs{})
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	inbox, err := a.inbox()
	if err != nil {
		return err
	}
	return inbox.Run(ctx)
}

func (a *app) inbox() (*usecases.InboxUseCase, error) {
	watcher, err := filewatcher.NewFSNotifyWatcher(a.cfg.Watch.Extensions, a.logger.Named("watcher"))
	if err != nil {
		return nil, eris.Wrap(err, "creating inbox watcher")
	}
	a.closers = append(a.closers, stopper{watcher.Stop})

	return usecases.NewInboxUseCase(watcher, a.loader, a.docs, usecases.InboxConfig{
		InboxDir:  a.cfg.Watch.InboxDir,
		OutputDir: a.cfg.Watch.OutputDir,
		Debounce:  a.cfg.Watch.Debounce,
	}, a.logger.Named("inbox")), nil
}

// stopper adapts a Stop method to io.Closer.
type stopper struct {
	stop func() error
}

func (s stopper) Close() error {
	return s.stop()
}
