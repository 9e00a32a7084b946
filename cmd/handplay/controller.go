package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/handplay/internal/transport"
)

func newControllerCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "controller",
		Short: "Watch the camera and send gesture commands to a player",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runController(cmd.Context(), rt)
		},
	}

	flags := cmd.Flags()
	flags.String("player", "", "address of the player")
	annotate(flags, "player", "transport.addr")
	flags.Int("camera", 0, "camera device index")
	annotate(flags, "camera", "camera.device_id")
	return cmd
}

func runController(parent context.Context, rt *runtime) error {
	cfg, logger := rt.cfg, rt.logger

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := transport.NewClient(transport.ClientConfig{
		Addr:         cfg.Transport.Addr,
		DialTimeout:  cfg.Transport.DialTimeout,
		WriteTimeout: cfg.Transport.WriteTimeout,
	}, logger.Named("sender"))
	defer client.Close()

	// Without a player the controller keeps classifying; commands are dropped.
	if err := client.Connect(ctx); err != nil {
		logger.Error("player not reachable, commands will be dropped", zap.Error(err))
	}

	d := newDispatcher(cfg, client, logger)
	st, err := openJournal(ctx, cfg, d, logger)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	a, closeDetector, err := newGestureApp(cfg, d, logger)
	if err != nil {
		return err
	}
	defer closeDetector()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.Run(gctx) })
	g.Go(func() error { return a.Run(gctx) })
	return g.Wait()
}
