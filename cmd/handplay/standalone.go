package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newStandaloneCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "standalone [video]",
		Short: "Run the camera and the player in one process",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runStandalone(cmd.Context(), rt, path)
		},
	}

	flags := cmd.Flags()
	flags.Int("camera", 0, "camera device index")
	annotate(flags, "camera", "camera.device_id")
	flags.String("http", "", "address of the HTTP control surface")
	annotate(flags, "http", "server.addr")
	flags.Bool("tray", false, "show the system tray menu")
	annotate(flags, "tray", "tray.enabled")
	return cmd
}

func runStandalone(parent context.Context, rt *runtime, path string) error {
	cfg, logger := rt.cfg, rt.logger

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := newPlayer(cfg, path, logger)
	if err != nil {
		return err
	}
	d := newDispatcher(cfg, p, logger)

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

	surf := newSurface(cfg, p, d, st, logger)
	surf.attachGestures(a)

	// A camera failure ends only the gesture loop; the player keeps running.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(gctx) })
	g.Go(func() error { return d.Run(gctx) })
	g.Go(func() error { return a.Run(gctx) })
	surf.start(gctx, g)

	return surf.wait(g, cancel)
}
