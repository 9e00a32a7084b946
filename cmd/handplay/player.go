package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/handplay/internal/command"
	"github.com/ayusman/handplay/internal/dispatch"
	"github.com/ayusman/handplay/internal/transport"
)

func newPlayerCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player [video]",
		Short: "Play a video and accept commands from a gesture controller over TCP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runPlayer(cmd.Context(), rt, path)
		},
	}

	flags := cmd.Flags()
	flags.String("listen", "", "address for controller connections")
	annotate(flags, "listen", "transport.addr")
	flags.String("http", "", "address of the HTTP control surface")
	annotate(flags, "http", "server.addr")
	flags.Bool("tray", false, "show the system tray menu")
	annotate(flags, "tray", "tray.enabled")
	return cmd
}

func runPlayer(parent context.Context, rt *runtime, path string) error {
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

	receiver := transport.NewServer(cfg.Transport.Addr, func(c command.Command) {
		d.Submit(c, dispatch.SourceNetwork)
	}, logger.Named("receiver"))
	if err := receiver.Listen(); err != nil {
		return err
	}

	surf := newSurface(cfg, p, d, st, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(gctx) })
	g.Go(func() error { return d.Run(gctx) })
	g.Go(func() error { return receiver.Serve(gctx) })
	surf.start(gctx, g)

	return surf.wait(g, cancel)
}
