package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// runFunc is a long-running loop that returns once its context is done.
type runFunc func(ctx context.Context) error

// lifecycle runs the HTTP servers next to the loops that feed and drain them.
//
// Foreground loops stop as soon as shutdown begins. Background loops (event
// dispatch, websocket fan-out) keep running until every server has finished
// its in-flight requests, so events those requests emit still go out.
type lifecycle struct {
	servers         []*http.Server
	foreground      []runFunc
	background      []runFunc
	shutdownTimeout time.Duration
	log             *slog.Logger
}

// run binds every server, then blocks until ctx is cancelled or any part
// fails, and shuts down in order: servers first, background loops last.
func (l *lifecycle) run(ctx context.Context) error {
	listeners := make([]net.Listener, 0, len(l.servers))
	for _, srv := range l.servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, open := range listeners {
				open.Close()
			}
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, ln)
	}
	return l.serve(ctx, listeners)
}

func (l *lifecycle) serve(ctx context.Context, listeners []net.Listener) error {
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// A failing background loop still triggers an orderly shutdown.
	ctx, abort := context.WithCancel(ctx)
	defer abort()

	g, gctx := errgroup.WithContext(ctx)

	var bg errgroup.Group
	for _, fn := range l.background {
		fn := fn
		bg.Go(func() error {
			err := fn(bgCtx)
			if err != nil {
				abort()
			}
			return err
		})
	}
	for _, fn := range l.foreground {
		fn := fn
		g.Go(func() error { return fn(gctx) })
	}

	for i, srv := range l.servers {
		srv := srv
		ln := listeners[i]
		g.Go(func() error {
			l.log.Info("http server listening", "addr", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		l.log.Info("shutdown signal received, draining connections…")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
		defer cancel()
		for _, srv := range l.servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				l.log.Error("http shutdown error", "addr", srv.Addr, "err", err)
			}
		}
		return nil
	})

	err := g.Wait()
	stopBackground()
	return errors.Join(err, bg.Wait())
}
