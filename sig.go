package uribeacon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WithSigHandler returns a context that is cancelled on SIGINT or SIGTERM.
// The returned context shares ctx's deadline.
func WithSigHandler(ctx context.Context, cancel func()) context.Context {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigs)

		select {
		case <-sigs:
			GetLogger().Debug("signal received, shutting down")
		case <-ctx.Done():
		}
		cancel()
	}()
	return ctx
}
