package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully tears down the application. Most components stop by
// observing a.ctx's cancellation (signalled first); this method only
// handles the pieces that need an explicit, bounded close after that: the
// HTTP server's in-flight requests, the websocket pools' connections, the
// order-book caches' internal state, and the audit sink's underlying
// connection.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	if a.makerPool != nil {
		if err := a.makerPool.Close(); err != nil {
			a.logger.Error("maker-websocket-pool-close-error", zap.Error(err))
		}
	}
	if a.hedgePool != nil {
		if err := a.hedgePool.Close(); err != nil {
			a.logger.Error("hedge-websocket-pool-close-error", zap.Error(err))
		}
	}

	a.makerBooks.Close()
	a.hedgeBooks.Close()

	if a.auditSink != nil {
		if err := a.auditSink.Close(); err != nil {
			a.logger.Error("audit-sink-close-error", zap.Error(err))
		}
	}

	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}
