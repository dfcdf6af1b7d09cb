package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Run starts every component and blocks until a shutdown signal arrives.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("account", a.cfg.AccountName),
		zap.String("maker-venue", a.makerVenue.Name()),
		zap.String("hedge-venue", a.hedgeVenue.Name()),
		zap.String("log-level", a.cfg.LogLevel))

	a.startComponents()

	a.healthChecker.SetReady(true)
	a.logger.Info("application-ready", zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() {
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give the HTTP server a moment to bind before anything starts
	// publishing to the event bus.
	time.Sleep(100 * time.Millisecond)

	a.wg.Add(1)
	go func() { defer a.wg.Done(); a.bus.Run(a.ctx) }()

	if a.makerPool != nil {
		if err := a.makerPool.Start(); err != nil {
			a.logger.Error("maker-websocket-pool-start-failed", zap.Error(err))
		}
	}
	if a.hedgePool != nil {
		if err := a.hedgePool.Start(); err != nil {
			a.logger.Error("hedge-websocket-pool-start-failed", zap.Error(err))
		}
	}

	a.wg.Add(1)
	go a.runLogged("marketmatcher", a.matcher.Run)

	a.makerBooks.Start(a.ctx)
	a.hedgeBooks.Start(a.ctx)

	if a.hedgeRESTPoll != nil {
		a.wg.Add(1)
		go a.runLogged("hedge-rest-poller", a.hedgeRESTPoll.Run)
	}

	a.wg.Add(1)
	go func() { defer a.wg.Done(); a.makerOrders.Run(a.ctx) }()
	a.wg.Add(1)
	go func() { defer a.wg.Done(); a.hedgeOrders.Run(a.ctx) }()

	a.wg.Add(1)
	go a.runLogged("scanner", a.scanner.Run)

	a.wg.Add(1)
	go a.runLogged("executor", a.executor.Run)

	a.wg.Add(1)
	go a.runLogged("exposure", a.exposureMon.Run)

	if a.walletTrack != nil {
		a.wg.Add(1)
		go a.runLogged("wallet-tracker", a.walletTrack.Run)
	}

	if a.chainWatcher != nil {
		a.wg.Add(1)
		go a.runLogged("chain-watcher", a.chainWatcher.Run)
	}

	a.wg.Add(1)
	go a.bridgeToBus()
}

// runLogged runs fn(a.ctx) to completion, logging any error that isn't a
// plain context cancellation, and always releasing the wait group.
func (a *App) runLogged(name string, fn func(ctx context.Context) error) {
	defer a.wg.Done()
	if err := fn(a.ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error(name+"-error", zap.Error(err))
	}
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// bridgeToBus forwards scanner opportunities, task mutations and exposure
// alerts onto the dashboard event bus as opaque JSON envelopes. Channel
// names are the dashboard's wire contract; payload shape beyond that is
// this package's own concern, since no dashboard client ships here.
func (a *App) bridgeToBus() {
	defer a.wg.Done()

	opps := a.scanner.Updates()
	tasks := a.store.Subscribe()
	alerts := a.exposureMon.Alerts()

	for {
		select {
		case <-a.ctx.Done():
			return
		case o, ok := <-opps:
			if !ok {
				opps = nil
				continue
			}
			a.publish("opportunities", o)
		case t, ok := <-tasks:
			if !ok {
				tasks = nil
				continue
			}
			a.publish("tasks", t)
		case al, ok := <-alerts:
			if !ok {
				alerts = nil
				continue
			}
			a.publish("exposure", al)
		}
	}
}

func (a *App) publish(channel string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		a.logger.Warn("bus-publish-marshal-failed", zap.String("channel", channel), zap.Error(err))
		return
	}
	a.bus.Publish(channel, payload)
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
