package grace

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/vormadev/instaglyph/kit/colorlog"
)

func defaultSignals() []os.Signal {
	if runtime.GOOS == "windows" {
		return []os.Signal{os.Interrupt}
	}
	return []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}

type OrchestrateOptions struct {
	ShutdownTimeout time.Duration // Default: 30 seconds
	Signals         []os.Signal   // Default: SIGHUP, SIGINT, SIGTERM, SIGQUIT
	Logger          *slog.Logger  // Default: colorlog to stdout

	// StartupCallback runs the application (e.g. server.ListenAndServe) and
	// should block until it stops. Return an error instead of exiting.
	StartupCallback func() error

	// ShutdownCallback releases resources (e.g. server.Shutdown). Its
	// context expires after ShutdownTimeout.
	ShutdownCallback func(context.Context) error

	// signalCh replaces signal.Notify in tests.
	signalCh <-chan os.Signal
}

// Orchestrate runs StartupCallback and waits for either a shutdown signal or
// a startup failure, then runs ShutdownCallback once. It returns the
// startup error, joined with any shutdown error.
func Orchestrate(options OrchestrateOptions) error {
	if options.Logger == nil {
		options.Logger = colorlog.New("grace")
	}
	if options.ShutdownTimeout == 0 {
		options.ShutdownTimeout = 30 * time.Second
	}
	if len(options.Signals) == 0 {
		options.Signals = defaultSignals()
	}

	sig := options.signalCh
	if sig == nil {
		ch := make(chan os.Signal, 2)
		signal.Notify(ch, options.Signals...)
		defer signal.Stop(ch)
		sig = ch
	}

	startupErr := make(chan error, 1)
	go func() {
		if options.StartupCallback == nil {
			return
		}
		startupErr <- options.StartupCallback()
	}()

	var errStartup error
	select {
	case s := <-sig:
		options.Logger.Info("[shutdown] Signal received, initiating graceful shutdown", "signal", s)
	case errStartup = <-startupErr:
		if errStartup != nil {
			options.Logger.Error("[startup] Error", "error", errStartup)
			options.Logger.Info("[shutdown] Initiating graceful shutdown due to startup failure")
		} else {
			// the application returned on its own; still wait for a signal
			s := <-sig
			options.Logger.Info("[shutdown] Signal received, initiating graceful shutdown", "signal", s)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), options.ShutdownTimeout)
	defer cancel()

	var errShutdown error
	if options.ShutdownCallback != nil {
		if errShutdown = options.ShutdownCallback(shutdownCtx); errShutdown != nil {
			options.Logger.Error("[shutdown] Cleanup error", "error", errShutdown)
		}
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		options.Logger.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	return errors.Join(errStartup, errShutdown)
}
