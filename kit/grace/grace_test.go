package grace

import (
	"bytes"
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/vormadev/instaglyph/kit/colorlog"
)

func quietOptions(buf *bytes.Buffer) OrchestrateOptions {
	noColor := false
	return OrchestrateOptions{
		Logger:          colorlog.New("grace", colorlog.Options{Output: buf, UseColor: &noColor}),
		ShutdownTimeout: time.Second,
	}
}

func TestOrchestrate_Signal(t *testing.T) {
	var buf bytes.Buffer
	sig := make(chan os.Signal, 1)
	stop := make(chan struct{})
	shutdownCalled := false

	opts := quietOptions(&buf)
	opts.signalCh = sig
	opts.StartupCallback = func() error {
		sig <- syscall.SIGTERM
		<-stop
		return nil
	}
	opts.ShutdownCallback = func(ctx context.Context) error {
		shutdownCalled = true
		close(stop)
		if _, ok := ctx.Deadline(); !ok {
			t.Error("shutdown context should carry a deadline")
		}
		return nil
	}

	if err := Orchestrate(opts); err != nil {
		t.Fatalf("Orchestrate() error = %v", err)
	}
	if !shutdownCalled {
		t.Error("shutdown callback not called")
	}
	if !bytes.Contains(buf.Bytes(), []byte("Signal received")) {
		t.Errorf("missing shutdown log: %q", buf.String())
	}
}

func TestOrchestrate_StartupFailure(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("listen failed")
	shutdownCalled := false

	opts := quietOptions(&buf)
	opts.signalCh = make(chan os.Signal)
	opts.StartupCallback = func() error { return boom }
	opts.ShutdownCallback = func(context.Context) error {
		shutdownCalled = true
		return nil
	}

	err := Orchestrate(opts)
	if !errors.Is(err, boom) {
		t.Fatalf("Orchestrate() error = %v, want %v", err, boom)
	}
	if !shutdownCalled {
		t.Error("shutdown should run after startup failure")
	}
}

func TestOrchestrate_ShutdownError(t *testing.T) {
	var buf bytes.Buffer
	sig := make(chan os.Signal, 1)
	sig <- os.Interrupt
	cleanupErr := errors.New("cleanup failed")

	opts := quietOptions(&buf)
	opts.signalCh = sig
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	opts.StartupCallback = func() error { <-done; return nil }
	opts.ShutdownCallback = func(context.Context) error { return cleanupErr }

	if err := Orchestrate(opts); !errors.Is(err, cleanupErr) {
		t.Errorf("Orchestrate() error = %v, want %v", err, cleanupErr)
	}
}
