// Command instaglyph renders, verifies and serves the Instagram glyph.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gogpu/gg"
	"github.com/vormadev/instaglyph"
	"github.com/vormadev/instaglyph/internal/config"
	"github.com/vormadev/instaglyph/internal/server"
	"github.com/vormadev/instaglyph/kit/colorlog"
	"github.com/vormadev/instaglyph/kit/fsutil"
	"github.com/vormadev/instaglyph/kit/grace"
	"golang.org/x/sync/errgroup"
)

const usage = `usage: instaglyph <command> [flags]

commands:
  svg    [-o file]                      write the SVG document
  png    [-size N] [-o file]            write a PNG rendering
  export -dir D [-size N] [-sizes a,b]  write instagram.svg and PNGs into D
  check  FILE                           verify FILE is the instagram glyph
  serve  [-addr A] [-watch-env]         run the HTTP server
`

var errUsage = errors.New("bad usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		// bare errUsage and ErrHelp have already printed usage
		if err != errUsage && !errors.Is(err, flag.ErrHelp) {
			newLogger(slog.LevelError, os.Stderr).Error("instaglyph failed", "error", err)
		}
		os.Exit(1)
	}
}

func newLogger(level slog.Leveler, w io.Writer) *slog.Logger {
	return colorlog.New("instaglyph", colorlog.Options{Output: w, Level: level})
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "svg":
		return runSVG(rest, stdout, stderr)
	case "check":
		return runCheck(rest, stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	case "png", "export", "serve":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return errUsage
	}

	// only the rendering and serving commands read configuration
	e, err := loadEnv(stderr)
	if err != nil {
		return err
	}
	switch cmd {
	case "png":
		return runPNG(rest, stdout, stderr, e.cfg)
	case "export":
		return runExport(rest, stderr, e.cfg, e.log)
	default:
		return runServe(rest, stderr, e)
	}
}

type env struct {
	cfg   config.Config
	log   *slog.Logger
	level *slog.LevelVar
}

func loadEnv(stderr io.Writer) (*env, error) {
	cfg, err := config.Load(config.DefaultEnvFile)
	if err != nil {
		return nil, err
	}
	level := new(slog.LevelVar)
	level.Set(cfg.LogLevel)
	log := newLogger(level, stderr)
	gg.SetLogger(log.With("component", "raster"))
	return &env{cfg: cfg, log: log, level: level}, nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runSVG(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("svg", stderr)
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, err := instaglyph.SVGDocument()
	if err != nil {
		return err
	}
	return writeOutput(*out, stdout, []byte(doc))
}

func runPNG(args []string, stdout, stderr io.Writer, cfg config.Config) error {
	fs := newFlagSet("png", stderr)
	size := fs.Int("size", instaglyph.DefaultPNGSize, "width and height in pixels")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkSize(*size, cfg); err != nil {
		return err
	}

	data, err := instaglyph.PNG(*size)
	if err != nil {
		return err
	}
	return writeOutput(*out, stdout, data)
}

func runExport(args []string, stderr io.Writer, cfg config.Config, log *slog.Logger) error {
	fs := newFlagSet("export", stderr)
	dir := fs.String("dir", "", "output directory (required)")
	size := fs.Int("size", instaglyph.DefaultPNGSize, "size of instagram.png")
	sizes := fs.String("sizes", "", "comma-separated extra sizes, written as instagram-N.png")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		fmt.Fprintln(stderr, "export: -dir is required")
		return errUsage
	}
	if err := checkSize(*size, cfg); err != nil {
		return err
	}
	extra, err := parseSizes(*sizes, cfg)
	if err != nil {
		return err
	}

	if err := fsutil.EnsureDir(*dir); err != nil {
		return err
	}

	var g errgroup.Group
	g.Go(func() error {
		doc, err := instaglyph.SVGDocument()
		if err != nil {
			return err
		}
		return writeFile(filepath.Join(*dir, "instagram.svg"), []byte(doc), log)
	})
	g.Go(func() error {
		data, err := instaglyph.PNG(*size)
		if err != nil {
			return fmt.Errorf("png %d: %w", *size, err)
		}
		return writeFile(filepath.Join(*dir, "instagram.png"), data, log)
	})
	for _, n := range extra {
		g.Go(func() error {
			data, err := instaglyph.PNG(n)
			if err != nil {
				return fmt.Errorf("png %d: %w", n, err)
			}
			return writeFile(filepath.Join(*dir, fmt.Sprintf("instagram-%d.png", n)), data, log)
		})
	}
	return g.Wait()
}

func runCheck(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("check", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "check: expected exactly one file")
		return errUsage
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := instaglyph.Check(f); err != nil {
		var mismatch *instaglyph.MismatchError
		if errors.As(err, &mismatch) {
			for _, d := range mismatch.Diffs {
				fmt.Fprintln(stdout, d)
			}
		}
		return fmt.Errorf("%s: %w", fs.Arg(0), err)
	}
	fmt.Fprintf(stdout, "%s: ok\n", fs.Arg(0))
	return nil
}

func runServe(args []string, stderr io.Writer, e *env) error {
	cfg, log := e.cfg, e.log
	fs := newFlagSet("serve", stderr)
	addr := fs.String("addr", cfg.Addr, "listen address")
	watch := fs.Bool("watch-env", false, "apply log level changes from the env file while running")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Addr = *addr

	srv, err := server.New(cfg, log)
	if err != nil {
		return err
	}
	httpServer := srv.HTTPServer()

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if *watch {
		go func() {
			err := config.Watch(watchCtx, config.DefaultEnvFile, log, followLogLevel(e.level, log))
			if err != nil {
				log.Warn("Env file watcher stopped", "error", err)
			}
		}()
	}

	return grace.Orchestrate(grace.OrchestrateOptions{
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          log,

		StartupCallback: func() error {
			log.Info("Starting server", "addr", cfg.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen and serve: %w", err)
			}
			return nil
		},

		ShutdownCallback: func(ctx context.Context) error {
			stopWatch()
			log.Info("Shutting down server", "addr", cfg.Addr)
			return httpServer.Shutdown(ctx)
		},
	})
}

// followLogLevel returns a config.Watch callback that moves level to each
// reloaded LogLevel.
func followLogLevel(level *slog.LevelVar, log *slog.Logger) func(config.Config) {
	return func(next config.Config) {
		if next.LogLevel == level.Level() {
			return
		}
		log.Info("Log level changed", "from", level.Level(), "to", next.LogLevel)
		level.Set(next.LogLevel)
	}
}

func checkSize(size int, cfg config.Config) error {
	if size < 1 || size > cfg.MaxPNGSize {
		return fmt.Errorf("%w: size %d out of range 1..%d", errUsage, size, cfg.MaxPNGSize)
	}
	return nil
}

func parseSizes(s string, cfg config.Config) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var sizes []int
	seen := map[int]bool{}
	for part := range strings.SplitSeq(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: bad size %q", errUsage, part)
		}
		if err := checkSize(n, cfg); err != nil {
			return nil, err
		}
		if !seen[n] {
			seen[n] = true
			sizes = append(sizes, n)
		}
	}
	return sizes, nil
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}

func writeFile(path string, data []byte, log *slog.Logger) error {
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return err
	}
	log.Debug("wrote file", "path", path, "bytes", len(data))
	return nil
}
