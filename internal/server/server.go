package server

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/vormadev/instaglyph"
	"github.com/vormadev/instaglyph/internal/config"
	"github.com/vormadev/instaglyph/kit/etag"
	"github.com/vormadev/instaglyph/kit/typed"
)

const (
	cacheControl = "public, max-age=86400"

	// maxCachedSizes bounds how many PNG sizes stay in memory. Past it the
	// oldest rendered size is evicted.
	maxCachedSizes = 32
)

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>instaglyph</title></head>
<body>
{{.Icon}}
<p><a href="/instagram.svg">instagram.svg</a> · <a href="/instagram.png">instagram.png</a></p>
</body>
</html>
`))

type Server struct {
	cfg config.Config
	log *slog.Logger

	svg   *etag.Body
	index *etag.Body

	pngs *typed.SyncMap[int, *etag.Body]
}

// New renders the glyph's SVG, index page and default PNG up front so a
// broken renderer fails at startup rather than per request.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	doc, err := instaglyph.SVGDocument()
	if err != nil {
		return nil, fmt.Errorf("render svg: %w", err)
	}
	inline, err := instaglyph.InstagramHTML()
	if err != nil {
		return nil, fmt.Errorf("render inline svg: %w", err)
	}
	var page strings.Builder
	if err := indexTmpl.Execute(&page, struct{ Icon template.HTML }{inline}); err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}

	s := &Server{
		cfg:   cfg,
		log:   logger,
		svg:   etag.New("image/svg+xml", []byte(doc), &etag.Config{Strong: true}),
		index: etag.New("text/html; charset=utf-8", []byte(page.String())),
		pngs:  typed.NewSyncMap[int, *etag.Body](maxCachedSizes),
	}
	s.svg.CacheControl = cacheControl

	if _, err := s.png(instaglyph.DefaultPNGSize); err != nil {
		return nil, fmt.Errorf("render png: %w", err)
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RequestLogger(&chimw.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.log.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/healthz"))
	r.Use(chimw.Compress(5))

	r.Method(http.MethodGet, "/", s.index)
	r.Method(http.MethodHead, "/", s.index)
	r.Method(http.MethodGet, "/instagram.svg", s.svg)
	r.Method(http.MethodHead, "/instagram.svg", s.svg)
	r.Get("/instagram.png", s.servePNG)
	r.Head("/instagram.png", s.servePNG)

	return r
}

// HTTPServer wraps Handler with the timeouts used in production.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:                         s.cfg.Addr,
		Handler:                      http.TimeoutHandler(s.Handler(), 30*time.Second, "Request timed out"),
		ReadTimeout:                  15 * time.Second,
		WriteTimeout:                 30 * time.Second,
		IdleTimeout:                  60 * time.Second,
		ReadHeaderTimeout:            10 * time.Second,
		MaxHeaderBytes:               1 << 20, // 1 MB
		DisableGeneralOptionsHandler: true,
		ErrorLog:                     slog.NewLogLogger(s.log.Handler(), slog.LevelError),
	}
}

func (s *Server) servePNG(w http.ResponseWriter, r *http.Request) {
	size := instaglyph.DefaultPNGSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > s.cfg.MaxPNGSize {
			http.Error(w, fmt.Sprintf("size must be an integer between 1 and %d", s.cfg.MaxPNGSize), http.StatusBadRequest)
			return
		}
		size = n
	}

	body, err := s.png(size)
	if err != nil {
		s.log.Error("png render failed", "size", size, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	body.ServeHTTP(w, r)
}

func (s *Server) png(size int) (*etag.Body, error) {
	if body, ok := s.pngs.Load(size); ok {
		return body, nil
	}

	data, err := instaglyph.PNG(size)
	if err != nil {
		return nil, err
	}
	body := etag.New("image/png", data, &etag.Config{Strong: true})
	body.CacheControl = cacheControl
	s.log.Debug("rendered png", "size", size, "bytes", len(data))

	body, _ = s.pngs.LoadOrStore(size, body)
	return body, nil
}
