package instaglyph

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/vormadev/instaglyph/kit/htmlutil"
	"github.com/vormadev/instaglyph/kit/lazyget"
	"github.com/vormadev/instaglyph/kit/raster"
)

const (
	xmlns = "http://www.w3.org/2000/svg"

	// DefaultPNGSize is the intrinsic pixel width of the glyph.
	DefaultPNGSize = 50
)

var ErrMismatch = errors.New("markup is not the instagram glyph")

// MismatchError lists how checked markup differs from the glyph.
type MismatchError struct {
	Diffs []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMismatch, strings.Join(e.Diffs, "; "))
}

func (e *MismatchError) Unwrap() error { return ErrMismatch }

var (
	cachedHTML = lazyget.NewErr(func() (template.HTML, error) {
		return htmlutil.RenderElement(Instagram())
	})
	cachedDocument = lazyget.NewErr(func() (string, error) {
		el := Instagram()
		el.Attributes["xmlns"] = xmlns
		markup, err := htmlutil.RenderElement(el)
		return string(markup), err
	})
	cachedPNG = lazyget.NewErr(func() ([]byte, error) {
		return raster.PNG(Instagram(), DefaultPNGSize)
	})
)

// InstagramHTML returns the glyph as inline markup for embedding in an
// HTML page.
func InstagramHTML() (template.HTML, error) {
	return cachedHTML()
}

// SVGDocument returns the glyph as a standalone SVG document, which differs
// from the inline markup only by the xmlns attribute.
func SVGDocument() (string, error) {
	return cachedDocument()
}

// WriteSVG writes the standalone SVG document to w.
func WriteSVG(w io.Writer) error {
	doc, err := SVGDocument()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, doc)
	return err
}

// PNG rasterizes the glyph at size pixels square. Zero means
// DefaultPNGSize. The default size is rendered once and shared, so callers
// must not modify the returned bytes.
func PNG(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid png size %d", size)
	}
	if size == 0 || size == DefaultPNGSize {
		return cachedPNG()
	}
	return raster.PNG(Instagram(), size)
}

// Check reports whether r holds the glyph's markup. Whitespace, comments,
// attribute order and the xmlns attribute are ignored. A mismatch is
// returned as a *MismatchError.
func Check(r io.Reader) error {
	got, err := htmlutil.Parse(r)
	if err != nil {
		return err
	}
	delete(got.Attributes, "xmlns")
	delete(got.AttributesKnownSafe, "xmlns")

	if diffs := htmlutil.Diff(Instagram(), got); len(diffs) > 0 {
		return &MismatchError{Diffs: diffs}
	}
	return nil
}
