package instaglyph

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/vormadev/instaglyph/kit/htmlutil"
)

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf); err != nil {
		t.Fatalf("WriteSVG() error = %v", err)
	}
	s := buf.String()
	if !strings.HasPrefix(s, `<svg fill="none" height="50px" viewBox="0 -0.5 25 25" width="50px" xmlns="http://www.w3.org/2000/svg">`) {
		t.Errorf("unexpected document start: %.120s", s)
	}
	if !strings.HasSuffix(s, "</g></svg>") {
		t.Errorf("unexpected document end: %s", s[max(0, len(s)-40):])
	}

	// the component tree itself is never given xmlns
	if _, ok := Instagram().Attr("xmlns"); ok {
		t.Error("Instagram() must not carry xmlns")
	}
}

func TestMarkupRoundTrip(t *testing.T) {
	markup, err := InstagramHTML()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := htmlutil.Parse(strings.NewReader(string(markup)))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !htmlutil.Equal(Instagram(), parsed) {
		t.Errorf("parsed markup differs: %v", htmlutil.Diff(Instagram(), parsed))
	}
}

func TestCheck(t *testing.T) {
	doc, err := SVGDocument()
	if err != nil {
		t.Fatal(err)
	}

	t.Run("standalone document", func(t *testing.T) {
		if err := Check(strings.NewReader(doc)); err != nil {
			t.Errorf("Check() error = %v", err)
		}
	})

	t.Run("pretty-printed markup with prolog", func(t *testing.T) {
		src := `<?xml version="1.0" encoding="utf-8"?>
<svg viewBox="0 -0.5 25 25" fill="none" width="50px" height="50px" xmlns="http://www.w3.org/2000/svg">
  <g id="SVGRepo_bgCarrier" stroke-width="0"></g>
  <g id="SVGRepo_tracerCarrier" stroke-linecap="round" stroke-linejoin="round"></g>
  <g id="SVGRepo_iconCarrier">
    <path fill-rule="evenodd" clip-rule="evenodd" d="` + OutlinePath + `" stroke="#000000" stroke-width="1.5" stroke-linecap="round" stroke-linejoin="round"></path>
    <path fill-rule="evenodd" clip-rule="evenodd" d="` + LensPath + `" stroke="#000000" stroke-width="1.5" stroke-linecap="round" stroke-linejoin="round"></path>
    <rect x="15.5" y="9" width="2" height="2" rx="1" transform="rotate(-90 15.5 9)" fill="#000000"></rect>
    <rect x="16" y="8.5" width="1" height="1" rx="0.5" transform="rotate(-90 16 8.5)" stroke="#000000" stroke-linecap="round"/>
  </g>
</svg>`
		if err := Check(strings.NewReader(src)); err != nil {
			t.Errorf("Check() error = %v", err)
		}
	})

	t.Run("tampered geometry", func(t *testing.T) {
		bad := strings.Replace(doc, "M15.5 5H9.5", "M15.5 5H9.0", 1)
		err := Check(strings.NewReader(bad))
		if !errors.Is(err, ErrMismatch) {
			t.Fatalf("Check() error = %v, want ErrMismatch", err)
		}
		var me *MismatchError
		if !errors.As(err, &me) || len(me.Diffs) != 1 {
			t.Fatalf("want one diff, got %v", err)
		}
		if !strings.HasPrefix(me.Diffs[0], "svg/g[2]/path[0]: attribute d") {
			t.Errorf("diff = %q", me.Diffs[0])
		}
	})

	t.Run("wrong size", func(t *testing.T) {
		bad := strings.Replace(doc, `width="50px"`, `width="24px"`, 1)
		if err := Check(strings.NewReader(bad)); !errors.Is(err, ErrMismatch) {
			t.Errorf("Check() error = %v, want ErrMismatch", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if err := Check(strings.NewReader("<svg><g></svg>")); !errors.Is(err, htmlutil.ErrMalformed) {
			t.Errorf("Check() error = %v, want ErrMalformed", err)
		}
	})
}

func decodePNG(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	return img
}

func alphaAt(img image.Image, x, y int) uint32 {
	_, _, _, a := img.At(x, y).RGBA()
	return a
}

func TestPNG(t *testing.T) {
	b, err := PNG(0)
	if err != nil {
		t.Fatalf("PNG() error = %v", err)
	}
	img := decodePNG(t, b)
	if got := img.Bounds().Size(); got != image.Pt(50, 50) {
		t.Fatalf("size = %v, want 50x50", got)
	}

	// viewBox "0 -0.5 25 25" at 50px: px = 2x, py = 2y + 1
	opaque := []struct {
		name string
		x, y int
	}{
		{"outline top edge", 25, 11},
		{"outline left edge", 11, 25},
		{"lens ring left", 19, 25},
		{"flash dot", 33, 16},
	}
	for _, p := range opaque {
		if a := alphaAt(img, p.x, p.y); a < 0xc000 {
			t.Errorf("%s (%d,%d) alpha = %#x, want opaque", p.name, p.x, p.y, a)
		}
		if r, g, bl, _ := img.At(p.x, p.y).RGBA(); r > 0x2000 || g > 0x2000 || bl > 0x2000 {
			t.Errorf("%s (%d,%d) is not black", p.name, p.x, p.y)
		}
	}

	clear := []struct {
		name string
		x, y int
	}{
		{"corner", 1, 1},
		{"outside right", 46, 25},
		{"lens centre", 25, 25},
		{"between outline and lens", 14, 25},
	}
	for _, p := range clear {
		if a := alphaAt(img, p.x, p.y); a > 0x1000 {
			t.Errorf("%s (%d,%d) alpha = %#x, want transparent", p.name, p.x, p.y, a)
		}
	}

	again, err := PNG(DefaultPNGSize)
	if err != nil || !bytes.Equal(again, b) {
		t.Error("default size PNG should be cached and stable")
	}
}

func TestPNG_Sizes(t *testing.T) {
	b, err := PNG(200)
	if err != nil {
		t.Fatalf("PNG(200) error = %v", err)
	}
	if got := decodePNG(t, b).Bounds().Size(); got != image.Pt(200, 200) {
		t.Errorf("size = %v, want 200x200", got)
	}

	if _, err := PNG(-1); err == nil {
		t.Error("negative size should fail")
	}
}
