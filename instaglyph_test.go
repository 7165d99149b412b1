package instaglyph

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/vormadev/instaglyph/kit/htmlutil"
	"github.com/vormadev/instaglyph/kit/svgpath"
)

func iconCarrier(t *testing.T, root *htmlutil.Element) *htmlutil.Element {
	t.Helper()
	if len(root.Children) != 3 {
		t.Fatalf("svg has %d children, want 3", len(root.Children))
	}
	g := root.Children[2]
	if id, _ := g.Attr("id"); id != "SVGRepo_iconCarrier" {
		t.Fatalf("third group id = %q", id)
	}
	return g
}

func TestInstagram_Canvas(t *testing.T) {
	el := Instagram()
	if el.Tag != "svg" {
		t.Fatalf("root tag = %q, want svg", el.Tag)
	}
	want := map[string]string{
		"viewBox": "0 -0.5 25 25",
		"width":   "50px",
		"height":  "50px",
		"fill":    "none",
	}
	if !reflect.DeepEqual(el.Attributes, want) {
		t.Errorf("svg attributes = %v, want %v", el.Attributes, want)
	}
}

func TestInstagram_Groups(t *testing.T) {
	el := Instagram()
	tests := []struct {
		id    string
		attrs map[string]string
		kids  int
	}{
		{"SVGRepo_bgCarrier", map[string]string{"stroke-width": "0"}, 0},
		{"SVGRepo_tracerCarrier", map[string]string{"stroke-linecap": "round", "stroke-linejoin": "round"}, 0},
		{"SVGRepo_iconCarrier", map[string]string{}, 4},
	}
	for i, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			g := el.Children[i]
			if g.Tag != "g" {
				t.Fatalf("child %d tag = %q, want g", i, g.Tag)
			}
			if id, _ := g.Attr("id"); id != tt.id {
				t.Errorf("id = %q, want %q", id, tt.id)
			}
			for k, v := range tt.attrs {
				if got, _ := g.Attr(k); got != v {
					t.Errorf("%s = %q, want %q", k, got, v)
				}
			}
			if len(g.Children) != tt.kids {
				t.Errorf("%d children, want %d", len(g.Children), tt.kids)
			}
		})
	}
}

func TestInstagram_Paths(t *testing.T) {
	g := iconCarrier(t, Instagram())
	wantD := []string{
		"M15.5 5H9.5C7.29086 5 5.5 6.79086 5.5 9V15C5.5 17.2091 7.29086 19 9.5 19H15.5C17.7091 19 19.5 17.2091 19.5 15V9C19.5 6.79086 17.7091 5 15.5 5Z",
		"M12.5 15C10.8431 15 9.5 13.6569 9.5 12C9.5 10.3431 10.8431 9 12.5 9C14.1569 9 15.5 10.3431 15.5 12C15.5 12.7956 15.1839 13.5587 14.6213 14.1213C14.0587 14.6839 13.2956 15 12.5 15Z",
	}
	for i, d := range wantD {
		p := g.Children[i]
		if p.Tag != "path" {
			t.Fatalf("primitive %d tag = %q, want path", i+1, p.Tag)
		}
		want := map[string]string{
			"fill-rule":       "evenodd",
			"clip-rule":       "evenodd",
			"d":               d,
			"stroke":          "#000000",
			"stroke-width":    "1.5",
			"stroke-linecap":  "round",
			"stroke-linejoin": "round",
		}
		if !reflect.DeepEqual(p.Attributes, want) {
			t.Errorf("primitive %d attributes = %v, want %v", i+1, p.Attributes, want)
		}
		if _, ok := p.Attr("fill"); ok {
			t.Errorf("primitive %d must not set its own fill", i+1)
		}
	}
}

func TestInstagram_PathGeometry(t *testing.T) {
	tests := []struct {
		name   string
		d      string
		start  svgpath.Point
		cubics int
	}{
		{"outline", OutlinePath, svgpath.Point{X: 15.5, Y: 5}, 4},
		{"lens", LensPath, svgpath.Point{X: 12.5, Y: 15}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svgpath.Parse(tt.d)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if p.Subpaths() != 1 {
				t.Errorf("subpaths = %d, want 1", p.Subpaths())
			}
			if got, _ := p[0].End(); got != tt.start {
				t.Errorf("start = %v, want %v", got, tt.start)
			}
			if p[len(p)-1].Op != svgpath.Close {
				t.Error("path is not closed")
			}
			end, _ := p[len(p)-2].End()
			if end != tt.start {
				t.Errorf("last point %v does not return to start %v", end, tt.start)
			}
			n := 0
			for _, s := range p {
				if s.Op == svgpath.CubicTo {
					n++
				}
			}
			if n != tt.cubics {
				t.Errorf("cubic segments = %d, want %d", n, tt.cubics)
			}
		})
	}
}

func TestInstagram_FlashDot(t *testing.T) {
	g := iconCarrier(t, Instagram())
	outer, inner := g.Children[2], g.Children[3]

	wantOuter := map[string]string{
		"x": "15.5", "y": "9", "width": "2", "height": "2", "rx": "1",
		"transform": "rotate(-90 15.5 9)", "fill": "#000000",
	}
	wantInner := map[string]string{
		"x": "16", "y": "8.5", "width": "1", "height": "1", "rx": "0.5",
		"transform": "rotate(-90 16 8.5)", "stroke": "#000000", "stroke-linecap": "round",
	}
	if outer.Tag != "rect" || !reflect.DeepEqual(outer.Attributes, wantOuter) {
		t.Errorf("outer rect = <%s> %v, want %v", outer.Tag, outer.Attributes, wantOuter)
	}
	if inner.Tag != "rect" || !reflect.DeepEqual(inner.Attributes, wantInner) {
		t.Errorf("inner rect = <%s> %v, want %v", inner.Tag, inner.Attributes, wantInner)
	}

	// each rect rotates about its own origin
	for _, r := range []*htmlutil.Element{outer, inner} {
		x, _ := r.Attr("x")
		y, _ := r.Attr("y")
		tr, _ := r.Attr("transform")
		if want := "rotate(-90 " + x + " " + y + ")"; tr != want {
			t.Errorf("transform = %q, want %q", tr, want)
		}
	}
	if _, ok := outer.Attr("stroke"); ok {
		t.Error("outer rect must not be stroked")
	}
	if _, ok := inner.Attr("fill"); ok {
		t.Error("inner rect must not set a fill")
	}
}

func TestInstagram_Deterministic(t *testing.T) {
	a, b := Instagram(), Instagram(Props{})
	if !htmlutil.Equal(a, b) {
		t.Fatalf("two calls differ: %v", htmlutil.Diff(a, b))
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("two calls are not deeply equal")
	}
	if a == b {
		t.Error("calls must return distinct trees")
	}
}

func TestInstagram_CallerOwnsTree(t *testing.T) {
	a := Instagram()
	a.Attributes["width"] = "10px"
	a.Children[2].Children[0].Attributes["d"] = "M0 0Z"
	a.Children = a.Children[:1]

	b := Instagram()
	if w, _ := b.Attr("width"); w != "50px" {
		t.Errorf("width leaked from earlier mutation: %q", w)
	}
	if d, _ := b.Children[2].Children[0].Attr("d"); d != OutlinePath {
		t.Error("path data leaked from earlier mutation")
	}
}

func TestInstagram_Concurrent(t *testing.T) {
	want, err := htmlutil.RenderElement(Instagram())
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := htmlutil.RenderElement(Instagram())
			if err != nil || got != want {
				t.Errorf("concurrent render = %q, %v", got, err)
			}
		}()
	}
	wg.Wait()
}

func TestInstagramHTML(t *testing.T) {
	got, err := InstagramHTML()
	if err != nil {
		t.Fatalf("InstagramHTML() error = %v", err)
	}
	s := string(got)
	for _, want := range []string{
		`<svg fill="none" height="50px" viewBox="0 -0.5 25 25" width="50px">`,
		`d="` + OutlinePath + `"`,
		`d="` + LensPath + `"`,
		`transform="rotate(-90 15.5 9)"`,
		`transform="rotate(-90 16 8.5)"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("markup missing %q", want)
		}
	}
	if strings.Contains(s, "xmlns") {
		t.Error("inline markup should not carry xmlns")
	}

	again, _ := InstagramHTML()
	if again != got {
		t.Error("InstagramHTML is not stable")
	}
}
