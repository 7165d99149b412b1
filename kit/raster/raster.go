// Package raster paints an SVG visual tree (svg, g, path and rect elements)
// onto a gg drawing context.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/gg"
	"github.com/vormadev/instaglyph/kit/htmlutil"
	"github.com/vormadev/instaglyph/kit/svgpath"
)

var ErrUnsupported = errors.New("raster: unsupported markup")

// style is the inherited presentation state while walking the tree.
type style struct {
	fill        string
	stroke      string
	strokeWidth float64
	lineCap     gg.LineCap
	lineJoin    gg.LineJoin
	fillRule    gg.FillRule
}

// SVG initial values.
func defaultStyle() style {
	return style{
		fill:        "#000000",
		stroke:      "none",
		strokeWidth: 1,
		lineCap:     gg.LineCapButt,
		lineJoin:    gg.LineJoinMiter,
		fillRule:    gg.FillRuleNonZero,
	}
}

// Size returns the intrinsic pixel size of an svg root: its width/height
// attributes, falling back to the viewBox dimensions.
func Size(el *htmlutil.Element) (w, h float64, err error) {
	if el == nil || el.Tag != "svg" {
		return 0, 0, fmt.Errorf("%w: root must be <svg>", ErrUnsupported)
	}
	vb, err := viewBox(el)
	if err != nil {
		return 0, 0, err
	}
	w, h = vb[2], vb[3]
	if v, ok := el.Attr("width"); ok {
		if w, err = length(v); err != nil {
			return 0, 0, err
		}
	}
	if v, ok := el.Attr("height"); ok {
		if h, err = length(v); err != nil {
			return 0, 0, err
		}
	}
	return w, h, nil
}

// Draw paints el onto dc, fitting the root viewBox into the context with
// uniform scaling, centred (preserveAspectRatio xMidYMid meet).
func Draw(dc *gg.Context, el *htmlutil.Element) error {
	if el == nil || el.Tag != "svg" {
		return fmt.Errorf("%w: root must be <svg>", ErrUnsupported)
	}
	vb, err := viewBox(el)
	if err != nil {
		return err
	}

	cw, ch := float64(dc.Width()), float64(dc.Height())
	s := math.Min(cw/vb[2], ch/vb[3])

	dc.Push()
	defer dc.Pop()
	dc.Translate((cw-vb[2]*s)/2-vb[0]*s, (ch-vb[3]*s)/2-vb[1]*s)
	dc.Scale(s, s)

	st, err := inherit(defaultStyle(), el)
	if err != nil {
		return err
	}
	return drawChildren(dc, el, st)
}

// PNG rasterizes el at the given pixel width, keeping its aspect ratio.
// A size of zero or less uses the element's intrinsic width.
func PNG(el *htmlutil.Element, size int) ([]byte, error) {
	w, h, err := Size(el)
	if err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty canvas %gx%g", ErrUnsupported, w, h)
	}
	pw, ph := int(math.Round(w)), int(math.Round(h))
	if size > 0 {
		pw, ph = size, max(1, int(math.Round(h*float64(size)/w)))
	}

	gg.Logger().Debug("rasterizing", "width", pw, "height", ph)

	dc := gg.NewContext(pw, ph)
	defer dc.Close()
	dc.Clear()

	if err := Draw(dc, el); err != nil {
		return nil, err
	}
	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawChildren(dc *gg.Context, el *htmlutil.Element, st style) error {
	for _, child := range el.Children {
		if err := drawElement(dc, child, st); err != nil {
			return fmt.Errorf("<%s>: %w", child.Tag, err)
		}
	}
	return nil
}

func drawElement(dc *gg.Context, el *htmlutil.Element, parent style) error {
	switch el.Tag {
	case "title", "desc", "metadata", "defs":
		return nil
	case "g", "path", "rect":
	default:
		return fmt.Errorf("%w: element <%s>", ErrUnsupported, el.Tag)
	}

	st, err := inherit(parent, el)
	if err != nil {
		return err
	}

	dc.Push()
	defer dc.Pop()
	if t, ok := el.Attr("transform"); ok {
		if err := applyTransform(dc, t); err != nil {
			return err
		}
	}

	switch el.Tag {
	case "g":
		return drawChildren(dc, el, st)
	case "path":
		d, _ := el.Attr("d")
		p, err := svgpath.Parse(d)
		if err != nil {
			return err
		}
		tracePath(dc, p)
	case "rect":
		if err := traceRect(dc, el); err != nil {
			return err
		}
	}
	return paint(dc, st)
}

func inherit(st style, el *htmlutil.Element) (style, error) {
	if v, ok := el.Attr("fill"); ok {
		st.fill = v
	}
	if v, ok := el.Attr("stroke"); ok {
		st.stroke = v
	}
	if v, ok := el.Attr("stroke-width"); ok {
		w, err := length(v)
		if err != nil {
			return st, err
		}
		st.strokeWidth = w
	}
	if v, ok := el.Attr("stroke-linecap"); ok {
		switch v {
		case "butt":
			st.lineCap = gg.LineCapButt
		case "round":
			st.lineCap = gg.LineCapRound
		case "square":
			st.lineCap = gg.LineCapSquare
		default:
			return st, fmt.Errorf("%w: stroke-linecap %q", ErrUnsupported, v)
		}
	}
	if v, ok := el.Attr("stroke-linejoin"); ok {
		switch v {
		case "miter":
			st.lineJoin = gg.LineJoinMiter
		case "round":
			st.lineJoin = gg.LineJoinRound
		case "bevel":
			st.lineJoin = gg.LineJoinBevel
		default:
			return st, fmt.Errorf("%w: stroke-linejoin %q", ErrUnsupported, v)
		}
	}
	if v, ok := el.Attr("fill-rule"); ok {
		switch v {
		case "nonzero":
			st.fillRule = gg.FillRuleNonZero
		case "evenodd":
			st.fillRule = gg.FillRuleEvenOdd
		default:
			return st, fmt.Errorf("%w: fill-rule %q", ErrUnsupported, v)
		}
	}
	return st, nil
}

func paint(dc *gg.Context, st style) error {
	defer dc.ClearPath()

	if fill, ok, err := paintColor(st.fill); err != nil {
		return fmt.Errorf("fill: %w", err)
	} else if ok {
		dc.SetFillRule(st.fillRule)
		dc.SetHexColor(fill)
		if err := dc.FillPreserve(); err != nil {
			return fmt.Errorf("fill: %w", err)
		}
	}

	stroke, ok, err := paintColor(st.stroke)
	if err != nil {
		return fmt.Errorf("stroke: %w", err)
	}
	if !ok || st.strokeWidth <= 0 {
		return nil
	}
	dc.SetHexColor(stroke)
	dc.SetLineWidth(st.strokeWidth)
	dc.SetLineCap(st.lineCap)
	dc.SetLineJoin(st.lineJoin)
	if err := dc.StrokePreserve(); err != nil {
		return fmt.Errorf("stroke: %w", err)
	}
	return nil
}

// paintColor normalizes a paint value to a hex string. ok is false for "none".
func paintColor(v string) (hex string, ok bool, err error) {
	v = strings.TrimSpace(strings.ToLower(v))
	switch v {
	case "none", "transparent", "":
		return "", false, nil
	case "black", "currentcolor":
		return "#000000", true, nil
	case "white":
		return "#ffffff", true, nil
	}
	if strings.HasPrefix(v, "#") && (len(v) == 4 || len(v) == 7 || len(v) == 9) {
		return v, true, nil
	}
	return "", false, fmt.Errorf("%w: color %q", ErrUnsupported, v)
}

func tracePath(dc *gg.Context, p svgpath.Path) {
	for _, seg := range p {
		switch seg.Op {
		case svgpath.MoveTo:
			dc.MoveTo(seg.Pts[0].X, seg.Pts[0].Y)
		case svgpath.LineTo:
			dc.LineTo(seg.Pts[0].X, seg.Pts[0].Y)
		case svgpath.QuadTo:
			dc.QuadraticTo(seg.Pts[0].X, seg.Pts[0].Y, seg.Pts[1].X, seg.Pts[1].Y)
		case svgpath.CubicTo:
			dc.CubicTo(seg.Pts[0].X, seg.Pts[0].Y, seg.Pts[1].X, seg.Pts[1].Y, seg.Pts[2].X, seg.Pts[2].Y)
		case svgpath.Close:
			dc.ClosePath()
		}
	}
}

// kappa places cubic control points for a quarter ellipse.
const kappa = 0.5522847498307936

// traceRect emits a rect through the context's MoveTo/CubicTo so the
// current transform applies to it.
func traceRect(dc *gg.Context, el *htmlutil.Element) error {
	var x, y, w, h, rx, ry float64
	var hasRx, hasRy bool
	for _, a := range []struct {
		name string
		dst  *float64
		set  *bool
	}{
		{"x", &x, nil}, {"y", &y, nil}, {"width", &w, nil}, {"height", &h, nil},
		{"rx", &rx, &hasRx}, {"ry", &ry, &hasRy},
	} {
		v, ok := el.Attr(a.name)
		if !ok {
			continue
		}
		n, err := length(v)
		if err != nil {
			return fmt.Errorf("%s: %w", a.name, err)
		}
		*a.dst = n
		if a.set != nil {
			*a.set = true
		}
	}
	if w <= 0 || h <= 0 {
		return nil
	}
	switch {
	case hasRx && !hasRy:
		ry = rx
	case hasRy && !hasRx:
		rx = ry
	}
	rx, ry = math.Min(math.Max(rx, 0), w/2), math.Min(math.Max(ry, 0), h/2)

	if rx == 0 || ry == 0 {
		dc.MoveTo(x, y)
		dc.LineTo(x+w, y)
		dc.LineTo(x+w, y+h)
		dc.LineTo(x, y+h)
		dc.ClosePath()
		return nil
	}

	kx, ky := rx*kappa, ry*kappa
	dc.MoveTo(x+rx, y)
	dc.LineTo(x+w-rx, y)
	dc.CubicTo(x+w-rx+kx, y, x+w, y+ry-ky, x+w, y+ry)
	dc.LineTo(x+w, y+h-ry)
	dc.CubicTo(x+w, y+h-ry+ky, x+w-rx+kx, y+h, x+w-rx, y+h)
	dc.LineTo(x+rx, y+h)
	dc.CubicTo(x+rx-kx, y+h, x, y+h-ry+ky, x, y+h-ry)
	dc.LineTo(x, y+ry)
	dc.CubicTo(x, y+ry-ky, x+rx-kx, y, x+rx, y)
	dc.ClosePath()
	return nil
}

func viewBox(el *htmlutil.Element) ([4]float64, error) {
	v, ok := el.Attr("viewBox")
	if !ok {
		w, h := 0.0, 0.0
		var err error
		if s, ok := el.Attr("width"); ok {
			if w, err = length(s); err != nil {
				return [4]float64{}, err
			}
		}
		if s, ok := el.Attr("height"); ok {
			if h, err = length(s); err != nil {
				return [4]float64{}, err
			}
		}
		if w <= 0 || h <= 0 {
			return [4]float64{}, fmt.Errorf("%w: svg needs a viewBox or width and height", ErrUnsupported)
		}
		return [4]float64{0, 0, w, h}, nil
	}
	nums, err := svgpath.Numbers(v)
	if err != nil {
		return [4]float64{}, fmt.Errorf("viewBox: %w", err)
	}
	if len(nums) != 4 || nums[2] <= 0 || nums[3] <= 0 {
		return [4]float64{}, fmt.Errorf("%w: viewBox %q", ErrUnsupported, v)
	}
	return [4]float64{nums[0], nums[1], nums[2], nums[3]}, nil
}

// length parses a user-unit length. Only unitless and px values are
// accepted.
func length(v string) (float64, error) {
	nums, err := svgpath.Numbers(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if err != nil {
		return 0, fmt.Errorf("length %q: %w", v, err)
	}
	if len(nums) != 1 {
		return 0, fmt.Errorf("%w: length %q", ErrUnsupported, v)
	}
	return nums[0], nil
}

func applyTransform(dc *gg.Context, t string) error {
	rest := strings.TrimSpace(t)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		end := strings.IndexByte(rest, ')')
		if open < 0 || end < open {
			return fmt.Errorf("%w: transform %q", ErrUnsupported, t)
		}
		name := strings.TrimSpace(rest[:open])
		args, err := svgpath.Numbers(rest[open+1 : end])
		if err != nil {
			return fmt.Errorf("transform %q: %w", t, err)
		}
		rest = strings.TrimLeft(rest[end+1:], " ,\t\n")

		switch {
		case name == "rotate" && len(args) == 1:
			dc.Rotate(radians(args[0]))
		case name == "rotate" && len(args) == 3:
			dc.RotateAbout(radians(args[0]), args[1], args[2])
		case name == "translate" && len(args) == 1:
			dc.Translate(args[0], 0)
		case name == "translate" && len(args) == 2:
			dc.Translate(args[0], args[1])
		case name == "scale" && len(args) == 1:
			dc.Scale(args[0], args[0])
		case name == "scale" && len(args) == 2:
			dc.Scale(args[0], args[1])
		default:
			return fmt.Errorf("%w: transform %s with %d args", ErrUnsupported, name, len(args))
		}
	}
	return nil
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
