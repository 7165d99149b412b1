// Package svgpath parses SVG path geometry data ("M15.5 5H9.5C...Z") into
// absolute drawing segments.
package svgpath

import (
	"errors"
	"fmt"

	"github.com/tdewolff/parse/v2/strconv"
)

var (
	ErrSyntax             = errors.New("svgpath: syntax error")
	ErrUnsupportedCommand = errors.New("svgpath: unsupported command")
)

type Op uint8

const (
	MoveTo Op = iota
	LineTo
	QuadTo
	CubicTo
	Close
)

func (op Op) String() string {
	switch op {
	case MoveTo:
		return "M"
	case LineTo:
		return "L"
	case QuadTo:
		return "Q"
	case CubicTo:
		return "C"
	case Close:
		return "Z"
	default:
		return "?"
	}
}

type Point struct {
	X, Y float64
}

// Segment is one absolute drawing step. Pts holds the control points
// followed by the end point: 1 for MoveTo/LineTo, 2 for QuadTo, 3 for
// CubicTo, none for Close.
type Segment struct {
	Op  Op
	Pts []Point
}

// End returns the segment's end point. ok is false for Close.
func (s Segment) End() (p Point, ok bool) {
	if len(s.Pts) == 0 {
		return Point{}, false
	}
	return s.Pts[len(s.Pts)-1], true
}

type Path []Segment

// Subpaths returns the number of MoveTo segments in p.
func (p Path) Subpaths() int {
	n := 0
	for _, s := range p {
		if s.Op == MoveTo {
			n++
		}
	}
	return n
}

// argCount is the number of numbers each command consumes per repetition.
var argCount = map[byte]int{
	'M': 2, 'L': 2, 'H': 1, 'V': 1,
	'C': 6, 'S': 4, 'Q': 4, 'T': 2,
	'Z': 0,
}

// Parse converts path data into absolute segments. Relative commands are
// resolved, H/V become LineTo, S/T reflect the previous control point, and
// repeated coordinate groups after M become implicit LineTo.
func Parse(d string) (Path, error) {
	p := &parser{b: []byte(d)}
	return p.parse()
}

type parser struct {
	b   []byte
	pos int

	out      Path
	cur      Point
	start    Point
	lastCtrl Point
	lastCmd  byte
}

func (p *parser) parse() (Path, error) {
	p.skipSpace()
	if p.pos >= len(p.b) {
		return nil, nil
	}
	if c := upper(p.b[p.pos]); c != 'M' {
		return nil, fmt.Errorf("%w at offset %d: path must start with M, got %q", ErrSyntax, p.pos, p.b[p.pos])
	}

	for {
		p.skipSpace()
		if p.pos >= len(p.b) {
			return p.out, nil
		}

		cmd := p.b[p.pos]
		if cmd == 'A' || cmd == 'a' {
			return nil, fmt.Errorf("%w %q at offset %d", ErrUnsupportedCommand, cmd, p.pos)
		}
		n, ok := argCount[upper(cmd)]
		if !ok {
			return nil, fmt.Errorf("%w at offset %d: unexpected %q", ErrSyntax, p.pos, cmd)
		}
		p.pos++

		if n == 0 {
			p.apply(cmd, nil)
			continue
		}

		// a command letter takes one or more argument groups
		first := true
		for {
			p.skipSpace()
			if !first && (p.pos >= len(p.b) || !startsNumber(p.b[p.pos])) {
				break
			}
			args := make([]float64, n)
			for i := range args {
				v, err := p.number()
				if err != nil {
					return nil, err
				}
				args[i] = v
			}
			p.apply(cmd, args)
			if upper(cmd) == 'M' {
				// subsequent pairs are implicit lineto
				if cmd == 'M' {
					cmd = 'L'
				} else {
					cmd = 'l'
				}
			}
			first = false
		}
	}
}

func (p *parser) apply(cmd byte, a []float64) {
	rel := cmd >= 'a' && cmd <= 'z'
	abs := func(x, y float64) Point {
		if rel {
			return Point{p.cur.X + x, p.cur.Y + y}
		}
		return Point{x, y}
	}

	switch upper(cmd) {
	case 'M':
		pt := abs(a[0], a[1])
		p.emit(MoveTo, pt)
		p.start = pt
		p.lastCtrl = pt
	case 'L':
		pt := abs(a[0], a[1])
		p.emit(LineTo, pt)
		p.lastCtrl = pt
	case 'H':
		x := a[0]
		if rel {
			x += p.cur.X
		}
		pt := Point{x, p.cur.Y}
		p.emit(LineTo, pt)
		p.lastCtrl = pt
	case 'V':
		y := a[0]
		if rel {
			y += p.cur.Y
		}
		pt := Point{p.cur.X, y}
		p.emit(LineTo, pt)
		p.lastCtrl = pt
	case 'C':
		c1, c2, pt := abs(a[0], a[1]), abs(a[2], a[3]), abs(a[4], a[5])
		p.emit(CubicTo, c1, c2, pt)
		p.lastCtrl = c2
	case 'S':
		c1 := p.cur
		if l := upper(p.lastCmd); l == 'C' || l == 'S' {
			c1 = reflect(p.lastCtrl, p.cur)
		}
		c2, pt := abs(a[0], a[1]), abs(a[2], a[3])
		p.emit(CubicTo, c1, c2, pt)
		p.lastCtrl = c2
	case 'Q':
		c, pt := abs(a[0], a[1]), abs(a[2], a[3])
		p.emit(QuadTo, c, pt)
		p.lastCtrl = c
	case 'T':
		c := p.cur
		if l := upper(p.lastCmd); l == 'Q' || l == 'T' {
			c = reflect(p.lastCtrl, p.cur)
		}
		pt := abs(a[0], a[1])
		p.emit(QuadTo, c, pt)
		p.lastCtrl = c
	case 'Z':
		p.out = append(p.out, Segment{Op: Close})
		p.cur = p.start
		p.lastCtrl = p.start
	}
	p.lastCmd = cmd
}

func (p *parser) emit(op Op, pts ...Point) {
	p.out = append(p.out, Segment{Op: op, Pts: pts})
	p.cur = pts[len(pts)-1]
}

func (p *parser) number() (float64, error) {
	p.skipSpace()
	if p.pos < len(p.b) && p.b[p.pos] == ',' {
		p.pos++
		p.skipSpace()
	}
	if p.pos >= len(p.b) {
		return 0, fmt.Errorf("%w at offset %d: missing argument", ErrSyntax, p.pos)
	}
	v, n := strconv.ParseFloat(p.b[p.pos:])
	if n == 0 {
		return 0, fmt.Errorf("%w at offset %d: expected number, got %q", ErrSyntax, p.pos, p.b[p.pos])
	}
	p.pos += n
	return v, nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.b) {
		switch p.b[p.pos] {
		case ' ', '\t', '\n', '\r', '\f':
			p.pos++
		default:
			return
		}
	}
}

func startsNumber(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == ','
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

func reflect(ctrl, about Point) Point {
	return Point{2*about.X - ctrl.X, 2*about.Y - ctrl.Y}
}

// Numbers parses a whitespace- or comma-separated list of numbers, as used
// by viewBox, points and transform arguments.
func Numbers(s string) ([]float64, error) {
	p := &parser{b: []byte(s)}
	var out []float64
	for {
		p.skipSpace()
		if p.pos >= len(p.b) {
			return out, nil
		}
		v, err := p.number()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}
