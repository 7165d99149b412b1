// Package instaglyph provides a fixed Instagram-style SVG icon as a markup
// tree, plus helpers to render, rasterize and verify it.
package instaglyph

import (
	"github.com/vormadev/instaglyph/kit/htmlutil"
)

// Literal geometry of the glyph.
const (
	ViewBox = "0 -0.5 25 25"
	Size    = "50px"

	OutlinePath = "M15.5 5H9.5C7.29086 5 5.5 6.79086 5.5 9V15C5.5 17.2091 7.29086 19 9.5 19H15.5C17.7091 19 19.5 17.2091 19.5 15V9C19.5 6.79086 17.7091 5 15.5 5Z"
	LensPath    = "M12.5 15C10.8431 15 9.5 13.6569 9.5 12C9.5 10.3431 10.8431 9 12.5 9C14.1569 9 15.5 10.3431 15.5 12C15.5 12.7956 15.1839 13.5587 14.6213 14.1213C14.0587 14.6839 13.2956 15 12.5 15Z"

	black = "#000000"
)

// Props is the icon's configuration. It has no options.
type Props struct{}

// Instagram returns the glyph's visual tree. Every call builds a new tree,
// so callers may modify the result freely.
func Instagram(_ ...Props) *htmlutil.Element {
	return &htmlutil.Element{
		Tag: "svg",
		Attributes: map[string]string{
			"viewBox": ViewBox,
			"fill":    "none",
			"width":   Size,
			"height":  Size,
		},
		Children: []*htmlutil.Element{
			{
				Tag:        "g",
				Attributes: map[string]string{"id": "SVGRepo_bgCarrier", "stroke-width": "0"},
			},
			{
				Tag: "g",
				Attributes: map[string]string{
					"id":              "SVGRepo_tracerCarrier",
					"stroke-linecap":  "round",
					"stroke-linejoin": "round",
				},
			},
			{
				Tag:        "g",
				Attributes: map[string]string{"id": "SVGRepo_iconCarrier"},
				Children: []*htmlutil.Element{
					strokedPath(OutlinePath),
					strokedPath(LensPath),
					{
						Tag: "rect",
						Attributes: map[string]string{
							"x":         "15.5",
							"y":         "9",
							"width":     "2",
							"height":    "2",
							"rx":        "1",
							"transform": "rotate(-90 15.5 9)",
							"fill":      black,
						},
					},
					{
						Tag: "rect",
						Attributes: map[string]string{
							"x":              "16",
							"y":              "8.5",
							"width":          "1",
							"height":         "1",
							"rx":             "0.5",
							"transform":      "rotate(-90 16 8.5)",
							"stroke":         black,
							"stroke-linecap": "round",
						},
					},
				},
			},
		},
	}
}

func strokedPath(d string) *htmlutil.Element {
	return &htmlutil.Element{
		Tag: "path",
		Attributes: map[string]string{
			"fill-rule":       "evenodd",
			"clip-rule":       "evenodd",
			"d":               d,
			"stroke":          black,
			"stroke-width":    "1.5",
			"stroke-linecap":  "round",
			"stroke-linejoin": "round",
		},
	}
}
