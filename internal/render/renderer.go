package render

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"

	"github.com/eyemap-vis/server/internal/hexgrid"
	"github.com/eyemap-vis/server/pkg/colormap"
)

// Format selects the output artifact type.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat converts an output format name into a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "svg", "":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", &hexgrid.ValidationError{Field: "output_format", Value: s}
	}
}

// Extension returns the filename extension for the format.
func (f Format) Extension() string {
	if f == FormatPNG {
		return ".png"
	}
	return ".svg"
}

// Config contains renderer configuration.
type Config struct {
	HexSize       float64
	SpacingFactor float64
	Margin        float64
	Colormap      string
}

// Renderer emits eyemap grids as SVG or PNG.
type Renderer struct {
	coords     hexgrid.CoordinateSystem
	layout     *LayoutCalculator
	cmap       colormap.LinearColormap
	svgTmpl    *template.Template
	bufferPool sync.Pool
}

// NewRenderer creates a renderer. The SVG template is parsed once here so a
// broken template fails construction rather than the first render.
func NewRenderer(cfg Config) (*Renderer, error) {
	tmpl, err := parseSVGTemplate()
	if err != nil {
		return nil, &hexgrid.RenderingError{Op: "template_parse", Err: err}
	}

	coords := hexgrid.NewCoordinateSystem(cfg.HexSize, cfg.SpacingFactor)
	return &Renderer{
		coords:  coords,
		layout:  NewLayoutCalculator(coords, cfg.Margin),
		cmap:    colormap.ByName(cfg.Colormap),
		svgTmpl: tmpl,
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 32*1024))
			},
		},
	}, nil
}

// Coords returns the coordinate system the renderer draws with.
func (r *Renderer) Coords() hexgrid.CoordinateSystem {
	return r.coords
}

// Colormap returns the value gradient used for HasData cells.
func (r *Renderer) Colormap() colormap.LinearColormap {
	return r.cmap
}

// Render computes layout and legend for the hexagon set and emits one
// artifact in the requested format. An empty hexagon list or degenerate
// bounding box fails with a RenderingError.
func (r *Renderer) Render(hexagons []Hexagon, vr hexgrid.ValueRange, metric hexgrid.MetricType, meta Meta, format Format) ([]byte, error) {
	layout, err := r.layout.CalculateLayout(hexagons)
	if err != nil {
		return nil, err
	}
	legend := r.layout.CalculateLegend(vr, metric, r.cmap)

	switch format {
	case FormatSVG:
		s, err := r.renderSVG(hexagons, layout, legend, meta)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	case FormatPNG:
		return r.renderPNG(hexagons, layout, legend, meta)
	default:
		return nil, &hexgrid.RenderingError{
			Op:  "render",
			Err: fmt.Errorf("unsupported output format %q", format),
		}
	}
}
