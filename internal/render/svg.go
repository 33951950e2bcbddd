package render

import (
	"strings"
	"text/template"

	"github.com/eyemap-vis/server/internal/hexgrid"
)

// svgTemplate is the sole markup source for vector output. It performs no
// computation beyond iteration and interpolation; every value it prints is
// computed before rendering.
const svgTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}" font-family="Arial, sans-serif">
<rect width="100%" height="100%" fill="#ffffff"/>
<text x="{{printf "%.2f" .TitleX}}" y="{{printf "%g" .TitleY}}" text-anchor="middle" font-size="12" font-weight="bold">{{.Title | html}}</text>
<text x="{{printf "%.2f" .TitleX}}" y="{{printf "%g" .Subtitle1Y}}" text-anchor="middle" font-size="9" fill="#555555">{{.Subtitle1 | html}}</text>
<text x="{{printf "%.2f" .TitleX}}" y="{{printf "%g" .Subtitle2Y}}" text-anchor="middle" font-size="9" fill="#555555">{{.Subtitle2 | html}}</text>
{{- range .Hexagons}}
<g transform="translate({{printf "%.2f" .X}},{{printf "%.2f" .Y}})" data-hex1="{{.Hex1}}" data-hex2="{{.Hex2}}" data-status="{{.Status}}"{{if .LayerColors}} data-layer-colors="{{.LayerColors}}"{{end}}>
<polygon points="{{$.HexPoints}}" fill="{{.Color}}" stroke="#c0c0c0" stroke-width="0.5">
<title>{{.Tooltip | html}}</title>
{{- if .LayerDesc}}
<desc>{{.LayerDesc | html}}</desc>
{{- end}}
</polygon>
</g>
{{- end}}
<g transform="translate({{printf "%.2f" .LegendX}},{{printf "%.2f" .LegendY}})">
<text x="0" y="-6" font-size="9" font-weight="bold">{{.Legend.Title | html}}</text>
{{- range .Legend.Swatches}}
<rect x="0" y="{{printf "%.2f" .Y}}" width="{{printf "%.2f" $.Legend.Width}}" height="{{printf "%.2f" .Height}}" fill="{{.Color}}" stroke="none"/>
{{- end}}
{{- range .Legend.Ticks}}
<text x="{{printf "%.2f" $.TickX}}" y="{{printf "%.2f" .Y}}" font-size="8" dominant-baseline="middle">{{.Label}}</text>
{{- end}}
</g>
</svg>
`

type svgHexagon struct {
	X           float64
	Y           float64
	Hex1        int
	Hex2        int
	Status      hexgrid.ColumnStatus
	Color       string
	Tooltip     string
	LayerDesc   string
	LayerColors string
}

type svgVars struct {
	Width      int
	Height     int
	Title      string
	Subtitle1  string
	Subtitle2  string
	TitleX     float64
	TitleY     float64
	Subtitle1Y float64
	Subtitle2Y float64
	HexPoints  string
	Hexagons   []svgHexagon
	LegendX    float64
	LegendY    float64
	TickX      float64
	Legend     Legend
}

// renderSVG emits the grid as an SVG document. Output is a pure function of
// its inputs: identical hexagons, layout, and legend produce byte-identical
// markup.
func (r *Renderer) renderSVG(hexagons []Hexagon, layout Layout, legend Legend, meta Meta) (string, error) {
	views := make([]svgHexagon, len(hexagons))
	for i, h := range hexagons {
		views[i] = svgHexagon{
			X:           h.X + layout.OffsetX,
			Y:           h.Y + layout.OffsetY,
			Hex1:        h.Hex1,
			Hex2:        h.Hex2,
			Status:      h.Status,
			Color:       h.Color,
			Tooltip:     h.Tooltip,
			LayerDesc:   strings.Join(h.TooltipLayers, "\n---\n"),
			LayerColors: strings.Join(h.LayerColors, " "),
		}
	}

	vars := svgVars{
		Width:      layout.Width,
		Height:     layout.Height,
		Title:      meta.PlotDesc,
		Subtitle1:  meta.RegionDesc,
		Subtitle2:  meta.NeuronDesc,
		TitleX:     layout.TitleX,
		TitleY:     layout.TitleY,
		Subtitle1Y: layout.Subtitle1Y,
		Subtitle2Y: layout.Subtitle2Y,
		HexPoints:  layout.HexPoints,
		Hexagons:   views,
		LegendX:    layout.LegendX,
		LegendY:    layout.LegendY,
		TickX:      legend.Width + 4,
		Legend:     legend,
	}

	var b strings.Builder
	if err := r.svgTmpl.Execute(&b, vars); err != nil {
		return "", &hexgrid.RenderingError{Op: "svg_template", Err: err}
	}
	return b.String(), nil
}

func parseSVGTemplate() (*template.Template, error) {
	return template.New("eyemap.svg").Parse(svgTemplate)
}
