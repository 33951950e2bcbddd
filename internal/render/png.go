package render

import (
	"bytes"
	"image/color"
	"image/png"

	"github.com/fogleman/gg"

	"github.com/eyemap-vis/server/internal/hexgrid"
)

// renderPNG rasterizes the grid with the same layout and legend inputs the
// SVG path receives. Raster output carries no interactive metadata.
func (r *Renderer) renderPNG(hexagons []Hexagon, layout Layout, legend Legend, meta Meta) ([]byte, error) {
	dc := gg.NewContext(layout.Width, layout.Height)

	dc.SetColor(color.White)
	dc.Clear()

	offsets := r.coords.VertexOffsets()
	for _, h := range hexagons {
		cx := h.X + layout.OffsetX
		cy := h.Y + layout.OffsetY

		dc.NewSubPath()
		dc.MoveTo(cx+offsets[0][0], cy+offsets[0][1])
		for _, v := range offsets[1:] {
			dc.LineTo(cx+v[0], cy+v[1])
		}
		dc.ClosePath()

		dc.SetHexColor(h.Color)
		dc.FillPreserve()
		dc.SetRGBA(0.75, 0.75, 0.75, 1)
		dc.SetLineWidth(0.5)
		dc.Stroke()
	}

	// Titles
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(meta.PlotDesc, layout.TitleX, layout.TitleY, 0.5, 0.5)
	dc.SetRGB(0.33, 0.33, 0.33)
	dc.DrawStringAnchored(meta.RegionDesc, layout.TitleX, layout.Subtitle1Y, 0.5, 0.5)
	dc.DrawStringAnchored(meta.NeuronDesc, layout.TitleX, layout.Subtitle2Y, 0.5, 0.5)

	// Legend ramp
	for _, sw := range legend.Swatches {
		dc.SetHexColor(sw.Color)
		dc.DrawRectangle(layout.LegendX, layout.LegendY+sw.Y, legend.Width, sw.Height)
		dc.Fill()
	}
	dc.SetRGB(0, 0, 0)
	dc.DrawString(legend.Title, layout.LegendX, layout.LegendY-6)
	for _, tick := range legend.Ticks {
		dc.DrawStringAnchored(tick.Label, layout.LegendX+legend.Width+4, layout.LegendY+tick.Y, 0, 0.5)
	}

	return r.encodeContext(dc)
}

func (r *Renderer) encodeContext(dc *gg.Context) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	// Use fast PNG encoder
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, dc.Image()); err != nil {
		return nil, &hexgrid.RenderingError{Op: "png_encode", Err: err}
	}

	// Copy buffer contents (buffer will be reused)
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
