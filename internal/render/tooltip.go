package render

import (
	"fmt"

	"github.com/eyemap-vis/server/internal/hexgrid"
)

// loLayerNames remaps LO layer numbers to their display labels. Layer
// numbers absent from the table pass through unchanged.
var loLayerNames = map[int]string{
	5: "5A",
	6: "5B",
	7: "6",
}

// DisplayLayerName returns the external label of an anatomical layer,
// e.g. "ME3" or "LO5A".
func DisplayLayerName(region string, layer int) string {
	if region == "LO" {
		if name, ok := loLayerNames[layer]; ok {
			return region + name
		}
	}
	return fmt.Sprintf("%s%d", region, layer)
}

// AttachTooltips fills in the tooltip and per-layer tooltip texts on every
// hexagon. This is the only mutation of a hexagon after creation.
func AttachTooltips(hexagons []Hexagon, region string, side hexgrid.Side, metric hexgrid.MetricType) {
	label := metric.Label()
	sideStr := string(side)

	for i := range hexagons {
		h := &hexagons[i]

		switch h.Status {
		case hexgrid.StatusNotInRegion:
			h.Tooltip = fmt.Sprintf("Column: %d, %d\nColumn not identified in %s (%s)",
				h.Hex1, h.Hex2, region, sideStr)
		case hexgrid.StatusNoData:
			h.Tooltip = fmt.Sprintf("Column: %d, %d\n%s: 0\nROI: %s (%s)",
				h.Hex1, h.Hex2, label, region, sideStr)
		default:
			h.Tooltip = fmt.Sprintf("Column: %d, %d\n%s: %d\nROI: %s (%s)",
				h.Hex1, h.Hex2, label, int(h.Value), region, sideStr)
		}

		if len(h.LayerValues) == 0 {
			h.TooltipLayers = nil
			continue
		}
		h.TooltipLayers = make([]string, len(h.LayerValues))
		for j, v := range h.LayerValues {
			layer := j + 1
			switch h.Status {
			case hexgrid.StatusNotInRegion:
				h.TooltipLayers[j] = fmt.Sprintf("Column: %d, %d\nColumn not identified in %s (%s) layer(%d)",
					h.Hex1, h.Hex2, region, sideStr, layer)
			case hexgrid.StatusNoData:
				h.TooltipLayers[j] = fmt.Sprintf("0\nROI: %s", DisplayLayerName(region, layer))
			default:
				h.TooltipLayers[j] = fmt.Sprintf("%d\nROI: %s", int(v), DisplayLayerName(region, layer))
			}
		}
	}
}
