package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/san-kum/rigsim/internal/storage"
	"github.com/san-kum/rigsim/internal/viz"
)

// CanvasToSVG converts a Braille canvas to SVG format, one dot per lit pixel.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	w, h := canvas.Pixels()
	width := float64(w) * scale
	height := float64(h) * scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00">
`, width, height, width, height)

	dotRadius := scale * 0.4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !canvas.Lit(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius)
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// Series is one line of a trace plot.
type Series struct {
	Label  string
	Color  string
	Values []float64
}

// TraceSeries picks the wheel and body heights out of a recorded trace.
func TraceSeries(rows []storage.TraceRow) (times []float64, series []Series) {
	times = make([]float64, len(rows))
	wheel := make([]float64, len(rows))
	body := make([]float64, len(rows))
	for i, r := range rows {
		times[i] = r.Time
		wheel[i] = r.WheelHeight
		body[i] = r.BodyHeight
	}
	return times, []Series{
		{Label: "wheel_height", Color: "#00ccff", Values: wheel},
		{Label: "body_height", Color: "#ff00ff", Values: body},
	}
}

// WriteTraceSVG plots series against times on shared axes.
func WriteTraceSVG(w io.Writer, times []float64, series []Series, width, height int) error {
	if len(times) < 2 {
		return eris.Errorf("export: need at least two samples, got %d", len(times))
	}

	minX, maxX := times[0], times[len(times)-1]
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for i, s := range series {
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, s.Color)
		for j, v := range s.Values {
			if j >= len(times) {
				break
			}
			x := (times[j] - minX) / rangeX * float64(width)
			y := float64(height) - (v-minY)/rangeY*float64(height)
			if j == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
		fmt.Fprintf(&sb, "<text x=\"8\" y=\"%d\" fill=\"%s\" font-family=\"monospace\" font-size=\"12\">%s</text>\n",
			16*(i+1), s.Color, s.Label)
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
