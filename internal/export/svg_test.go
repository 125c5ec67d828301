package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/rigsim/internal/storage"
	"github.com/san-kum/rigsim/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	assert.Empty(t, CanvasToSVG(nil, 2))

	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	svg := CanvasToSVG(c, 2)
	assert.Equal(t, 2, strings.Count(svg, "<circle"))
	assert.Contains(t, svg, `width="8" height="8"`)
}

func TestWriteTraceSVG(t *testing.T) {
	rows := []storage.TraceRow{
		{Time: 0.001, WheelHeight: 0.1, BodyHeight: 0.6},
		{Time: 0.002, WheelHeight: 0.09, BodyHeight: 0.58},
		{Time: 0.003, WheelHeight: 0.08, BodyHeight: 0.55},
	}
	times, series := TraceSeries(rows)
	require.Len(t, series, 2)

	var buf bytes.Buffer
	require.NoError(t, WriteTraceSVG(&buf, times, series, 400, 200))
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "<path"))
	assert.Contains(t, out, "wheel_height")
	assert.Contains(t, out, "body_height")
	assert.True(t, strings.HasSuffix(out, "</svg>\n"))

	assert.Error(t, WriteTraceSVG(&buf, times[:1], series, 400, 200))
}
