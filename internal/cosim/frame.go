package cosim

import (
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

const valueSize = 8

// ParseByteOrder maps "little" or "big" to a byte order.
func ParseByteOrder(name string) (binary.ByteOrder, error) {
	switch strings.ToLower(name) {
	case "", "little", "le":
		return binary.LittleEndian, nil
	case "big", "be":
		return binary.BigEndian, nil
	}
	return nil, eris.Errorf("cosim: unknown byte order %q", name)
}

// codec reads and writes frames of a fixed signal width.
type codec struct {
	order binary.ByteOrder
	width int
	buf   []byte
}

func newCodec(order binary.ByteOrder, width int) *codec {
	return &codec{order: order, width: width, buf: make([]byte, FrameSize(width))}
}

// FrameSize is the encoded length in bytes of a frame carrying width signals.
func FrameSize(width int) int { return (1 + width) * valueSize }

func (c *codec) encode(t float64, v []float64) []byte {
	c.order.PutUint64(c.buf, math.Float64bits(t))
	for i, x := range v {
		c.order.PutUint64(c.buf[(i+1)*valueSize:], math.Float64bits(x))
	}
	return c.buf
}

func (c *codec) write(w io.Writer, t float64, v []float64) error {
	_, err := w.Write(c.encode(t, v))
	return err
}

// read fills v and returns the frame timestamp.
func (c *codec) read(r io.Reader, v []float64) (float64, error) {
	if _, err := io.ReadFull(r, c.buf); err != nil {
		return 0, err
	}
	return c.decode(v)
}

func (c *codec) decode(v []float64) (float64, error) {
	t := math.Float64frombits(c.order.Uint64(c.buf))
	if !finite(t) {
		return 0, eris.Errorf("non-finite timestamp %v", t)
	}
	for i := range v {
		x := math.Float64frombits(c.order.Uint64(c.buf[(i+1)*valueSize:]))
		if !finite(x) {
			return 0, eris.Errorf("non-finite signal %d: %v", i, x)
		}
		v[i] = x
	}
	return t, nil
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
