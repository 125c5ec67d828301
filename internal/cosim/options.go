package cosim

import (
	"encoding/binary"
	"time"

	"github.com/rs/zerolog"
)

type options struct {
	order   binary.ByteOrder
	timeout time.Duration
	log     zerolog.Logger
}

func defaultOptions() options {
	return options{order: binary.LittleEndian, log: zerolog.Nop()}
}

type Option func(*options)

// WithByteOrder sets the encoding of frame values. Both ends must agree.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(o *options) {
		if order != nil {
			o.order = order
		}
	}
}

// WithTimeout bounds each exchange. Zero, the default, waits forever.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
