package cosim

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Handler computes the peer's reply to one harness frame. in holds the
// harness signals; the handler fills out.
type Handler interface {
	Handle(t float64, in []float64, out []float64) error
}

type HandlerFunc func(t float64, in []float64, out []float64) error

func (f HandlerFunc) Handle(t float64, in []float64, out []float64) error { return f(t, in, out) }

// Peer is the solver end of a channel: it receives, then sends. Widths are
// named from the harness's point of view so both ends are opened with the
// same numbers.
type Peer struct {
	conn    net.Conn
	recv    *codec
	send    *codec
	timeout time.Duration
	log     zerolog.Logger
	cycles  int
}

// Dial connects to a harness listening on addr. harnessIn and harnessOut are
// the widths the harness session was accepted with: the peer sends
// harnessIn signals and receives harnessOut.
func Dial(ctx context.Context, addr string, harnessIn, harnessOut int, opts ...Option) (*Peer, error) {
	o := buildOptions(opts)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, newError(ErrConnection, "dial "+addr, err)
	}
	o.log.Info().Str("harness", addr).Msg("connected to harness")
	return NewPeer(conn, harnessIn, harnessOut, opts...), nil
}

// NewPeer wraps an established connection. Widths are the harness's, as for
// Dial.
func NewPeer(conn net.Conn, harnessIn, harnessOut int, opts ...Option) *Peer {
	o := buildOptions(opts)
	return &Peer{
		conn:    conn,
		recv:    newCodec(o.order, harnessOut),
		send:    newCodec(o.order, harnessIn),
		timeout: o.timeout,
		log:     o.log,
	}
}

// Recv blocks for the next harness frame and returns its simulation time.
func (p *Peer) Recv(in []float64) (float64, error) {
	if len(in) != p.recv.width {
		return 0, newError(ErrWidthMismatch, "recv", nil)
	}
	if p.timeout > 0 {
		if err := p.conn.SetDeadline(time.Now().Add(p.timeout)); err != nil {
			return 0, newError(ErrCommunication, "deadline", err)
		}
	}
	t, err := p.recv.read(p.conn, in)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, newError(ErrClosed, "recv", err)
		}
		return 0, newError(ErrCommunication, "recv", err)
	}
	return t, nil
}

func (p *Peer) Send(t float64, out []float64) error {
	if len(out) != p.send.width {
		return newError(ErrWidthMismatch, "send", nil)
	}
	if err := p.send.write(p.conn, t, out); err != nil {
		return newError(ErrCommunication, "send", err)
	}
	p.cycles++
	return nil
}

// Serve runs receive, handle, send cycles until the harness disconnects
// (nil), ctx is done (nil) or a cycle fails. Replies carry the received
// simulation time as the peer time.
func (p *Peer) Serve(ctx context.Context, h Handler) error {
	stop := context.AfterFunc(ctx, func() { p.conn.Close() })
	defer stop()

	in := make([]float64, p.recv.width)
	out := make([]float64, p.send.width)
	for {
		t, err := p.Recv(in)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrClosed) {
				p.log.Info().Int("cycles", p.cycles).Msg("harness finished")
				return nil
			}
			return err
		}
		if err := h.Handle(t, in, out); err != nil {
			return err
		}
		if err := p.Send(t, out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (p *Peer) Cycles() int  { return p.cycles }
func (p *Peer) Close() error { return p.conn.Close() }
