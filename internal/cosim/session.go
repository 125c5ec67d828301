package cosim

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Listener accepts the single peer of a session.
type Listener struct {
	ln   net.Listener
	opts options
}

// Listen binds addr. Use Accept to wait for the peer.
func Listen(ctx context.Context, addr string, opts ...Option) (*Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, newError(ErrConnection, "listen "+addr, err)
	}
	return &Listener{ln: ln, opts: buildOptions(opts)}, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) Close() error { return l.ln.Close() }

// Accept blocks until one peer connects or ctx is done, then closes the
// listener. Subsequent connection attempts are refused.
func (l *Listener) Accept(ctx context.Context, inWidth, outWidth int) (*Session, error) {
	defer l.ln.Close()

	if inWidth < 0 || outWidth < 0 {
		return nil, newError(ErrWidthMismatch, "accept", nil)
	}

	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := l.ln.Accept()
		done <- result{conn, err}
	}()

	l.opts.log.Info().Str("addr", l.ln.Addr().String()).Msg("waiting for peer")

	select {
	case <-ctx.Done():
		l.ln.Close()
		if r := <-done; r.conn != nil {
			r.conn.Close()
		}
		return nil, newError(ErrConnection, "accept", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, newError(ErrConnection, "accept", r.err)
		}
		l.opts.log.Info().Str("peer", r.conn.RemoteAddr().String()).Msg("peer connected")
		return newSession(r.conn, inWidth, outWidth, l.opts), nil
	}
}

// WaitForPeer listens on addr and blocks until exactly one peer connects.
func WaitForPeer(ctx context.Context, addr string, inWidth, outWidth int, opts ...Option) (*Session, error) {
	l, err := Listen(ctx, addr, opts...)
	if err != nil {
		return nil, err
	}
	return l.Accept(ctx, inWidth, outWidth)
}

// Session is the harness end of an established channel. It is not safe for
// concurrent use.
type Session struct {
	conn    net.Conn
	in      *codec
	out     *codec
	timeout time.Duration
	log     zerolog.Logger

	simTime  float64
	peerTime float64
	frames   int
	err      error
}

func newSession(conn net.Conn, inWidth, outWidth int, o options) *Session {
	return &Session{
		conn:    conn,
		in:      newCodec(o.order, inWidth),
		out:     newCodec(o.order, outWidth),
		timeout: o.timeout,
		log:     o.log,
	}
}

// Exchange sends [t, out...] and then blocks until the peer's reply fills
// in. It returns the peer's timestamp. Any failure other than a width
// mismatch closes the session.
func (s *Session) Exchange(out []float64, t float64, in []float64) (float64, error) {
	if s.err != nil {
		return 0, newError(ErrClosed, "exchange", s.err)
	}
	if len(out) != s.out.width || len(in) != s.in.width {
		return 0, newError(ErrWidthMismatch, "exchange", nil)
	}

	if s.timeout > 0 {
		if err := s.conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
			return 0, s.fail(newError(ErrCommunication, "deadline", err))
		}
	}

	if err := s.out.write(s.conn, t, out); err != nil {
		return 0, s.fail(newError(ErrCommunication, "send", err))
	}
	s.simTime = t

	peerTime, err := s.in.read(s.conn, in)
	if err != nil {
		kind := ErrCommunication
		if errors.Is(err, io.ErrUnexpectedEOF) || !isTransport(err) {
			kind = ErrMalformedFrame
		}
		return 0, s.fail(newError(kind, "receive", err))
	}
	s.peerTime = peerTime
	s.frames++
	return peerTime, nil
}

func isTransport(err error) bool {
	var netErr net.Error
	return errors.Is(err, io.EOF) || errors.As(err, &netErr) || errors.Is(err, net.ErrClosed)
}

func (s *Session) fail(err *Error) error {
	s.err = err
	s.conn.Close()
	s.log.Error().Err(err).Int("frames", s.frames).Msg("session closed")
	return err
}

// Close releases the connection. Later calls to Exchange fail with ErrClosed.
func (s *Session) Close() error {
	if s.err != nil {
		return nil
	}
	s.err = newError(ErrClosed, "close", nil)
	return s.conn.Close()
}

func (s *Session) InWidth() int         { return s.in.width }
func (s *Session) OutWidth() int        { return s.out.width }
func (s *Session) SimTime() float64     { return s.simTime }
func (s *Session) PeerTime() float64    { return s.peerTime }
func (s *Session) Frames() int          { return s.frames }
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }
