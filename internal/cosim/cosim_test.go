package cosim

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rotisserie/eris"
)

// pair opens a harness session and hands the raw peer connection to the
// test, so the test can play the peer byte by byte.
func pair(opts ...Option) (*Session, net.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	l, err := Listen(ctx, "127.0.0.1:0", opts...)
	Expect(err).NotTo(HaveOccurred())

	type result struct {
		s   *Session
		err error
	}
	accepted := make(chan result, 1)
	go func() {
		s, err := l.Accept(ctx, 1, 2)
		accepted <- result{s, err}
	}()

	conn, err := net.Dial("tcp", l.Addr().String())
	Expect(err).NotTo(HaveOccurred())

	r := <-accepted
	Expect(r.err).NotTo(HaveOccurred())
	DeferCleanup(func() {
		r.s.Close()
		conn.Close()
	})
	return r.s, conn
}

func frame(order binary.ByteOrder, values ...float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		order.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func readFrame(conn net.Conn, order binary.ByteOrder, n int) []float64 {
	buf := make([]byte, n*8)
	_, err := io.ReadFull(conn, buf)
	Expect(err).NotTo(HaveOccurred())
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(order.Uint64(buf[i*8:]))
	}
	return out
}

var _ = Describe("Frame codec", func() {
	It("encodes the timestamp ahead of the signals", func() {
		c := newCodec(binary.LittleEndian, 2)
		Expect(c.encode(1.5, []float64{2, 3})).To(Equal(frame(binary.LittleEndian, 1.5, 2, 3)))
		Expect(FrameSize(2)).To(Equal(24))
	})

	It("honours the byte order", func() {
		c := newCodec(binary.BigEndian, 1)
		Expect(c.encode(0.25, []float64{-1})).To(Equal(frame(binary.BigEndian, 0.25, -1)))
		Expect(c.encode(0.25, []float64{-1})).NotTo(Equal(frame(binary.LittleEndian, 0.25, -1)))
	})

	It("rejects non-finite values", func() {
		c := newCodec(binary.LittleEndian, 1)
		copy(c.buf, frame(binary.LittleEndian, 0, math.NaN()))
		_, err := c.decode(make([]float64, 1))
		Expect(err).To(HaveOccurred())

		copy(c.buf, frame(binary.LittleEndian, math.Inf(1), 0))
		_, err = c.decode(make([]float64, 1))
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("ParseByteOrder",
		func(name string, want binary.ByteOrder, ok bool) {
			order, err := ParseByteOrder(name)
			if !ok {
				Expect(err).To(HaveOccurred())
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(order).To(Equal(want))
		},
		Entry("little", "little", binary.LittleEndian, true),
		Entry("default", "", binary.LittleEndian, true),
		Entry("big", "BIG", binary.BigEndian, true),
		Entry("unknown", "middle", nil, false),
	)
})

var _ = Describe("Session", func() {
	It("sends the full outbound frame before reading a reply", func() {
		s, conn := pair()

		done := make(chan error, 1)
		go func() {
			conn.SetDeadline(time.Now().Add(2 * time.Second))
			got := readFrame(conn, binary.LittleEndian, 3)
			if got[0] != 0.001 || got[1] != 0.7 || got[2] != 0.2 {
				done <- errors.New("unexpected outbound frame")
				return
			}
			_, err := conn.Write(frame(binary.LittleEndian, 0.0009, 42))
			done <- err
		}()

		in := make([]float64, 1)
		peerTime, err := s.Exchange([]float64{0.7, 0.2}, 0.001, in)
		Expect(err).NotTo(HaveOccurred())
		Expect(<-done).NotTo(HaveOccurred())
		Expect(peerTime).To(Equal(0.0009))
		Expect(in).To(Equal([]float64{42}))
		Expect(s.SimTime()).To(Equal(0.001))
		Expect(s.PeerTime()).To(Equal(0.0009))
		Expect(s.Frames()).To(Equal(1))
		Expect(s.InWidth()).To(Equal(1))
		Expect(s.OutWidth()).To(Equal(2))
	})

	It("rejects slices of the wrong width without closing", func() {
		s, conn := pair()

		_, err := s.Exchange([]float64{1}, 0, make([]float64, 1))
		Expect(eris.Is(err, ErrWidthMismatch)).To(BeTrue())

		go func() {
			readFrame(conn, binary.LittleEndian, 3)
			conn.Write(frame(binary.LittleEndian, 0, 1))
		}()
		_, err = s.Exchange([]float64{1, 2}, 0, make([]float64, 1))
		Expect(err).NotTo(HaveOccurred())
	})

	It("fails and stays closed when the peer disconnects", func() {
		s, conn := pair()
		go func() {
			readFrame(conn, binary.LittleEndian, 3)
			conn.Close()
		}()

		_, err := s.Exchange([]float64{0, 0}, 0.001, make([]float64, 1))
		Expect(err).To(HaveOccurred())
		Expect(eris.Is(err, ErrCommunication)).To(BeTrue())
		Expect(errors.Is(err, ErrCommunication)).To(BeTrue())
		Expect(errors.Is(err, io.EOF)).To(BeTrue())

		_, err = s.Exchange([]float64{0, 0}, 0.002, make([]float64, 1))
		Expect(eris.Is(err, ErrClosed)).To(BeTrue())
		Expect(eris.Is(err, ErrCommunication)).To(BeTrue())
	})

	It("flags a short frame as malformed", func() {
		s, conn := pair()
		go func() {
			readFrame(conn, binary.LittleEndian, 3)
			conn.Write(frame(binary.LittleEndian, 0.5))
			conn.Close()
		}()

		_, err := s.Exchange([]float64{0, 0}, 0.001, make([]float64, 1))
		Expect(eris.Is(err, ErrMalformedFrame)).To(BeTrue())
		Expect(eris.Is(err, ErrCommunication)).To(BeTrue())
	})

	It("flags a non-finite signal as malformed", func() {
		s, conn := pair()
		go func() {
			readFrame(conn, binary.LittleEndian, 3)
			conn.Write(frame(binary.LittleEndian, 0.5, math.NaN()))
		}()

		_, err := s.Exchange([]float64{0, 0}, 0.001, make([]float64, 1))
		Expect(eris.Is(err, ErrMalformedFrame)).To(BeTrue())
	})

	It("times out a silent peer", func() {
		s, _ := pair(WithTimeout(50 * time.Millisecond))

		_, err := s.Exchange([]float64{0, 0}, 0.001, make([]float64, 1))
		Expect(eris.Is(err, ErrCommunication)).To(BeTrue())
		Expect(eris.Is(err, ErrMalformedFrame)).To(BeFalse())
	})

	It("speaks big-endian when asked", func() {
		s, conn := pair(WithByteOrder(binary.BigEndian))
		go func() {
			got := readFrame(conn, binary.BigEndian, 3)
			conn.Write(frame(binary.BigEndian, got[0], got[1]+got[2]))
		}()

		in := make([]float64, 1)
		_, err := s.Exchange([]float64{1.25, 2.5}, 3, in)
		Expect(err).NotTo(HaveOccurred())
		Expect(in[0]).To(Equal(3.75))
	})

	It("refuses exchanges after Close", func() {
		s, _ := pair()
		Expect(s.Close()).To(Succeed())
		_, err := s.Exchange([]float64{0, 0}, 0, make([]float64, 1))
		Expect(eris.Is(err, ErrClosed)).To(BeTrue())
	})
})

var _ = Describe("WaitForPeer", func() {
	It("reports a bad address as a connection error", func() {
		_, err := WaitForPeer(context.Background(), "256.0.0.1:bad", 1, 2)
		Expect(eris.Is(err, ErrConnection)).To(BeTrue())
	})

	It("gives up when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)

		_, err := WaitForPeer(ctx, "127.0.0.1:0", 1, 2)
		Expect(eris.Is(err, ErrConnection)).To(BeTrue())
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})

	It("accepts exactly one peer", func() {
		ctx := context.Background()
		l, err := Listen(ctx, "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		addr := l.Addr().String()

		accepted := make(chan *Session, 1)
		go func() {
			defer GinkgoRecover()
			s, err := l.Accept(ctx, 1, 2)
			Expect(err).NotTo(HaveOccurred())
			accepted <- s
		}()

		conn, err := net.Dial("tcp", addr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(conn.Close)

		var s *Session
		Eventually(accepted).Should(Receive(&s))
		DeferCleanup(s.Close)

		Eventually(func() error {
			conn, err := net.Dial("tcp", addr)
			if err == nil {
				conn.Close()
			}
			return err
		}).Should(HaveOccurred())
	})
})

var _ = Describe("Peer", func() {
	It("serves receive-then-send cycles until the harness closes", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		l, err := Listen(ctx, "127.0.0.1:0", WithByteOrder(binary.BigEndian))
		Expect(err).NotTo(HaveOccurred())

		served := make(chan error, 1)
		go func() {
			p, err := Dial(ctx, l.Addr().String(), 1, 2, WithByteOrder(binary.BigEndian))
			if err != nil {
				served <- err
				return
			}
			defer p.Close()
			served <- p.Serve(ctx, HandlerFunc(func(t float64, in, out []float64) error {
				out[0] = in[0] - in[1]
				return nil
			}))
		}()

		s, err := l.Accept(ctx, 1, 2)
		Expect(err).NotTo(HaveOccurred())

		in := make([]float64, 1)
		for i := 1; i <= 3; i++ {
			t := float64(i) * 0.001
			peerTime, err := s.Exchange([]float64{float64(i), 1}, t, in)
			Expect(err).NotTo(HaveOccurred())
			Expect(peerTime).To(Equal(t))
			Expect(in[0]).To(Equal(float64(i) - 1))
		}

		Expect(s.Close()).To(Succeed())
		Eventually(served).Should(Receive(BeNil()))
	})

	It("propagates handler failures", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		server, client := net.Pipe()
		DeferCleanup(server.Close)
		p := NewPeer(client, 1, 2)

		boom := errors.New("boom")
		served := make(chan error, 1)
		go func() {
			served <- p.Serve(ctx, HandlerFunc(func(float64, []float64, []float64) error { return boom }))
		}()

		server.Write(frame(binary.LittleEndian, 0, 1, 2))
		Eventually(served).Should(Receive(MatchError(boom)))
	})

	It("fails when the read deadline cannot be set", func() {
		server, client := net.Pipe()
		server.Close()
		client.Close()
		p := NewPeer(client, 1, 2, WithTimeout(time.Second))

		_, err := p.Recv(make([]float64, 2))
		Expect(eris.Is(err, ErrCommunication)).To(BeTrue())
		var cerr *Error
		Expect(errors.As(err, &cerr)).To(BeTrue())
		Expect(cerr.Op).To(Equal("deadline"))
	})

	It("stops when its context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		server, client := net.Pipe()
		DeferCleanup(server.Close)
		p := NewPeer(client, 1, 2)

		served := make(chan error, 1)
		go func() {
			served <- p.Serve(ctx, HandlerFunc(func(float64, []float64, []float64) error { return nil }))
		}()
		cancel()
		Eventually(served).Should(Receive(BeNil()))
	})
})
