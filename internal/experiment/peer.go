package experiment

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/rigsim/internal/control"
	"github.com/san-kum/rigsim/internal/cosim"
	"github.com/san-kum/rigsim/internal/sim"
)

// PeerConfig describes a reference controller peer.
type PeerConfig struct {
	Addr       string
	Controller string
	Params     control.Params
	ByteOrder  string
	Timeout    time.Duration
	Log        zerolog.Logger
}

// DialPeer builds the named controller and connects it to the harness at
// cfg.Addr with the harness's signal widths.
func DialPeer(ctx context.Context, cfg PeerConfig) (*cosim.Peer, cosim.Handler, error) {
	ctrl, err := control.New(cfg.Controller, cfg.Params)
	if err != nil {
		return nil, nil, err
	}
	order, err := cosim.ParseByteOrder(cfg.ByteOrder)
	if err != nil {
		return nil, nil, err
	}
	p, err := cosim.Dial(ctx, cfg.Addr, sim.InWidth, sim.OutWidth,
		cosim.WithByteOrder(order),
		cosim.WithTimeout(cfg.Timeout),
		cosim.WithLogger(cfg.Log.With().Str("component", "peer").Logger()),
	)
	if err != nil {
		return nil, nil, err
	}
	return p, control.Handler(ctrl), nil
}

// RunPeer dials the harness and answers its frames until it disconnects or
// ctx is done. It returns the number of completed cycles.
func RunPeer(ctx context.Context, cfg PeerConfig) (int, error) {
	p, h, err := DialPeer(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer p.Close()

	cfg.Log.Info().Str("controller", cfg.Controller).Str("harness", cfg.Addr).Msg("serving")
	err = p.Serve(ctx, h)
	return p.Cycles(), err
}
