package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/san-kum/rigsim/internal/sim"
)

const flushEvery = 1000

// Recorder streams step samples into a new run directory and writes the run
// metadata when the run ends. It is a sim.Observer and sim.Closer.
type Recorder struct {
	store *Store
	meta  RunMetadata
	file  *os.File
	w     *csv.Writer
	row   []string
	rows  int
	err   error
}

// NewRecorder creates the run directory and the trace header. meta supplies
// the descriptive fields; ID and Timestamp are assigned here.
func (s *Store) NewRecorder(meta RunMetadata) (*Recorder, error) {
	now := time.Now()
	name := meta.Rig
	if name == "" {
		name = "run"
	}
	id, dir, err := s.newRunDir(name, now)
	if err != nil {
		return nil, err
	}
	meta.ID = id
	meta.Timestamp = now

	file, err := os.Create(filepath.Join(dir, traceFile))
	if err != nil {
		return nil, eris.Wrap(err, "create trace")
	}
	w := csv.NewWriter(file)
	if err := w.Write(TraceHeader); err != nil {
		file.Close()
		return nil, eris.Wrap(err, "write trace header")
	}

	return &Recorder{
		store: s,
		meta:  meta,
		file:  file,
		w:     w,
		row:   make([]string, len(TraceHeader)),
	}, nil
}

func (r *Recorder) ID() string { return r.meta.ID }

func (r *Recorder) OnStep(s *sim.Sample) {
	if r.err != nil {
		return
	}
	r.row[0] = strconv.FormatFloat(s.Time, 'f', 6, 64)
	r.row[1] = strconv.FormatFloat(s.Outbound[0], 'g', -1, 64)
	r.row[2] = strconv.FormatFloat(s.Outbound[1], 'g', -1, 64)
	r.row[3] = strconv.FormatFloat(s.Inbound[0], 'g', -1, 64)
	r.row[4] = strconv.FormatFloat(s.PeerTime, 'f', 6, 64)
	r.row[5] = strconv.FormatFloat(s.Command, 'g', -1, 64)
	if err := r.w.Write(r.row); err != nil {
		r.err = eris.Wrap(err, "write trace row")
		return
	}
	r.rows++
	if r.rows%flushEvery == 0 {
		r.w.Flush()
		r.err = eris.Wrap(r.w.Error(), "flush trace")
	}
}

// Close flushes the trace and writes metadata.json. It reports the first
// write error seen during the run.
func (r *Recorder) Close(res *sim.Result) error {
	r.w.Flush()
	if r.err == nil {
		r.err = eris.Wrap(r.w.Error(), "flush trace")
	}
	if err := r.file.Close(); err != nil && r.err == nil {
		r.err = eris.Wrap(err, "close trace")
	}

	if res != nil {
		r.meta.Steps = res.Steps
		r.meta.SimTime = res.SimTime
		r.meta.PeerTime = res.PeerTime
		r.meta.Metrics = res.Metrics
		if res.Err != nil {
			r.meta.Error = res.Err.Error()
		}
	}
	if err := r.store.writeMetadata(&r.meta); err != nil && r.err == nil {
		r.err = err
	}
	return r.err
}

func (r *Recorder) Metadata() RunMetadata { return r.meta }
