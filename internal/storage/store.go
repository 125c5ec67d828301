package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

var ErrNotFound = eris.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
)

// TraceHeader is the column layout of trace.csv.
var TraceHeader = []string{"time", "wheel_height", "body_height", "control", "peer_time", "command"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return eris.Wrap(os.MkdirAll(s.baseDir, 0755), "create data dir")
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID         string             `json:"id"`
	Rig        string             `json:"rig"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	SimTime    float64            `json:"sim_time"`
	PeerTime   float64            `json:"peer_time"`
	Integrator string             `json:"integrator"`
	Peer       string             `json:"peer,omitempty"`
	Offline    bool               `json:"offline"`
	Error      string             `json:"error,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// TraceRow is one line of trace.csv.
type TraceRow struct {
	Time        float64
	WheelHeight float64
	BodyHeight  float64
	Control     float64
	PeerTime    float64
	Command     float64
}

// newRunDir creates a fresh directory for a run, suffixing the id when a run
// with the same name already exists.
func (s *Store) newRunDir(name string, now time.Time) (string, string, error) {
	if err := s.Init(); err != nil {
		return "", "", err
	}
	base := fmt.Sprintf("%s_%d", name, now.Unix())
	id := base
	for i := 2; ; i++ {
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", eris.Wrapf(err, "create run dir %s", dir)
		}
		id = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *Store) writeMetadata(meta *RunMetadata) error {
	metaPath := filepath.Join(s.baseDir, meta.ID, metadataFile)
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return eris.Wrap(err, "create metadata")
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(meta), "encode metadata")
}

// List returns every recorded run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, eris.Wrap(err, "read data dir")
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, metadataFile)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrNotFound, "%s", runID)
		}
		return nil, eris.Wrapf(err, "read metadata of %s", runID)
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, eris.Wrapf(err, "decode metadata of %s", runID)
	}

	return &meta, nil
}

// TracePath is the location of a run's trace, for export.
func (s *Store) TracePath(runID string) string {
	return filepath.Join(s.baseDir, runID, traceFile)
}

func (s *Store) LoadTrace(runID string) ([]TraceRow, error) {
	file, err := os.Open(s.TracePath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrNotFound, "%s", runID)
		}
		return nil, eris.Wrapf(err, "open trace of %s", runID)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "read trace of %s", runID)
	}

	if len(records) < 2 {
		return []TraceRow{}, nil
	}

	rows := make([]TraceRow, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) < len(TraceHeader) {
			continue
		}

		var vals [6]float64
		ok := true
		for j := range vals {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		if !ok {
			continue
		}
		rows = append(rows, TraceRow{
			Time:        vals[0],
			WheelHeight: vals[1],
			BodyHeight:  vals[2],
			Control:     vals[3],
			PeerTime:    vals[4],
			Command:     vals[5],
		})
	}

	return rows, nil
}
