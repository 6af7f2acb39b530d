package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/pthm-cable/natsel/components"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot is a read-only view of the world at one tick.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`

	Width  int `json:"width"`
	Height int `json:"height"`

	Tick       int `json:"tick"`
	Generation int `json:"generation"`
	Step       int `json:"step"`
	Population int `json:"population"`

	// Sorted by ID
	Occupants []OccupantState `json:"occupants"`
}

// OccupantState holds one occupant's public attributes.
// Exactly one of Organism, Food or Trail is set, matching Kind.
type OccupantState struct {
	ID   uint32 `json:"id"`
	Kind string `json:"kind"`
	X    int    `json:"x"`
	Y    int    `json:"y"`

	Organism *OrganismState `json:"organism,omitempty"`
	Food     *FoodState     `json:"food,omitempty"`
	Trail    *TrailState    `json:"trail,omitempty"`
}

// OrganismState is the public view of an organism.
type OrganismState struct {
	Speed           int     `json:"speed"`
	Awareness       int     `json:"awareness"`
	Size            float64 `json:"size"`
	Trail           bool    `json:"trail"`
	Energy          float64 `json:"energy"`
	Age             int     `json:"age"`
	ProbSurvival    float64 `json:"prob_survival"`
	ProbReplication float64 `json:"prob_replication"`
}

// FoodState is the public view of a food source.
type FoodState struct {
	Amount float64 `json:"amount"`
}

// TrailState is the public view of a pheromone marker.
type TrailState struct {
	Strength  int    `json:"strength"`
	CameFromX int    `json:"came_from_x"`
	CameFromY int    `json:"came_from_y"`
	Creator   uint32 `json:"creator"`
}

// Organisms returns the organism entries of the snapshot.
func (s *Snapshot) Organisms() []OccupantState {
	return s.ofKind(components.KindOrganism)
}

// Foods returns the food entries of the snapshot.
func (s *Snapshot) Foods() []OccupantState {
	return s.ofKind(components.KindFood)
}

// Trails returns the pheromone entries of the snapshot.
func (s *Snapshot) Trails() []OccupantState {
	return s.ofKind(components.KindTrail)
}

// Find returns the occupant with the given ID.
func (s *Snapshot) Find(id uint32) (OccupantState, bool) {
	for _, o := range s.Occupants {
		if o.ID == id {
			return o, true
		}
	}
	return OccupantState{}, false
}

func (s *Snapshot) ofKind(kind components.Kind) []OccupantState {
	name := kind.String()
	var out []OccupantState
	for _, o := range s.Occupants {
		if o.Kind == name {
			out = append(out, o)
		}
	}
	return out
}

// SaveSnapshot writes a snapshot to dir as indented JSON.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_g%d_t%d.json", snapshot.Generation, snapshot.Tick)
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}

// SnapshotStream writes one JSON snapshot per line into a zstd-compressed file.
type SnapshotStream struct {
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewSnapshotStream creates (or truncates) path and opens a compressed stream on it.
func NewSnapshotStream(path string) (*SnapshotStream, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create stream dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &SnapshotStream{f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

// Write appends a snapshot as one line.
func (s *SnapshotStream) Write(snapshot *Snapshot) error {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

// Close flushes the stream and closes the file.
func (s *SnapshotStream) Close() error {
	if s == nil || s.f == nil {
		return nil
	}
	var firstErr error
	if err := s.w.Flush(); err != nil {
		firstErr = err
	}
	if err := s.enc.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.f.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	s.f = nil
	return firstErr
}

// ReadSnapshotStream decodes every snapshot in a compressed stream.
func ReadSnapshotStream(r io.Reader) ([]Snapshot, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	var out []Snapshot
	jd := json.NewDecoder(dec)
	for {
		var s Snapshot
		if err := jd.Decode(&s); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, s)
	}
}
