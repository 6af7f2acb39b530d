package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/natsel/config"
)

// csvFile appends gocsv records to a file, writing the header once.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func createCSV(dir, name string) (*csvFile, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvFile{f: f}, nil
}

func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, c.f); err != nil {
			return err
		}
		c.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, c.f)
}

func (c *csvFile) close() error {
	if c == nil || c.f == nil {
		return nil
	}
	return c.f.Close()
}

// HistogramRow is one bin of a trait histogram in CSV form.
type HistogramRow struct {
	Generation int     `csv:"generation"`
	Trait      string  `csv:"trait"`
	Lo         float64 `csv:"lo"`
	Hi         float64 `csv:"hi"`
	Count      float64 `csv:"count"`
}

// RunInfo identifies a run in its output directory.
type RunInfo struct {
	RunID string `csv:"run_id"`
	Seed  int64  `csv:"seed"`
}

// OutputManager handles structured experiment output with CSV logging.
type OutputManager struct {
	dir string

	generations *csvFile
	histograms  *csvFile
	perf        *csvFile
	bookmarks   *csvFile
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	var err error
	if om.generations, err = createCSV(dir, "generations.csv"); err != nil {
		return nil, err
	}
	if om.histograms, err = createCSV(dir, "histograms.csv"); err != nil {
		om.Close()
		return nil, err
	}
	if om.perf, err = createCSV(dir, "perf.csv"); err != nil {
		om.Close()
		return nil, err
	}
	if om.bookmarks, err = createCSV(dir, "bookmarks.csv"); err != nil {
		om.Close()
		return nil, err
	}

	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteRunInfo saves the run identity to run.csv.
func (om *OutputManager) WriteRunInfo(info RunInfo) error {
	if om == nil {
		return nil
	}
	f, err := os.Create(filepath.Join(om.dir, "run.csv"))
	if err != nil {
		return fmt.Errorf("creating run.csv: %w", err)
	}
	defer f.Close()
	if err := gocsv.Marshal([]RunInfo{info}, f); err != nil {
		return fmt.Errorf("writing run info: %w", err)
	}
	return nil
}

// WriteGeneration writes a generation record to generations.csv and its
// histograms to histograms.csv.
func (om *OutputManager) WriteGeneration(stats GenerationStats, histograms []Histogram) error {
	if om == nil {
		return nil
	}

	if err := om.generations.write([]GenerationStats{stats}); err != nil {
		return fmt.Errorf("writing generation: %w", err)
	}

	var rows []HistogramRow
	for _, h := range histograms {
		for i, count := range h.Counts {
			rows = append(rows, HistogramRow{
				Generation: stats.Generation,
				Trait:      h.Trait,
				Lo:         h.Dividers[i],
				Hi:         h.Dividers[i+1],
				Count:      count,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	if err := om.histograms.write(rows); err != nil {
		return fmt.Errorf("writing histograms: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, generation int) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(generation)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	if err := om.bookmarks.write([]Bookmark{b}); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, c := range []*csvFile{om.generations, om.histograms, om.perf, om.bookmarks} {
		if err := c.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
