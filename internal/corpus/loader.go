package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ErrEmptyCorpus means the load produced no valid records at all, either
// because no files were found or because every record was rejected.
var ErrEmptyCorpus = errors.New("corpus: no valid records found")

// Stats summarizes one load pass. Per-record problems never fail the load;
// they are absorbed here.
type Stats struct {
	Files        int `json:"files"`
	SkippedFiles int `json:"skipped_files"`
	Valid        int `json:"valid"`
	Invalid      int `json:"invalid"`
}

// Loader reads record files from a directory. Each file holds a JSON list of
// records carrying precomputed embeddings.
type Loader struct {
	dir    string
	logger *zap.Logger
}

// NewLoader creates a loader over dir. A nil logger is replaced with a no-op.
func NewLoader(dir string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{dir: dir, logger: logger}
}

// wireRecord is the on-disk shape of a record. Pointer fields distinguish
// absent from zero for the two required fields, and the legacy alias keys
// from older EFDB exports are accepted alongside the snake_case ones.
type wireRecord struct {
	Record
	EFID                       *int64     `json:"ef_id"`
	Vector                     *[]float32 `json:"vector"`
	LegacyParametersConditions string     `json:"Parameters / Conditions"`
	LegacyOtherProperties      string     `json:"Other properties"`
}

// Load enumerates *.json files under the loader's directory and assembles a
// corpus. The dimension of the first valid non-empty vector becomes the
// corpus dimension; later records that disagree are counted invalid, never
// truncated or padded. Load fails only when zero valid records remain.
func (l *Loader) Load(ctx context.Context) (*Corpus, Stats, error) {
	var stats Stats

	files, err := filepath.Glob(filepath.Join(l.dir, "*.json"))
	if err != nil {
		return nil, stats, fmt.Errorf("corpus: enumerate %s: %w", l.dir, err)
	}
	if len(files) == 0 {
		return nil, stats, fmt.Errorf("%w: no record files in %s", ErrEmptyCorpus, l.dir)
	}
	stats.Files = len(files)

	var (
		records   []Record
		dimension int
	)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			l.logger.Warn("skipping unreadable record file", zap.String("path", path), zap.Error(err))
			stats.SkippedFiles++
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			l.logger.Warn("skipping record file that is not a JSON list", zap.String("path", path), zap.Error(err))
			stats.SkippedFiles++
			continue
		}
		for _, item := range items {
			rec, dim, ok := parseRecord(item, dimension)
			if !ok {
				stats.Invalid++
				continue
			}
			if dimension == 0 {
				dimension = dim
				l.logger.Info("corpus dimension established", zap.Int("dimension", dimension), zap.String("path", path))
			}
			records = append(records, rec)
			stats.Valid++
		}
	}

	if stats.Valid == 0 {
		return nil, stats, fmt.Errorf("%w: %d files, %d invalid records", ErrEmptyCorpus, stats.Files, stats.Invalid)
	}
	l.logger.Info("corpus loaded",
		zap.Int("files", stats.Files),
		zap.Int("valid", stats.Valid),
		zap.Int("invalid", stats.Invalid),
		zap.Int("dimension", dimension),
	)
	return &Corpus{records: records, dimension: dimension}, stats, nil
}

// parseRecord validates one raw record. dimension is the corpus dimension
// established so far, or 0 when unset; on success the record's dimension is
// returned. A zero-length vector never establishes the dimension.
func parseRecord(item json.RawMessage, dimension int) (Record, int, bool) {
	var w wireRecord
	if err := json.Unmarshal(item, &w); err != nil {
		return Record{}, 0, false
	}
	if w.EFID == nil || w.Vector == nil {
		return Record{}, 0, false
	}
	vec := *w.Vector
	if len(vec) == 0 {
		return Record{}, 0, false
	}
	if dimension != 0 && len(vec) != dimension {
		return Record{}, 0, false
	}

	rec := w.Record
	rec.EFID = *w.EFID
	rec.Vector = vec
	if rec.ParametersConditions == "" {
		rec.ParametersConditions = w.LegacyParametersConditions
	}
	if rec.OtherProperties == "" {
		rec.OtherProperties = w.LegacyOtherProperties
	}
	return rec, len(vec), true
}
