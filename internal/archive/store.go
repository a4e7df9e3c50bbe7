// Package archive owns the persisted news archive: a flat append log, one
// shard per calendar month, one file per article, and a derived index that
// is always reconstructible from the shards.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
	"github.com/bobmatnyc/ai-power-rankings/internal/merge"
)

const (
	flatFile     = "news.json"
	indexFile    = "index.json"
	monthDir     = "by-month"
	articleDir   = "articles"
	backupFormat = "20060102-150405"
)

// CollectionMeta describes one persisted article collection.
type CollectionMeta struct {
	TotalArticles int      `json:"total_articles"`
	LastUpdated   string   `json:"last_updated"`
	Sources       []string `json:"sources,omitempty"`
}

// Collection is the flat-log file shape.
type Collection struct {
	Articles []domain.ArticleRecord `json:"articles"`
	Metadata CollectionMeta         `json:"metadata"`
}

// Shard is the per-month file shape.
type Shard struct {
	Month    string                 `json:"month"`
	Articles []domain.ArticleRecord `json:"articles"`
	Metadata CollectionMeta         `json:"metadata"`
}

// Store persists the archive under a single root directory. The design
// assumes one writer at a time; concurrent ingestion runs against the same
// root must be serialized externally.
type Store struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

// New builds a store rooted at dir.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: dir, logger: logger, now: time.Now}
}

func (s *Store) flatPath() string  { return filepath.Join(s.root, flatFile) }
func (s *Store) indexPath() string { return filepath.Join(s.root, indexFile) }

func (s *Store) shardPath(month string) string {
	return filepath.Join(s.root, monthDir, month+".json")
}

func (s *Store) articlePath(rec domain.ArticleRecord) string {
	date := rec.Date.UTC()
	return filepath.Join(s.root, articleDir, date.Format("2006"), date.Format("01"), rec.ID+".json")
}

// LoadFlat reads the flat log. A missing file is an empty archive, not an
// error.
func (s *Store) LoadFlat() (Collection, error) {
	var col Collection
	if err := readJSON(s.flatPath(), &col); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Collection{}, nil
		}
		return Collection{}, fmt.Errorf("load flat log: %w", err)
	}
	return col, nil
}

// LoadShard reads one monthly shard; missing shards are empty.
func (s *Store) LoadShard(month string) (Shard, error) {
	var shard Shard
	if err := readJSON(s.shardPath(month), &shard); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Shard{Month: month}, nil
		}
		return Shard{}, fmt.Errorf("load shard %s: %w", month, err)
	}
	return shard, nil
}

// UpsertBatch merges records into the flat log, the affected monthly
// shards, and the per-article files. It is safe to call repeatedly with
// overlapping batches. A failed backup aborts before any mutation; the
// index is not touched here and must be rebuilt afterwards.
func (s *Store) UpsertBatch(records []domain.ArticleRecord) (domain.UpsertResult, error) {
	if len(records) == 0 {
		return domain.UpsertResult{}, nil
	}
	records = merge.DedupeBatch(records)

	flat, err := s.LoadFlat()
	if err != nil {
		return domain.UpsertResult{}, err
	}

	mergedFlat := merge.Merge(flat.Articles, records)

	existing := make(map[string]struct{}, len(flat.Articles))
	for _, rec := range flat.Articles {
		existing[rec.ID] = struct{}{}
	}
	var addedRecords []domain.ArticleRecord
	for _, rec := range records {
		if _, ok := existing[rec.ID]; !ok {
			addedRecords = append(addedRecords, rec)
		}
	}

	result := domain.UpsertResult{
		Added:        len(addedRecords),
		Skipped:      len(records) - len(addedRecords),
		AddedRecords: addedRecords,
	}

	// Backup before the destructive overwrite; a backup failure is fatal
	// for the batch and nothing has been mutated yet.
	if err := s.backupFlat(); err != nil {
		return domain.UpsertResult{}, err
	}

	stamp := s.now().UTC().Format(time.RFC3339)

	if err := s.writeJSON(s.flatPath(), Collection{
		Articles: mergedFlat,
		Metadata: CollectionMeta{
			TotalArticles: len(mergedFlat),
			LastUpdated:   stamp,
			Sources:       distinctSources(mergedFlat),
		},
	}); err != nil {
		return domain.UpsertResult{}, fmt.Errorf("write flat log: %w", err)
	}

	byMonth := partitionByMonth(records)
	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)
	result.Months = months

	for _, month := range months {
		shard, err := s.LoadShard(month)
		if err != nil {
			return domain.UpsertResult{}, err
		}
		mergedShard := merge.Merge(shard.Articles, byMonth[month])
		if err := s.writeJSON(s.shardPath(month), Shard{
			Month:    month,
			Articles: mergedShard,
			Metadata: CollectionMeta{
				TotalArticles: len(mergedShard),
				LastUpdated:   stamp,
			},
		}); err != nil {
			return domain.UpsertResult{}, fmt.Errorf("write shard %s: %w", month, err)
		}
	}

	for _, rec := range records {
		if err := s.writeJSON(s.articlePath(rec), rec); err != nil {
			return domain.UpsertResult{}, fmt.Errorf("write article %s: %w", rec.ID, err)
		}
	}

	s.logger.Debug("batch upserted",
		"added", result.Added,
		"skipped", result.Skipped,
		"months", months,
		"total", len(mergedFlat))
	return result, nil
}

// RebuildIndex discards the current index and recomputes it from the
// monthly shards alone. Given the same shard contents the output bytes are
// identical, so last_updated derives from shard metadata rather than the
// clock.
func (s *Store) RebuildIndex() (domain.ArchiveIndex, error) {
	shards, err := s.loadAllShards()
	if err != nil {
		return domain.ArchiveIndex{}, err
	}

	var all []domain.ArticleRecord
	lastUpdated := ""
	for _, shard := range shards {
		all = append(all, shard.Articles...)
		if shard.Metadata.LastUpdated > lastUpdated {
			lastUpdated = shard.Metadata.LastUpdated
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.After(all[j].Date)
	})

	counts := map[string]int{}
	for _, rec := range all {
		counts[rec.Month()]++
	}
	months := make([]domain.MonthCount, 0, len(counts))
	for month := range counts {
		months = append(months, domain.MonthCount{Month: month, Count: counts[month]})
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month > months[j].Month })

	recent := all
	if len(recent) > 10 {
		recent = recent[:10]
	}

	idx := domain.ArchiveIndex{
		TotalArticles:  len(all),
		LastUpdated:    lastUpdated,
		Months:         months,
		RecentArticles: recent,
	}

	if err := s.writeJSON(s.indexPath(), idx); err != nil {
		return domain.ArchiveIndex{}, fmt.Errorf("write index: %w", err)
	}

	s.logger.Debug("index rebuilt", "total", idx.TotalArticles, "months", len(idx.Months))
	return idx, nil
}

// backupFlat copies the current flat log to a timestamped sibling. No
// existing flat log means nothing to back up.
func (s *Store) backupFlat() error {
	src, err := os.Open(s.flatPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("backup flat log: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("%s.backup-%s", flatFile, s.now().Format(backupFormat))
	dst, err := os.Create(filepath.Join(s.root, name))
	if err != nil {
		return fmt.Errorf("backup flat log: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("backup flat log: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("backup flat log: %w", err)
	}

	s.logger.Debug("flat log backed up", "file", name)
	return nil
}

func (s *Store) loadAllShards() ([]Shard, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, monthDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list shards: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	shards := make([]Shard, 0, len(names))
	for _, name := range names {
		var shard Shard
		if err := readJSON(filepath.Join(s.root, monthDir, name), &shard); err != nil {
			return nil, fmt.Errorf("load shard %s: %w", name, err)
		}
		shards = append(shards, shard)
	}
	return shards, nil
}

// writeJSON persists v as an indented whole-document file. The write goes
// through a temp file plus rename so a record file is never left partially
// written.
func (s *Store) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func partitionByMonth(records []domain.ArticleRecord) map[string][]domain.ArticleRecord {
	byMonth := map[string][]domain.ArticleRecord{}
	for _, rec := range records {
		byMonth[rec.Month()] = append(byMonth[rec.Month()], rec)
	}
	return byMonth
}

func distinctSources(records []domain.ArticleRecord) []string {
	set := map[string]struct{}{}
	for _, rec := range records {
		if rec.Source == "" {
			continue
		}
		set[rec.Source] = struct{}{}
	}
	sources := make([]string, 0, len(set))
	for src := range set {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	return sources
}
