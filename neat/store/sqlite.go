package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/baldhumanity/neatcore/neat"
)

// SQLiteStore archives genomes in a local SQLite database. Genome renderings
// are stored as JSON payloads next to the fitness, so queries can rank
// records without decoding them.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS genomes (
		run_id     TEXT    NOT NULL,
		generation INTEGER NOT NULL,
		genome_key INTEGER NOT NULL,
		fitness    REAL    NOT NULL,
		payload    TEXT    NOT NULL,
		PRIMARY KEY (run_id, generation, genome_key)
	);
	CREATE INDEX IF NOT EXISTS idx_genomes_run_fitness ON genomes (run_id, fitness DESC);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create genome tables: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveGenome(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec.Genome)
	if err != nil {
		return fmt.Errorf("encode genome payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO genomes (run_id, generation, genome_key, fitness, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_id, generation, genome_key)
		DO UPDATE SET fitness = excluded.fitness, payload = excluded.payload`,
		rec.RunID, rec.Generation, rec.GenomeKey, rec.Fitness, string(payload))
	if err != nil {
		return fmt.Errorf("save genome: %w", err)
	}
	return nil
}

func (s *SQLiteStore) BestGenome(ctx context.Context, runID string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, generation, genome_key, fitness, payload
		FROM genomes WHERE run_id = ?
		ORDER BY fitness DESC, generation DESC LIMIT 1`, runID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("query best genome: %w", err)
	}
	return rec, true, nil
}

func (s *SQLiteStore) GenomesByGeneration(ctx context.Context, runID string, generation int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, generation, genome_key, fitness, payload
		FROM genomes WHERE run_id = ? AND generation = ?
		ORDER BY genome_key`, runID, generation)
	if err != nil {
		return nil, fmt.Errorf("query genomes: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan genome row: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genome rows: %w", err)
	}
	return result, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var payload string
	if err := row.Scan(&rec.RunID, &rec.Generation, &rec.GenomeKey, &rec.Fitness, &payload); err != nil {
		return Record{}, err
	}
	var data neat.GenomeData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return Record{}, fmt.Errorf("decode genome payload: %w", err)
	}
	rec.Genome = data
	return rec, nil
}
