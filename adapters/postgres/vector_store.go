// Package postgres stores raw ensemble vectors in PostgreSQL and loads them
// into in-memory providers.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/semaphore"

	"enstats/adapters/provider/memory"
	"enstats/domain/core"
	"enstats/domain/vector"
	"enstats/internal"
	apperrors "enstats/internal/errors"
	"enstats/ports"
)

// insertBatch bounds the rows of one multi-row INSERT (5 parameters each)
const insertBatch = 1000

type sampleRow struct {
	Ensemble string          `db:"ensemble"`
	Real     int             `db:"real"`
	Date     time.Time       `db:"date"`
	Vector   string          `db:"vector"`
	Value    sql.NullFloat64 `db:"value"`
}

type metadataRow struct {
	Ensemble string `db:"ensemble"`
	Vector   string `db:"vector"`
	Unit     string `db:"unit"`
	IsTotal  bool   `db:"is_total"`
}

// VectorStore reads and writes ensemble vectors
type VectorStore struct {
	db     *sqlx.DB
	logger *internal.Logger
}

// NewVectorStore creates a new vector store
func NewVectorStore(db *sqlx.DB, logger *internal.Logger) *VectorStore {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &VectorStore{db: db, logger: logger}
}

// Ensembles lists the stored ensemble names
func (s *VectorStore) Ensembles(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.SelectContext(ctx, &names,
		`SELECT DISTINCT ensemble FROM ensemble_vectors ORDER BY ensemble`); err != nil {
		return nil, apperrors.DatabaseError("failed to list ensembles", err)
	}
	return names, nil
}

// LoadEnsemble reads every sample of one ensemble into a provider
func (s *VectorStore) LoadEnsemble(ctx context.Context, name string) (*memory.Provider, error) {
	start := time.Now()

	var samples []sampleRow
	if err := s.db.SelectContext(ctx, &samples, `
		SELECT ensemble, real, date, vector, value
		FROM ensemble_vectors
		WHERE ensemble = $1
		ORDER BY real, date, vector`, name); err != nil {
		return nil, apperrors.DatabaseError(fmt.Sprintf("failed to load ensemble %s", name), err)
	}
	if len(samples) == 0 {
		return nil, core.NewUnknownEnsembleError(name)
	}

	var metaRows []metadataRow
	if err := s.db.SelectContext(ctx, &metaRows, `
		SELECT ensemble, vector, COALESCE(unit, '') AS unit, is_total
		FROM vector_metadata
		WHERE ensemble = $1`, name); err != nil {
		return nil, apperrors.DatabaseError(fmt.Sprintf("failed to load metadata of %s", name), err)
	}

	table := pivot(samples)
	metadata := make(map[string]vector.Metadata, len(metaRows))
	for _, m := range metaRows {
		metadata[m.Vector] = vector.Metadata{Name: m.Vector, Unit: m.Unit, IsTotal: m.IsTotal}
	}

	provider, err := memory.New(name, table, metadata)
	if err != nil {
		return nil, apperrors.LoadError("ensemble "+name, err)
	}
	s.logger.Info("loaded ensemble %s from database: %d samples in %s",
		name, len(samples), time.Since(start).Round(time.Millisecond))
	return provider, nil
}

// LoadAll loads the named ensembles with at most limit concurrent queries
func (s *VectorStore) LoadAll(ctx context.Context, names []string, limit int64) (ports.ProviderSet, error) {
	if limit < 1 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		firstErr  error
		providers = make(ports.ProviderSet, len(names))
	)
	for _, name := range names {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			defer sem.Release(1)

			p, err := s.LoadEnsemble(ctx, name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			providers[name] = p
		}(name)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return providers, nil
}

// SaveEnsemble replaces the stored samples and metadata of one ensemble.
// NaN values are stored as NULL.
func (s *VectorStore) SaveEnsemble(ctx context.Context, name string, table *vector.Table, metadata map[string]vector.Metadata) error {
	times, err := table.Times()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ensemble_vectors WHERE ensemble = $1`, name); err != nil {
		return apperrors.DatabaseError("failed to clear ensemble vectors", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vector_metadata WHERE ensemble = $1`, name); err != nil {
		return apperrors.DatabaseError("failed to clear vector metadata", err)
	}

	batch := make([]sampleRow, 0, insertBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO ensemble_vectors (ensemble, real, date, vector, value)
			VALUES (:ensemble, :real, :date, :vector, :value)`, batch)
		batch = batch[:0]
		return err
	}
	for i := 0; i < table.Len(); i++ {
		for _, v := range table.VectorNames() {
			value := table.Value(v, i)
			batch = append(batch, sampleRow{
				Ensemble: name,
				Real:     table.Real(i),
				Date:     times[i],
				Vector:   v,
				Value:    sql.NullFloat64{Float64: value, Valid: !math.IsNaN(value)},
			})
			if len(batch) == insertBatch {
				if err := flush(); err != nil {
					return apperrors.DatabaseError("failed to insert vectors", err)
				}
			}
		}
	}
	if err := flush(); err != nil {
		return apperrors.DatabaseError("failed to insert vectors", err)
	}

	names := make([]string, 0, len(metadata))
	for v := range metadata {
		names = append(names, v)
	}
	sort.Strings(names)
	for _, v := range names {
		m := metadata[v]
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO vector_metadata (ensemble, vector, unit, is_total)
			VALUES (:ensemble, :vector, :unit, :is_total)`,
			metadataRow{Ensemble: name, Vector: v, Unit: m.Unit, IsTotal: m.IsTotal}); err != nil {
			return apperrors.DatabaseError("failed to insert vector metadata", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.DatabaseError("failed to commit ensemble", err)
	}
	s.logger.Info("stored ensemble %s: %d rows, %d vectors", name, table.Len(), len(table.VectorNames()))
	return nil
}

// pivot turns one-sample-per-row results, ordered by real and date, into a
// vector table. Vector columns are sorted by name; absent samples are NaN.
func pivot(samples []sampleRow) *vector.Table {
	seen := make(map[string]bool)
	var names []string
	for _, s := range samples {
		if !seen[s.Vector] {
			seen[s.Vector] = true
			names = append(names, s.Vector)
		}
	}
	sort.Strings(names)
	col := make(map[string]int, len(names))
	for i, n := range names {
		col[n] = i
	}

	table := vector.NewTable(names)
	row := make([]float64, len(names))
	for i := 0; i < len(samples); {
		real, date := samples[i].Real, samples[i].Date
		for k := range row {
			row[k] = math.NaN()
		}
		for ; i < len(samples) && samples[i].Real == real && samples[i].Date.Equal(date); i++ {
			if samples[i].Value.Valid {
				row[col[samples[i].Vector]] = samples[i].Value.Float64
			}
		}
		table.AppendRow(date.UTC(), real, row...)
	}
	return table
}
