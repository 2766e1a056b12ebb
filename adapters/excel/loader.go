package excel

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"enstats/adapters/provider/memory"
	"enstats/internal"
	apperrors "enstats/internal/errors"
	"enstats/ports"
)

// Source names one ensemble file to load
type Source struct {
	Ensemble string
	Path     string
	Config   ReaderConfig
}

// LoadFile reads one ensemble file into an in-memory provider
func LoadFile(src Source, logger *internal.Logger) (*memory.Provider, error) {
	start := time.Now()
	data, meta, err := NewDataReader(src.Path, src.Config, logger).ReadData()
	if err != nil {
		return nil, apperrors.LoadError(src.Path, err)
	}
	table, err := ParseVectorTable(data)
	if err != nil {
		return nil, apperrors.LoadError(src.Path, err)
	}
	metadata, err := ParseMetadata(meta)
	if err != nil {
		return nil, apperrors.LoadError(src.Path, err)
	}
	provider, err := memory.New(src.Ensemble, table, metadata)
	if err != nil {
		return nil, apperrors.LoadError(src.Path, err)
	}
	if logger != nil {
		logger.Info("loaded ensemble %s from %s: %d rows, %d vectors, %d realizations in %s",
			src.Ensemble, src.Path, table.Len(), len(provider.VectorNames()), len(provider.Realizations()),
			time.Since(start).Round(time.Millisecond))
	}
	return provider, nil
}

// LoadAll reads every source concurrently, at most limit files at a time.
// The first failure cancels the remaining loads.
func LoadAll(ctx context.Context, sources []Source, limit int, logger *internal.Logger) (ports.ProviderSet, error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	var mu sync.Mutex
	providers := make(ports.ProviderSet, len(sources))
	for _, src := range sources {
		src := src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := LoadFile(src, logger)
			if err != nil {
				return err
			}
			mu.Lock()
			providers[src.Ensemble] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return providers, nil
}
