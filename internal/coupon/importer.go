package coupon

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultBatchSize bounds the number of rows written per upsert transaction.
const DefaultBatchSize = 500

// Result summarises an import run.
type Result struct {
	Files      int
	Coupons    int
	Duplicates int
	Upserted   int
}

// Importer loads catalogue files and writes them to a Store.
type Importer struct {
	loader    Loader
	store     Store
	batchSize int
	logger    zerolog.Logger
}

// NewImporter creates an importer. A non-positive batchSize uses DefaultBatchSize.
func NewImporter(loader Loader, store Store, batchSize int, logger zerolog.Logger) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Importer{
		loader:    loader,
		store:     store,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "coupon-importer").Logger(),
	}
}

// Import loads every file, merges them in argument order so later files win on
// duplicate codes, and upserts the result. Nothing is written unless every
// file loads.
func (i *Importer) Import(ctx context.Context, files ...string) (Result, error) {
	if len(files) == 0 {
		return Result{}, errors.New("no coupon files given")
	}

	catalogue, err := i.loadAll(ctx, files)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Files:      len(files),
		Coupons:    catalogue.Size(),
		Duplicates: catalogue.Duplicates(),
	}

	coupons := catalogue.Coupons()
	for start := 0; start < len(coupons); start += i.batchSize {
		end := min(start+i.batchSize, len(coupons))
		n, err := i.store.Upsert(ctx, coupons[start:end])
		result.Upserted += n
		if err != nil {
			i.logger.Error().
				Err(err).
				Int("upserted", result.Upserted).
				Msg("coupon import stopped")
			return result, fmt.Errorf("failed to upsert coupons %d-%d: %w", start, end, err)
		}
	}

	i.logger.Info().
		Int("files", result.Files).
		Int("coupons", result.Coupons).
		Int("duplicates", result.Duplicates).
		Int("upserted", result.Upserted).
		Msg("coupon import completed")

	return result, nil
}

// loadAll loads the files concurrently and merges them in argument order.
func (i *Importer) loadAll(ctx context.Context, files []string) (*Catalogue, error) {
	type loadResult struct {
		index     int
		catalogue *Catalogue
		err       error
	}

	resultChan := make(chan loadResult, len(files))
	var wg sync.WaitGroup

	for index, name := range files {
		wg.Add(1)
		go func(index int, name string) {
			defer wg.Done()
			catalogue, err := i.loader.Load(ctx, name)
			resultChan <- loadResult{index: index, catalogue: catalogue, err: err}
		}(index, name)
	}

	wg.Wait()
	close(resultChan)

	loaded := make([]*Catalogue, len(files))
	for result := range resultChan {
		if result.err != nil {
			i.logger.Error().
				Err(result.err).
				Str("file", files[result.index]).
				Msg("failed to load coupon file")
			return nil, fmt.Errorf("failed to load coupon file %s: %w", files[result.index], result.err)
		}
		loaded[result.index] = result.catalogue
	}

	merged := NewCatalogue(0)
	for _, catalogue := range loaded {
		merged.Merge(catalogue)
	}
	return merged, nil
}
