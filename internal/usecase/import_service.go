package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/superpoupe/backend/internal/domain"
)

// DefaultBatchSize is the number of products written per store call
const DefaultBatchSize = 50

// ProgressFunc receives a snapshot after every batch
type ProgressFunc func(domain.ImportProgress)

// Invalidator drops cached catalog reads after the catalog changes
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// ImportServiceConfig holds configuration for the import service
type ImportServiceConfig struct {
	BatchSize    int
	DefaultStore domain.StoreID
	Parser       ImportParserConfig
}

// ImportRequest is a pasted listing and the context it was pasted in
type ImportRequest struct {
	Text     string         `json:"text"`
	Store    domain.StoreID `json:"store"`
	Category string         `json:"category"`
	JobID    string         `json:"-"`
}

// BatchResult is the outcome of writing products in batches
type BatchResult struct {
	Imported      int
	Failed        int
	FailedBatches int
	Errors        []string
	Cancelled     bool
}

// ImportService parses listings and writes them to the catalog store
type ImportService struct {
	store        domain.CatalogStore
	invalidator  Invalidator
	parser       *ImportParser
	logger       zerolog.Logger
	batchSize    int
	defaultStore domain.StoreID
	now          func() time.Time
}

// NewImportService creates a new import service with dependencies.
// invalidator may be nil.
func NewImportService(
	store domain.CatalogStore,
	invalidator Invalidator,
	logger zerolog.Logger,
	config ImportServiceConfig,
) *ImportService {
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	defaultStore := config.DefaultStore
	if defaultStore == "" {
		defaultStore = domain.StoreContinente
	}

	now := config.Parser.Now
	if now == nil {
		now = time.Now
	}

	return &ImportService{
		store:        store,
		invalidator:  invalidator,
		parser:       NewImportParser(config.Parser),
		logger:       logger.With().Str("component", "import").Logger(),
		batchSize:    batchSize,
		defaultStore: defaultStore,
		now:          now,
	}
}

// Preview parses the request without writing anything
func (s *ImportService) Preview(request ImportRequest) (ParseResult, error) {
	if strings.TrimSpace(request.Text) == "" {
		return ParseResult{}, domain.ErrEmptyInput
	}

	store, err := s.resolveStore(request.Store)
	if err != nil {
		return ParseResult{}, err
	}

	return s.parser.Parse(request.Text, ParseContext{Store: store, Category: request.Category}), nil
}

// Import parses the request and upserts the products batch by batch.
// Cancelling ctx stops the import at the next batch boundary; the returned
// summary then has status cancelled. Blank text returns ErrEmptyInput and a
// text without valid products returns ErrNothingFound with its summary.
func (s *ImportService) Import(
	ctx context.Context,
	request ImportRequest,
	progress ProgressFunc,
) (*domain.ImportSummary, error) {
	parsed, err := s.Preview(request)
	if err != nil {
		return nil, err
	}

	jobID := request.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	summary := &domain.ImportSummary{
		JobID:     jobID,
		Status:    domain.ImportRunning,
		Found:     len(parsed.Products),
		Skipped:   parsed.Skipped,
		Rejected:  parsed.Rejected,
		StartedAt: s.now().UTC(),
	}

	log := s.logger.With().Str("job_id", jobID).Logger()

	if len(parsed.Products) == 0 {
		summary.Status = domain.ImportNothingFound
		summary.FinishedAt = s.now().UTC()
		log.Info().
			Int("anchors", parsed.Anchors).
			Int("skipped", parsed.Skipped).
			Int("rejected", parsed.Rejected).
			Msg("import text yielded no products")
		return summary, domain.ErrNothingFound
	}

	log.Info().
		Int("found", summary.Found).
		Int("batch_size", s.batchSize).
		Msg("import started")

	result := s.WriteBatches(ctx, parsed.Products, progress)

	summary.Imported = result.Imported
	summary.Failed = result.Failed
	summary.FailedBatches = result.FailedBatches
	summary.Errors = result.Errors
	summary.Status = importStatus(result)
	summary.FinishedAt = s.now().UTC()

	// batches written before a cancel are persisted, so cached pages are stale either way
	if result.Imported > 0 && s.invalidator != nil {
		if err := s.invalidator.Invalidate(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("failed to invalidate catalog cache")
		}
	}

	log.Info().
		Str("status", string(summary.Status)).
		Int("imported", summary.Imported).
		Int("failed", summary.Failed).
		Int("failed_batches", summary.FailedBatches).
		Dur("took", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("import finished")

	return summary, nil
}

// WriteBatches upserts products in sequential batches. A failed batch is
// recorded and the next one still runs. Writes are detached from ctx so a
// batch in flight always completes; ctx is only checked between batches.
func (s *ImportService) WriteBatches(
	ctx context.Context,
	products []domain.Product,
	progress ProgressFunc,
) BatchResult {
	var result BatchResult

	total := len(products)
	batches := (total + s.batchSize - 1) / s.batchSize
	writeCtx := context.WithoutCancel(ctx)

	for b := 0; b < batches; b++ {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		start := b * s.batchSize
		end := min(start+s.batchSize, total)

		if err := s.store.UpsertBatch(writeCtx, products[start:end]); err != nil {
			result.FailedBatches++
			result.Failed += end - start
			result.Errors = append(result.Errors, fmt.Sprintf("batch %d/%d: %v", b+1, batches, err))
			s.logger.Warn().Err(err).
				Int("batch", b+1).
				Int("batches", batches).
				Msg("batch upsert failed")
		} else {
			result.Imported += end - start
		}

		if progress != nil {
			progress(domain.ImportProgress{
				Batch:   b + 1,
				Batches: batches,
				Current: result.Imported,
				Failed:  result.Failed,
				Total:   total,
				Errors:  result.FailedBatches,
			})
		}
	}

	return result
}

func (s *ImportService) resolveStore(id domain.StoreID) (domain.StoreID, error) {
	if id == "" {
		return s.defaultStore, nil
	}
	store, ok := domain.ParseStoreID(string(id))
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidStore, id)
	}
	return store, nil
}

func importStatus(result BatchResult) domain.ImportStatus {
	switch {
	case result.Cancelled:
		return domain.ImportCancelled
	case result.Imported == 0:
		return domain.ImportFailed
	case result.Failed > 0:
		return domain.ImportPartial
	default:
		return domain.ImportCompleted
	}
}
