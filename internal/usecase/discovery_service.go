package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/superpoupe/backend/internal/domain"
	"github.com/superpoupe/backend/internal/infrastructure/grounding"
)

// BatchWriter persists products in batches
type BatchWriter interface {
	WriteBatches(ctx context.Context, products []domain.Product, progress ProgressFunc) BatchResult
}

// DiscoveryRequest asks the grounding service for a store section or product
type DiscoveryRequest struct {
	Store      domain.StoreID `json:"store"`
	Category   string         `json:"category"`
	TargetHint string         `json:"targetHint"`
	Persist    bool           `json:"persist"`
}

// DiscoveryResult holds the validated products and the cited sources
type DiscoveryResult struct {
	Products []domain.Product  `json:"products"`
	Sources  []domain.Citation `json:"sources"`
	Rejected int               `json:"rejected"`
	Imported int               `json:"imported"`
	Failed   int               `json:"failed"`
}

// DiscoveryService turns grounded model answers into catalog products
type DiscoveryService struct {
	client      domain.GroundingClient
	writer      BatchWriter
	invalidator Invalidator
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDiscoveryService creates a new discovery service. client may be nil when
// no grounding key is configured; writer and invalidator may be nil when
// results are never persisted.
func NewDiscoveryService(
	client domain.GroundingClient,
	writer BatchWriter,
	invalidator Invalidator,
	logger zerolog.Logger,
) *DiscoveryService {
	return &DiscoveryService{
		client:      client,
		writer:      writer,
		invalidator: invalidator,
		logger:      logger.With().Str("component", "discovery").Logger(),
		now:         time.Now,
	}
}

// Discover queries the grounding service and validates the answer the same
// way imported listings are validated. A malformed answer is a grounding failure.
func (s *DiscoveryService) Discover(ctx context.Context, request DiscoveryRequest) (*DiscoveryResult, error) {
	if s.client == nil {
		return nil, domain.ErrGroundingDisabled
	}

	store, ok := domain.ParseStoreID(string(request.Store))
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStore, request.Store)
	}
	category := strings.TrimSpace(request.Category)
	if category == domain.AllCategories {
		category = ""
	}
	if category == "" && strings.TrimSpace(request.TargetHint) == "" {
		return nil, fmt.Errorf("%w: category or target hint required", domain.ErrInvalidRequest)
	}

	resp, err := s.client.QueryCatalog(ctx, domain.GroundingQuery{
		Store:      store,
		Category:   category,
		TargetHint: request.TargetHint,
	})
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExhausted) || errors.Is(err, domain.ErrGroundingDisabled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGroundingFailure, err)
	}

	var records []grounding.Record
	switch parsed := grounding.ParseRecords(resp.Text).(type) {
	case grounding.Parsed:
		records = parsed.Records
	case grounding.Malformed:
		s.logger.Warn().Err(parsed.Err).Int("raw_length", len(parsed.Raw)).Msg("malformed grounding answer")
		return nil, fmt.Errorf("%w: %v", domain.ErrGroundingFailure, parsed.Err)
	}

	result := &DiscoveryResult{Products: []domain.Product{}, Sources: resp.Sources}
	stamp := s.now().UTC()
	index := make(map[string]int)

	for _, rec := range records {
		name := SanitizeName(rec.Name)
		if utf8.RuneCountInString(name) <= minNameLength || !rec.Price.IsPositive() {
			result.Rejected++
			continue
		}

		unit := rec.Unit
		if unit == "" {
			unit = domain.DefaultUnit
		}

		productCategory := category
		if productCategory == "" {
			productCategory = rec.Category
		}
		if productCategory == "" {
			productCategory = ClassifyCategory(name)
		}

		p := domain.Product{
			ID:          StableID(name, unit, store, rec.Code),
			Name:        name,
			Category:    productCategory,
			Price:       rec.Price.Round(2).InexactFloat64(),
			Unit:        unit,
			Store:       store,
			LastUpdated: stamp,
			Code:        rec.Code,
		}

		if at, seen := index[p.ID]; seen {
			result.Products[at] = p
			continue
		}
		index[p.ID] = len(result.Products)
		result.Products = append(result.Products, p)
	}

	if request.Persist && len(result.Products) > 0 {
		if s.writer == nil {
			return nil, domain.ErrStoreUnavailable
		}
		written := s.writer.WriteBatches(ctx, result.Products, nil)
		result.Imported = written.Imported
		result.Failed = written.Failed
		if written.Imported > 0 && s.invalidator != nil {
			if err := s.invalidator.Invalidate(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn().Err(err).Msg("failed to invalidate catalog cache")
			}
		}
	}

	s.logger.Info().
		Str("store", string(store)).
		Str("category", category).
		Int("products", len(result.Products)).
		Int("rejected", result.Rejected).
		Int("sources", len(result.Sources)).
		Bool("persist", request.Persist).
		Msg("discovery finished")

	return result, nil
}
