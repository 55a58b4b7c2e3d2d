package domain

import "errors"

var (
	// ErrProductNotFound is returned when a product id is not in the catalog
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidStore is returned for an unknown retailer id
	ErrInvalidStore = errors.New("unknown store")

	// ErrEmptyInput is returned when an import is started with blank text
	ErrEmptyInput = errors.New("import text is empty")

	// ErrNothingFound is returned when an import text yields no valid product
	ErrNothingFound = errors.New("no products found in import text")

	// ErrImportInProgress is returned when an import is started while another runs
	ErrImportInProgress = errors.New("an import is already running")

	// ErrJobNotFound is returned for an unknown import job id
	ErrJobNotFound = errors.New("import job not found")

	// ErrStoreUnavailable is returned when the catalog store is not configured or unreachable
	ErrStoreUnavailable = errors.New("catalog store unavailable")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrQuotaExhausted is returned when the grounding service rejects a call for quota reasons
	ErrQuotaExhausted = errors.New("grounding quota exhausted")

	// ErrGroundingFailure is returned when a grounding request fails
	ErrGroundingFailure = errors.New("grounding request failed")

	// ErrGroundingDisabled is returned when no grounding API key is configured
	ErrGroundingDisabled = errors.New("grounding service not configured")
)
