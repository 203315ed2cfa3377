package search

import "errors"

var (
	// ErrEmptyQuery means the request carried no query text after trimming.
	ErrEmptyQuery = errors.New("search: empty query")
	// ErrUnavailable means the corpus could not be loaded or the index could
	// not be built. Nothing is cached about the failure; the next request
	// retries initialization. The wrapped error carries the sub-cause
	// (empty corpus, dimension inconsistency, build failure).
	ErrUnavailable = errors.New("search: service unavailable")
	// ErrEmbedding wraps a provider failure while encoding the query text.
	// The provider error is surfaced verbatim; no placeholder vector is ever
	// substituted.
	ErrEmbedding = errors.New("search: query embedding failed")
	// ErrDegenerateVector means the provider returned a query vector with
	// near-zero norm, which would make every similarity score meaningless.
	ErrDegenerateVector = errors.New("search: degenerate query vector")
	// ErrDimensionMismatch means the query vector dimension disagrees with
	// the corpus dimension.
	ErrDimensionMismatch = errors.New("search: query vector dimension mismatch")
	// ErrNoResults means the query produced an empty result set.
	ErrNoResults = errors.New("search: no results")
)
