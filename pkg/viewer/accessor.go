// Package viewer lists collections and pages through their documents.
//
// An Accessor wraps one open store. A Conn holds the process-wide Accessor
// and swaps it atomically on connect and disconnect, so concurrent requests
// see either the previous store or the new one.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/chroma-viewer/pkg/cache"
	"github.com/Sternrassler/chroma-viewer/pkg/chroma"
	"github.com/Sternrassler/chroma-viewer/pkg/logging"
	"github.com/Sternrassler/chroma-viewer/pkg/pagination"
	"github.com/rs/zerolog"
)

// Store is the read side of a Chroma store. *chroma.Client implements it.
type Store interface {
	ListCollections(ctx context.Context) ([]chroma.Collection, error)
	GetCollection(ctx context.Context, name string) (chroma.Collection, error)
	Count(ctx context.Context, col chroma.Collection) (int, error)
	Get(ctx context.Context, col chroma.Collection) (*chroma.GetResult, error)
	Path() string
	Version(ctx context.Context) (int64, error)
	Close() error
}

// DocumentCache stores whole-collection fetches. *cache.Manager implements it.
type DocumentCache interface {
	Get(ctx context.Context, key cache.Key) (*cache.Entry, error)
	Set(ctx context.Context, key cache.Key, result *chroma.GetResult) error
}

// Summary describes one collection in a listing.
type Summary struct {
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count"`
	// Error is set when the count could not be read; DocumentCount is then 0.
	Error string `json:"error,omitempty"`
}

// Accessor reads collections and document pages from one store.
type Accessor struct {
	store  Store
	cache  DocumentCache
	logger zerolog.Logger

	// mu guards the reader count. A retired accessor closes its store
	// once the last reader has released it.
	mu      sync.Mutex
	readers int
	retired bool
	closed  bool
}

// NewAccessor creates an accessor over store. docCache may be nil.
func NewAccessor(store Store, docCache DocumentCache) *Accessor {
	return &Accessor{
		store:  store,
		cache:  docCache,
		logger: logging.NewLogger("viewer").With().Str("db_path", store.Path()).Logger(),
	}
}

// Path returns the store directory.
func (a *Accessor) Path() string {
	return a.store.Path()
}

// ListCollections summarises every collection in the store.
// A collection whose count fails is still listed, with count 0 and the error.
func (a *Accessor) ListCollections(ctx context.Context) ([]Summary, error) {
	cols, err := a.store.ListCollections(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to list collections")
		return nil, &Error{
			Kind:    KindRetrieval,
			Message: fmt.Sprintf("Error listing collections: %v", err),
			Err:     err,
		}
	}

	summaries := make([]Summary, 0, len(cols))
	for _, col := range cols {
		n, err := a.store.Count(ctx, col)
		if err != nil {
			collectionCountErrorsTotal.Inc()
			a.logger.Warn().
				Err(err).
				Str("collection", col.Name).
				Msg("Failed to count collection")
			summaries = append(summaries, Summary{Name: col.Name, Error: err.Error()})
			continue
		}
		summaries = append(summaries, Summary{Name: col.Name, DocumentCount: n})
	}

	collectionsListedTotal.Inc()
	return summaries, nil
}

// GetPage fetches the whole collection and returns the requested page of it.
func (a *Accessor) GetPage(ctx context.Context, name string, page, pageSize int) (*pagination.Page, error) {
	start := time.Now()

	col, err := a.store.GetCollection(ctx, name)
	if err != nil {
		return nil, a.retrievalError(name, err)
	}

	res, err := a.fetch(ctx, col)
	if err != nil {
		return nil, a.retrievalError(name, err)
	}

	src := pagination.Source{
		IDs:       res.IDs,
		Documents: res.Documents,
		Metadatas: res.Metadatas,
	}
	p := pagination.Paginate(name, src, page, pageSize)

	pageRequestsTotal.WithLabelValues("ok").Inc()
	a.logger.Debug().
		Str("collection", name).
		Int("page", p.CurrentPage).
		Int("page_size", p.PageSize).
		Int("total_documents", p.TotalDocuments).
		Dur("duration", time.Since(start)).
		Msg("Served document page")

	return &p, nil
}

// fetch reads every record of col, through the cache when one is configured.
func (a *Accessor) fetch(ctx context.Context, col chroma.Collection) (*chroma.GetResult, error) {
	if a.cache == nil {
		return a.store.Get(ctx, col)
	}

	version, err := a.store.Version(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Store version unavailable, bypassing cache")
		return a.store.Get(ctx, col)
	}
	key := cache.Key{Store: a.store.Path(), Collection: col.Name, Version: version}

	entry, err := a.cache.Get(ctx, key)
	switch {
	case err == nil:
		a.logger.Debug().Str("collection", col.Name).Msg("Collection fetch served from cache")
		return entry.Result, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		a.logger.Warn().Err(err).Str("collection", col.Name).Msg("Cache get error")
	}

	res, err := a.store.Get(ctx, col)
	if err != nil {
		return nil, err
	}

	if err := a.cache.Set(ctx, key, res); err != nil {
		a.logger.Warn().Err(err).Str("collection", col.Name).Msg("Failed to cache collection fetch")
	}
	return res, nil
}

func (a *Accessor) retrievalError(name string, err error) error {
	kind := KindRetrieval
	if errors.Is(err, chroma.ErrCollectionNotFound) {
		kind = KindNotFound
	}
	pageRequestsTotal.WithLabelValues(string(kind)).Inc()

	event := a.logger.Error()
	if kind == KindNotFound {
		event = a.logger.Info()
	}
	event.Err(err).Str("collection", name).Str("error_kind", string(kind)).Msg("Document retrieval failed")

	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf("Error retrieving documents: %v", err),
		Err:     err,
	}
}
