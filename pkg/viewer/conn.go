package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Sternrassler/chroma-viewer/pkg/chroma"
	"github.com/Sternrassler/chroma-viewer/pkg/logging"
	"github.com/rs/zerolog"
)

// Opener opens the store in a directory.
type Opener func(ctx context.Context, path string) (Store, error)

// OpenChroma opens a Chroma persistent directory.
func OpenChroma(ctx context.Context, path string) (Store, error) {
	client, err := chroma.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Conn holds the single active store.
type Conn struct {
	current atomic.Pointer[Accessor]
	open    Opener
	cache   DocumentCache
	logger  zerolog.Logger
}

// NewConn creates a disconnected Conn. A nil open uses OpenChroma;
// docCache may be nil.
func NewConn(open Opener, docCache DocumentCache) *Conn {
	if open == nil {
		open = OpenChroma
	}
	connectedGauge.Set(0)
	return &Conn{
		open:   open,
		cache:  docCache,
		logger: logging.NewLogger("viewer"),
	}
}

// ValidateStorePath checks path before any connection attempt.
// With requireMarkers, a directory holding no Chroma marker file is rejected.
func ValidateStorePath(path string, requireMarkers bool) error {
	if strings.TrimSpace(path) == "" {
		return &Error{Kind: KindConfig, Message: "Database path is required"}
	}

	if err := chroma.ValidatePath(path); err != nil {
		msg := fmt.Sprintf("Invalid database path '%s': %v", path, err)
		switch {
		case errors.Is(err, chroma.ErrPathNotExist):
			msg = fmt.Sprintf("Database path '%s' does not exist", path)
		case errors.Is(err, chroma.ErrNotDirectory):
			msg = fmt.Sprintf("'%s' is not a directory", path)
		}
		return &Error{Kind: KindConfig, Message: msg, Err: err}
	}

	if requireMarkers && !chroma.HasMarkers(path) {
		return &Error{
			Kind:    KindConfig,
			Message: fmt.Sprintf("'%s' doesn't appear to contain Chroma database files", path),
			Err:     chroma.ErrNoMarkers,
		}
	}
	return nil
}

// Connect validates path, opens it and makes it the active store.
// The previous store, if any, is closed once its in-flight readers
// have released it.
func (c *Conn) Connect(ctx context.Context, path string, requireMarkers bool) error {
	path = strings.TrimSpace(path)
	if err := ValidateStorePath(path, requireMarkers); err != nil {
		connectionsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	store, err := c.open(ctx, path)
	if err != nil {
		connectionsTotal.WithLabelValues("failed").Inc()
		c.logger.Error().Err(err).Str("db_path", path).Msg("Failed to connect to database")
		return &Error{
			Kind:    KindConnection,
			Message: fmt.Sprintf("Failed to connect to database: %v", err),
			Err:     err,
		}
	}

	previous := c.current.Swap(NewAccessor(store, c.cache))
	connectionsTotal.WithLabelValues("ok").Inc()
	connectedGauge.Set(1)
	c.logger.Info().Str("db_path", store.Path()).Msg("Connected to Chroma store")

	if previous != nil {
		c.closeStore(previous)
	}
	return nil
}

// Disconnect detaches the active store. It is closed once its in-flight
// readers have released it.
func (c *Conn) Disconnect() error {
	previous := c.current.Swap(nil)
	if previous == nil {
		return &Error{Kind: KindNotConnected, Message: "No database connection to disconnect"}
	}
	connectedGauge.Set(0)
	c.logger.Info().Str("db_path", previous.Path()).Msg("Disconnected from Chroma store")
	c.closeStore(previous)
	return nil
}

// Acquire returns the active accessor, or a KindNotConnected error.
// The store stays open until release is called, even if another
// Connect or Disconnect replaces it in the meantime.
func (c *Conn) Acquire() (a *Accessor, release func(), err error) {
	for {
		a = c.current.Load()
		if a == nil {
			return nil, nil, &Error{Kind: KindNotConnected, Message: "Database not connected"}
		}
		if a.acquire() {
			var once sync.Once
			return a, func() { once.Do(func() { c.release(a) }) }, nil
		}
		// Retired between Load and acquire; the swap already happened.
	}
}

// Connected reports whether a store is attached.
func (c *Conn) Connected() bool {
	return c.current.Load() != nil
}

// Path returns the active store directory, or "" when disconnected.
func (c *Conn) Path() string {
	if a := c.current.Load(); a != nil {
		return a.Path()
	}
	return ""
}

// Close detaches the active store, if any. The store is closed now when
// no reader holds it, otherwise when the last one releases it.
func (c *Conn) Close() error {
	if previous := c.current.Swap(nil); previous != nil {
		connectedGauge.Set(0)
		if previous.retire() {
			return previous.store.Close()
		}
	}
	return nil
}

func (c *Conn) closeStore(a *Accessor) {
	if a.retire() {
		c.closeRetired(a)
	}
}

func (c *Conn) release(a *Accessor) {
	if a.release() {
		c.closeRetired(a)
	}
}

func (c *Conn) closeRetired(a *Accessor) {
	if err := a.store.Close(); err != nil {
		c.logger.Warn().Err(err).Str("db_path", a.Path()).Msg("Failed to close previous store")
	}
}

// acquire registers a reader. It fails once the accessor is retired.
func (a *Accessor) acquire() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.retired {
		return false
	}
	a.readers++
	return true
}

// release drops a reader and reports whether the store must be closed now.
func (a *Accessor) release() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.readers--
	return a.closeable()
}

// retire stops new readers and reports whether the store must be closed now.
func (a *Accessor) retire() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.retired = true
	return a.closeable()
}

func (a *Accessor) closeable() bool {
	if a.retired && a.readers == 0 && !a.closed {
		a.closed = true
		return true
	}
	return false
}
