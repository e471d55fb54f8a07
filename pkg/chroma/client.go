package chroma

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// Prometheus metrics for store reads.
var (
	storeQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chroma_store_queries_total",
		Help: "Total Chroma store queries by operation and status",
	}, []string{"op", "status"})

	storeQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chroma_store_query_duration_seconds",
		Help:    "Chroma store query duration in seconds by operation",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"op"})
)

var (
	// ErrCollectionNotFound is returned when a named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrNoDefaultDatabase is returned by Open when a multi-database store
	// has no default_database in default_tenant.
	ErrNoDefaultDatabase = errors.New("default database not found")
)

const (
	// documentKey holds the document text in embedding_metadata.
	documentKey = "chroma:document"

	// reservedPrefix marks keys Chroma keeps for itself.
	reservedPrefix = "chroma:"

	metadataScope = "METADATA"

	defaultTenant   = "default_tenant"
	defaultDatabase = "default_database"
)

// Collection identifies one collection in the store.
type Collection struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Dimension *int   `json:"dimension,omitempty"`
}

// GetResult holds every record of a collection as parallel slices.
// A nil entry in Metadatas means the record has no user metadata.
type GetResult struct {
	IDs       []string         `json:"ids"`
	Documents []string         `json:"documents"`
	Metadatas []map[string]any `json:"metadatas"`
}

// Client is a read-only handle on a Chroma persistent directory.
type Client struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger

	// databaseID scopes collection lookups when the catalogue holds
	// several databases. Empty for stores without a databases table.
	databaseID string
}

// Open opens the Chroma store in dir.
// The directory must contain chroma.sqlite3 with a collections table.
func Open(ctx context.Context, dir string) (*Client, error) {
	if err := ValidatePath(dir); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	file := filepath.Join(abs, SQLiteFile)
	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoSQLiteFile, abs)
		}
		return nil, fmt.Errorf("stat %s: %w", file, err)
	}

	db, err := sql.Open("sqlite", dsn(file))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	var tables int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('collections', 'segments', 'embeddings', 'embedding_metadata')`,
	).Scan(&tables)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("inspect schema: %w", err)
	}
	if tables < 4 {
		db.Close()
		return nil, fmt.Errorf("%s is not a Chroma catalogue (found %d of 4 tables)", file, tables)
	}

	databaseID, err := resolveDefaultDatabase(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger := log.With().Str("component", "chroma").Str("db_path", abs).Logger()
	logger.Debug().Str("database_id", databaseID).Msg("Opened Chroma store")

	return &Client{db: db, path: abs, logger: logger, databaseID: databaseID}, nil
}

// resolveDefaultDatabase returns the id of default_database when
// collections carry a database_id, and "" for single-database catalogues.
func resolveDefaultDatabase(ctx context.Context, db *sql.DB) (string, error) {
	var scoped int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pragma_table_info('collections') WHERE name = 'database_id'
		AND EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'databases')`,
	).Scan(&scoped)
	if err != nil {
		return "", fmt.Errorf("inspect schema: %w", err)
	}
	if scoped == 0 {
		return "", nil
	}

	var id string
	err = db.QueryRowContext(ctx,
		`SELECT id FROM databases WHERE name = ? AND tenant_id = ?`,
		defaultDatabase, defaultTenant,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s/%s", ErrNoDefaultDatabase, defaultTenant, defaultDatabase)
	}
	if err != nil {
		return "", fmt.Errorf("resolve default database: %w", err)
	}
	return id, nil
}

// dsn builds a read-only SQLite URI for file.
func dsn(file string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(file)}
	u.RawQuery = "mode=ro&_pragma=query_only(1)&_pragma=busy_timeout(5000)"
	return u.String()
}

// Path returns the absolute store directory.
func (c *Client) Path() string {
	return c.path
}

// Version identifies the current contents of the store. It is the
// modification time of chroma.sqlite3 in nanoseconds, folded together with
// the modification time and size of chroma.sqlite3-wal when that exists,
// so writes that have not been checkpointed yet still change it.
func (c *Client) Version(ctx context.Context) (int64, error) {
	file := filepath.Join(c.path, SQLiteFile)
	info, err := os.Stat(file)
	if err != nil {
		return 0, fmt.Errorf("stat store: %w", err)
	}
	version := info.ModTime().UnixNano()

	wal, err := os.Stat(file + "-wal")
	switch {
	case errors.Is(err, os.ErrNotExist):
		return version, nil
	case err != nil:
		return 0, fmt.Errorf("stat wal: %w", err)
	}

	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%d:%d", version, wal.ModTime().UnixNano(), wal.Size())
	return int64(h.Sum64()), nil
}

// Close releases the database handle.
func (c *Client) Close() error {
	return c.db.Close()
}

// observe records metrics for one store operation.
func observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	storeQueriesTotal.WithLabelValues(op, status).Inc()
	storeQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ListCollections returns every collection of the default database
// ordered by name.
func (c *Client) ListCollections(ctx context.Context) (cols []Collection, err error) {
	defer func(start time.Time) { observe("list_collections", start, err) }(time.Now())

	query, args := `SELECT id, name, dimension FROM collections`, []any{}
	if c.databaseID != "" {
		query += ` WHERE database_id = ?`
		args = append(args, c.databaseID)
	}
	rows, err := c.db.QueryContext(ctx, query+` ORDER BY name`, args...)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		col, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return cols, nil
}

// GetCollection looks up a collection by name in the default database.
func (c *Client) GetCollection(ctx context.Context, name string) (col Collection, err error) {
	defer func(start time.Time) { observe("get_collection", start, err) }(time.Now())

	query, args := `SELECT id, name, dimension FROM collections WHERE name = ?`, []any{name}
	if c.databaseID != "" {
		query += ` AND database_id = ?`
		args = append(args, c.databaseID)
	}
	row := c.db.QueryRowContext(ctx, query, args...)
	col, err = scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Collection{}, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return col, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCollection(s scanner) (Collection, error) {
	var (
		col Collection
		dim sql.NullInt64
	)
	if err := s.Scan(&col.ID, &col.Name, &dim); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Collection{}, err
		}
		return Collection{}, fmt.Errorf("scan collection: %w", err)
	}
	if dim.Valid {
		d := int(dim.Int64)
		col.Dimension = &d
	}
	return col, nil
}

// Count returns the number of records stored in the collection.
func (c *Client) Count(ctx context.Context, col Collection) (n int, err error) {
	defer func(start time.Time) { observe("count", start, err) }(time.Now())

	err = c.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM embeddings e
		JOIN segments s ON e.segment_id = s.id
		WHERE s.collection = ? AND s.scope = ?`,
		col.ID, metadataScope,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", col.Name, err)
	}
	return n, nil
}

// Get returns every record of the collection in insertion order.
func (c *Client) Get(ctx context.Context, col Collection) (res *GetResult, err error) {
	defer func(start time.Time) { observe("get", start, err) }(time.Now())
	start := time.Now()

	rows, err := c.db.QueryContext(ctx, `
		SELECT e.id, e.embedding_id, m.key, m.string_value, m.int_value, m.float_value, m.bool_value
		FROM embeddings e
		JOIN segments s ON e.segment_id = s.id
		LEFT JOIN embedding_metadata m ON m.id = e.id
		WHERE s.collection = ? AND s.scope = ?
		ORDER BY e.id`,
		col.ID, metadataScope,
	)
	if err != nil {
		return nil, fmt.Errorf("query records of %s: %w", col.Name, err)
	}
	defer rows.Close()

	res = &GetResult{
		IDs:       []string{},
		Documents: []string{},
		Metadatas: []map[string]any{},
	}

	lastRow := int64(-1)
	for rows.Next() {
		var (
			rowID    int64
			embID    string
			key      sql.NullString
			strVal   sql.NullString
			intVal   sql.NullInt64
			floatVal sql.NullFloat64
			boolVal  sql.NullBool
		)
		if err := rows.Scan(&rowID, &embID, &key, &strVal, &intVal, &floatVal, &boolVal); err != nil {
			return nil, fmt.Errorf("scan record of %s: %w", col.Name, err)
		}

		if rowID != lastRow {
			res.IDs = append(res.IDs, embID)
			res.Documents = append(res.Documents, "")
			res.Metadatas = append(res.Metadatas, nil)
			lastRow = rowID
		}
		if !key.Valid {
			continue
		}

		i := len(res.IDs) - 1
		if key.String == documentKey {
			res.Documents[i] = strVal.String
			continue
		}
		if strings.HasPrefix(key.String, reservedPrefix) {
			continue
		}

		value, ok := metadataValue(strVal, intVal, floatVal, boolVal)
		if !ok {
			continue
		}
		if res.Metadatas[i] == nil {
			res.Metadatas[i] = map[string]any{}
		}
		res.Metadatas[i][key.String] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records of %s: %w", col.Name, err)
	}

	c.logger.Debug().
		Str("collection", col.Name).
		Int("records", len(res.IDs)).
		Dur("duration", time.Since(start)).
		Msg("Fetched collection records")

	return res, nil
}

// metadataValue picks the populated typed column of a metadata row.
func metadataValue(s sql.NullString, i sql.NullInt64, f sql.NullFloat64, b sql.NullBool) (any, bool) {
	switch {
	case s.Valid:
		return s.String, true
	case i.Valid:
		return i.Int64, true
	case f.Valid:
		return f.Float64, true
	case b.Valid:
		return b.Bool, true
	default:
		return nil, false
	}
}
