// Package testutil provides testing utilities for the Chroma viewer.
package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// chromaSchema is the subset of Chroma's catalogue the viewer reads.
const chromaSchema = `
CREATE TABLE tenants (
    id TEXT PRIMARY KEY
);
CREATE TABLE databases (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    tenant_id TEXT NOT NULL REFERENCES tenants(id),
    UNIQUE (tenant_id, name)
);
CREATE TABLE collections (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    dimension INTEGER,
    database_id TEXT NOT NULL REFERENCES databases(id),
    config_json_str TEXT,
    UNIQUE (name, database_id)
);
CREATE TABLE segments (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    scope TEXT NOT NULL,
    collection TEXT REFERENCES collections(id)
);
CREATE TABLE embeddings (
    id INTEGER PRIMARY KEY,
    segment_id TEXT NOT NULL,
    embedding_id TEXT NOT NULL,
    seq_id BLOB NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (segment_id, embedding_id)
);
CREATE TABLE embedding_metadata (
    id INTEGER REFERENCES embeddings(id),
    key TEXT NOT NULL,
    string_value TEXT,
    int_value INTEGER,
    float_value REAL,
    bool_value INTEGER,
    PRIMARY KEY (id, key)
);
`

// Doc is one record written to a fixture store.
type Doc struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// ChromaStore is an on-disk Chroma catalogue built for tests.
type ChromaStore struct {
	Dir string
	// DefaultDatabase is the id of default_database in default_tenant.
	DefaultDatabase string

	db  *sql.DB
	t   *testing.T
	seq int64
}

// NewChromaStore creates an empty Chroma directory under t.TempDir().
func NewChromaStore(t *testing.T) *ChromaStore {
	t.Helper()

	dir := t.TempDir()
	db, err := sql.Open("sqlite", filepath.Join(dir, "chroma.sqlite3"))
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	if _, err := db.Exec(chromaSchema); err != nil {
		db.Close()
		t.Fatalf("apply chroma schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	s := &ChromaStore{Dir: dir, db: db, t: t}
	s.exec(`INSERT INTO tenants (id) VALUES ('default_tenant')`)
	s.DefaultDatabase = s.AddDatabase("default_database")
	return s
}

// AddDatabase creates a database in default_tenant and returns its id.
func (s *ChromaStore) AddDatabase(name string) string {
	s.t.Helper()
	id := uuid.NewString()
	s.exec(`INSERT INTO databases (id, name, tenant_id) VALUES (?, ?, 'default_tenant')`, id, name)
	return id
}

// AddCollection creates a collection in the default database holding docs
// in the given order.
func (s *ChromaStore) AddCollection(name string, docs ...Doc) {
	s.t.Helper()
	s.AddCollectionTo(s.DefaultDatabase, name, docs...)
}

// AddCollectionTo creates a collection in the given database.
func (s *ChromaStore) AddCollectionTo(databaseID, name string, docs ...Doc) {
	s.t.Helper()

	colID := uuid.NewString()
	metaSeg := uuid.NewString()
	vecSeg := uuid.NewString()

	s.exec(`INSERT INTO collections (id, name, dimension, database_id) VALUES (?, ?, ?, ?)`, colID, name, 3, databaseID)
	s.exec(`INSERT INTO segments (id, type, scope, collection) VALUES (?, 'urn:chroma:segment/metadata/sqlite', 'METADATA', ?)`, metaSeg, colID)
	s.exec(`INSERT INTO segments (id, type, scope, collection) VALUES (?, 'urn:chroma:segment/vector/hnsw-local-persisted', 'VECTOR', ?)`, vecSeg, colID)

	// Chroma keeps one directory per vector segment with a header.bin inside.
	if err := os.MkdirAll(filepath.Join(s.Dir, vecSeg), 0o755); err != nil {
		s.t.Fatalf("create segment dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, vecSeg, "header.bin"), []byte{0}, 0o644); err != nil {
		s.t.Fatalf("write header.bin: %v", err)
	}

	for _, d := range docs {
		s.seq++
		res, err := s.db.Exec(`INSERT INTO embeddings (segment_id, embedding_id, seq_id) VALUES (?, ?, ?)`, metaSeg, d.ID, s.seq)
		if err != nil {
			s.t.Fatalf("insert embedding %s: %v", d.ID, err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			s.t.Fatalf("last insert id: %v", err)
		}

		s.exec(`INSERT INTO embedding_metadata (id, key, string_value) VALUES (?, 'chroma:document', ?)`, rowID, d.Content)
		for key, value := range d.Metadata {
			s.insertMetadata(rowID, key, value)
		}
	}
}

func (s *ChromaStore) insertMetadata(rowID int64, key string, value any) {
	s.t.Helper()

	switch v := value.(type) {
	case string:
		s.exec(`INSERT INTO embedding_metadata (id, key, string_value) VALUES (?, ?, ?)`, rowID, key, v)
	case int:
		s.exec(`INSERT INTO embedding_metadata (id, key, int_value) VALUES (?, ?, ?)`, rowID, key, v)
	case int64:
		s.exec(`INSERT INTO embedding_metadata (id, key, int_value) VALUES (?, ?, ?)`, rowID, key, v)
	case float64:
		s.exec(`INSERT INTO embedding_metadata (id, key, float_value) VALUES (?, ?, ?)`, rowID, key, v)
	case bool:
		b := 0
		if v {
			b = 1
		}
		s.exec(`INSERT INTO embedding_metadata (id, key, bool_value) VALUES (?, ?, ?)`, rowID, key, b)
	default:
		s.t.Fatalf("unsupported metadata type %T for key %s", value, key)
	}
}

// Exec runs raw SQL against the fixture, e.g. to corrupt it.
func (s *ChromaStore) Exec(query string, args ...any) {
	s.t.Helper()
	s.exec(query, args...)
}

func (s *ChromaStore) exec(query string, args ...any) {
	s.t.Helper()
	if _, err := s.db.Exec(query, args...); err != nil {
		s.t.Fatalf("fixture exec %q: %v", query, err)
	}
}

// Docs builds n numbered documents: id-1/"document 1" ... id-n/"document n".
func Docs(n int) []Doc {
	docs := make([]Doc, 0, n)
	for i := 1; i <= n; i++ {
		docs = append(docs, Doc{
			ID:       "id-" + strconv.Itoa(i),
			Content:  "document " + strconv.Itoa(i),
			Metadata: map[string]any{"position": i},
		})
	}
	return docs
}
