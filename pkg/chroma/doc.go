// Package chroma reads a local Chroma persistent store without the Chroma runtime.
//
// A Chroma persistent directory keeps its catalogue, document text and
// metadata in a SQLite file named chroma.sqlite3, next to one sub-directory
// per vector segment (holding header.bin and the HNSW index files). This
// package opens that SQLite file read-only and answers the three questions a
// viewer needs:
//
//   - which collections exist (ListCollections, GetCollection)
//   - how many records a collection holds (Count)
//   - the ids, documents and metadata of every record (Get)
//
// Records are read from the collection's METADATA segment in insertion
// order. The document text lives under the reserved "chroma:document"
// metadata key; other "chroma:" keys are internal and never surface as user
// metadata. Vectors are not read.
//
// The store is never written to: the database is opened with mode=ro and
// query_only, over a single connection.
package chroma
