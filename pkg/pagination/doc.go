// Package pagination turns a whole-collection fetch into a bounded page window.
//
// A collection is fetched once as parallel slices of ids, documents and
// metadata (see Source). Paginate selects the contiguous sub-range for the
// requested page and decorates each document for display:
//
//	src := pagination.Source{IDs: ids, Documents: docs, Metadatas: metas}
//	page := pagination.Paginate("notes", src, 3, 10)
//	// page.StartIdx == 21, page.EndIdx == 25 for 25 documents
//
// Page numbers are clamped into [1, TotalPages]. An empty collection yields an
// empty page with TotalPages == 0 and keeps the requested page number.
//
// The package is pure: it performs no I/O and never logs.
package pagination
