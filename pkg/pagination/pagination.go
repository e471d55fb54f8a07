package pagination

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Page request bounds.
const (
	// DefaultPage is used when no page number is requested.
	DefaultPage = 1

	// DefaultPageSize is used when no (or a non-positive) page size is requested.
	DefaultPageSize = 10

	// MaxPageSize caps the number of documents rendered per page.
	MaxPageSize = 100

	// PreviewLength is the number of characters kept in a content preview.
	PreviewLength = 200

	// Ellipsis marks a truncated preview.
	Ellipsis = "..."
)

// Source is a whole-collection fetch: parallel slices indexed by position.
// IDs and Metadatas may be shorter than Documents when the store omits them.
type Source struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]any
}

// Len returns the number of documents in the source.
func (s Source) Len() int {
	return len(s.Documents)
}

// Item is one document decorated for display.
type Item struct {
	// Index is the 1-based position of the document in the collection.
	Index          int            `json:"index"`
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	ContentPreview string         `json:"content_preview"`
	Metadata       map[string]any `json:"metadata"`
	// MetadataStr is the indented JSON form of Metadata, empty when there is none.
	MetadataStr string `json:"metadata_str"`
}

// Page is the window of a collection selected by a page number and size.
type Page struct {
	CollectionName string `json:"collection_name"`
	Documents      []Item `json:"documents"`
	TotalDocuments int    `json:"total_documents"`
	CurrentPage    int    `json:"current_page"`
	TotalPages     int    `json:"total_pages"`
	PageSize       int    `json:"page_size"`
	// StartIdx and EndIdx are 1-based and inclusive; both are 0 for an empty page.
	StartIdx int `json:"start_idx"`
	EndIdx   int `json:"end_idx"`
}

// HasPrevious reports whether a page precedes the current one.
func (p *Page) HasPrevious() bool {
	return p.CurrentPage > 1
}

// HasNext reports whether a page follows the current one.
func (p *Page) HasNext() bool {
	return p.CurrentPage < p.TotalPages
}

// NormalizeSize bounds a page size to [1, MaxPageSize].
// Non-positive sizes fall back to DefaultPageSize.
func NormalizeSize(size int) int {
	switch {
	case size < 1:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	default:
		return size
	}
}

// TotalPages returns ceil(n/size), or 0 when n is 0.
func TotalPages(n, size int) int {
	if n <= 0 {
		return 0
	}
	size = NormalizeSize(size)
	return (n + size - 1) / size
}

// Window clamps page into [1, TotalPages(n, size)] and returns it together
// with the 0-based half-open document range [start, end) it covers.
// For n == 0 the page is only raised to 1 and the range is empty.
func Window(n, page, size int) (current, start, end int) {
	size = NormalizeSize(size)
	current = page
	if current < 1 {
		current = 1
	}
	if n <= 0 {
		return current, 0, 0
	}

	if total := TotalPages(n, size); current > total {
		current = total
	}

	start = (current - 1) * size
	end = start + size
	if end > n {
		end = n
	}
	return current, start, end
}

// Paginate selects the requested page of src and decorates its documents.
func Paginate(collection string, src Source, page, size int) Page {
	size = NormalizeSize(size)
	n := src.Len()

	if n == 0 {
		current := page
		if current < 1 {
			current = DefaultPage
		}
		return Page{
			CollectionName: collection,
			Documents:      []Item{},
			CurrentPage:    current,
			PageSize:       size,
		}
	}

	current, start, end := Window(n, page, size)

	items := make([]Item, 0, end-start)
	for idx := start; idx < end; idx++ {
		items = append(items, src.item(idx))
	}

	return Page{
		CollectionName: collection,
		Documents:      items,
		TotalDocuments: n,
		CurrentPage:    current,
		TotalPages:     TotalPages(n, size),
		PageSize:       size,
		StartIdx:       start + 1,
		EndIdx:         end,
	}
}

// item builds the display record for the document at idx.
func (s Source) item(idx int) Item {
	id := fmt.Sprintf("doc_%d", idx)
	if idx < len(s.IDs) {
		id = s.IDs[idx]
	}

	var meta map[string]any
	if idx < len(s.Metadatas) {
		meta = s.Metadatas[idx]
	}
	if meta == nil {
		meta = map[string]any{}
	}

	content := s.Documents[idx]
	return Item{
		Index:          idx + 1,
		ID:             id,
		Content:        content,
		ContentPreview: Preview(content),
		Metadata:       meta,
		MetadataStr:    MetadataString(meta),
	}
}

// Preview truncates content to PreviewLength characters, appending Ellipsis
// when anything was cut.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength]) + Ellipsis
}

// MetadataString renders metadata as two-space indented JSON.
// Empty metadata renders as "".
func MetadataString(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		// NaN and Inf floats are not representable in JSON
		return fmt.Sprintf("%v", meta)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
