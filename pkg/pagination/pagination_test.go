package pagination

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func makeSource(n int) Source {
	src := Source{}
	for i := 0; i < n; i++ {
		src.IDs = append(src.IDs, fmt.Sprintf("id-%d", i+1))
		src.Documents = append(src.Documents, fmt.Sprintf("document %d", i+1))
		src.Metadatas = append(src.Metadatas, map[string]any{"n": i + 1})
	}
	return src
}

func TestTotalPages(t *testing.T) {
	for n := 0; n <= 120; n++ {
		for _, size := range []int{1, 2, 3, 7, 10, 33, 100} {
			want := (n + size - 1) / size
			got := TotalPages(n, size)
			if got != want {
				t.Fatalf("TotalPages(%d, %d) = %d, want %d", n, size, got, want)
			}
			if (got == 0) != (n == 0) {
				t.Fatalf("TotalPages(%d, %d) = %d, zero iff n == 0", n, size, got)
			}
		}
	}
}

func TestPaginate_ItemCount(t *testing.T) {
	for _, n := range []int{1, 5, 9, 10, 11, 25, 99, 100, 101} {
		for _, size := range []int{1, 3, 10, 50} {
			src := makeSource(n)
			total := TotalPages(n, size)
			for p := 1; p <= total; p++ {
				page := Paginate("c", src, p, size)

				want := size
				if rest := n - (p-1)*size; rest < want {
					want = rest
				}
				if len(page.Documents) != want {
					t.Fatalf("n=%d size=%d page=%d: got %d items, want %d", n, size, p, len(page.Documents), want)
				}
				if page.EndIdx-page.StartIdx+1 != len(page.Documents) {
					t.Fatalf("n=%d size=%d page=%d: start=%d end=%d does not match %d items",
						n, size, p, page.StartIdx, page.EndIdx, len(page.Documents))
				}
				if page.CurrentPage != p {
					t.Fatalf("n=%d size=%d page=%d: current page %d", n, size, p, page.CurrentPage)
				}
			}
		}
	}
}

func TestPaginate_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		n           int
		page        int
		size        int
		wantPage    int
		wantTotal   int
		wantStart   int
		wantEnd     int
		wantItems   int
		wantFirstID string
	}{
		{
			name: "first page of 25", n: 25, page: 1, size: 10,
			wantPage: 1, wantTotal: 3, wantStart: 1, wantEnd: 10, wantItems: 10, wantFirstID: "id-1",
		},
		{
			name: "last partial page of 25", n: 25, page: 3, size: 10,
			wantPage: 3, wantTotal: 3, wantStart: 21, wantEnd: 25, wantItems: 5, wantFirstID: "id-21",
		},
		{
			name: "empty collection", n: 0, page: 4, size: 10,
			wantPage: 4, wantTotal: 0, wantStart: 0, wantEnd: 0, wantItems: 0,
		},
		{
			name: "page beyond range clamps to last", n: 5, page: 5, size: 10,
			wantPage: 1, wantTotal: 1, wantStart: 1, wantEnd: 5, wantItems: 5, wantFirstID: "id-1",
		},
		{
			name: "page zero behaves as first", n: 25, page: 0, size: 10,
			wantPage: 1, wantTotal: 3, wantStart: 1, wantEnd: 10, wantItems: 10, wantFirstID: "id-1",
		},
		{
			name: "negative page behaves as first", n: 25, page: -3, size: 10,
			wantPage: 1, wantTotal: 3, wantStart: 1, wantEnd: 10, wantItems: 10, wantFirstID: "id-1",
		},
		{
			name: "page beyond range of many pages", n: 25, page: 9, size: 10,
			wantPage: 3, wantTotal: 3, wantStart: 21, wantEnd: 25, wantItems: 5, wantFirstID: "id-21",
		},
		{
			name: "empty collection with negative page", n: 0, page: -1, size: 10,
			wantPage: 1, wantTotal: 0, wantStart: 0, wantEnd: 0, wantItems: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Paginate("notes", makeSource(tt.n), tt.page, tt.size)

			if page.CollectionName != "notes" {
				t.Errorf("CollectionName = %q, want notes", page.CollectionName)
			}
			if page.CurrentPage != tt.wantPage {
				t.Errorf("CurrentPage = %d, want %d", page.CurrentPage, tt.wantPage)
			}
			if page.TotalPages != tt.wantTotal {
				t.Errorf("TotalPages = %d, want %d", page.TotalPages, tt.wantTotal)
			}
			if page.TotalDocuments != tt.n {
				t.Errorf("TotalDocuments = %d, want %d", page.TotalDocuments, tt.n)
			}
			if page.StartIdx != tt.wantStart || page.EndIdx != tt.wantEnd {
				t.Errorf("range = [%d, %d], want [%d, %d]", page.StartIdx, page.EndIdx, tt.wantStart, tt.wantEnd)
			}
			if len(page.Documents) != tt.wantItems {
				t.Fatalf("len(Documents) = %d, want %d", len(page.Documents), tt.wantItems)
			}
			if page.Documents == nil {
				t.Error("Documents should be an empty slice, not nil")
			}
			if tt.wantItems > 0 {
				first := page.Documents[0]
				if first.ID != tt.wantFirstID {
					t.Errorf("first ID = %q, want %q", first.ID, tt.wantFirstID)
				}
				if first.Index != tt.wantStart {
					t.Errorf("first Index = %d, want %d", first.Index, tt.wantStart)
				}
			}
		})
	}
}

func TestPaginate_PageSizeNormalized(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{0, DefaultPageSize},
		{-5, DefaultPageSize},
		{1, 1},
		{100, 100},
		{101, MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("size_%d", tt.size), func(t *testing.T) {
			page := Paginate("c", makeSource(250), 1, tt.size)
			if page.PageSize != tt.want {
				t.Errorf("PageSize = %d, want %d", page.PageSize, tt.want)
			}
			if len(page.Documents) != tt.want {
				t.Errorf("len(Documents) = %d, want %d", len(page.Documents), tt.want)
			}
		})
	}
}

func TestPaginate_MissingIDsAndMetadata(t *testing.T) {
	src := Source{
		IDs:       []string{"a"},
		Documents: []string{"one", "two", "three"},
		Metadatas: []map[string]any{nil, {"k": "v"}},
	}

	page := Paginate("c", src, 1, 10)
	if len(page.Documents) != 3 {
		t.Fatalf("len(Documents) = %d, want 3", len(page.Documents))
	}

	if got := page.Documents[0].ID; got != "a" {
		t.Errorf("Documents[0].ID = %q, want a", got)
	}
	if got := page.Documents[1].ID; got != "doc_1" {
		t.Errorf("Documents[1].ID = %q, want doc_1", got)
	}
	if got := page.Documents[2].ID; got != "doc_2" {
		t.Errorf("Documents[2].ID = %q, want doc_2", got)
	}

	if page.Documents[0].Metadata == nil || len(page.Documents[0].Metadata) != 0 {
		t.Errorf("Documents[0].Metadata = %v, want empty map", page.Documents[0].Metadata)
	}
	if page.Documents[0].MetadataStr != "" {
		t.Errorf("Documents[0].MetadataStr = %q, want empty", page.Documents[0].MetadataStr)
	}
	if page.Documents[1].MetadataStr == "" {
		t.Error("Documents[1].MetadataStr should not be empty")
	}
	if page.Documents[2].Metadata == nil {
		t.Error("Documents[2].Metadata should default to an empty map")
	}
}

func TestPreview(t *testing.T) {
	short := strings.Repeat("a", PreviewLength)
	long := strings.Repeat("b", PreviewLength+1)
	multiByte := strings.Repeat("é", PreviewLength+10)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "", ""},
		{"short", "hello", "hello"},
		{"exactly limit", short, short},
		{"over limit", long, strings.Repeat("b", PreviewLength) + Ellipsis},
		{"multibyte counts characters", multiByte, strings.Repeat("é", PreviewLength) + Ellipsis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.content); got != tt.want {
				t.Errorf("Preview() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMetadataString(t *testing.T) {
	if got := MetadataString(nil); got != "" {
		t.Errorf("MetadataString(nil) = %q, want empty", got)
	}
	if got := MetadataString(map[string]any{}); got != "" {
		t.Errorf("MetadataString({}) = %q, want empty", got)
	}

	meta := map[string]any{
		"source": "<notes.md>",
		"page":   float64(3),
		"draft":  true,
		"score":  0.25,
	}
	s := MetadataString(meta)

	if !strings.Contains(s, "\n  \"") {
		t.Errorf("MetadataString() should be indented with two spaces, got %q", s)
	}
	if strings.HasSuffix(s, "\n") {
		t.Errorf("MetadataString() should not end with a newline, got %q", s)
	}
	if !strings.Contains(s, "<notes.md>") {
		t.Errorf("MetadataString() should not HTML-escape values, got %q", s)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		t.Fatalf("MetadataString() output is not JSON: %v", err)
	}
	if !reflect.DeepEqual(parsed, meta) {
		t.Errorf("round trip = %v, want %v", parsed, meta)
	}
}

func TestPage_Navigation(t *testing.T) {
	page := Paginate("c", makeSource(25), 2, 10)
	if !page.HasPrevious() || !page.HasNext() {
		t.Errorf("middle page: HasPrevious=%v HasNext=%v, want both true", page.HasPrevious(), page.HasNext())
	}

	page = Paginate("c", makeSource(25), 1, 10)
	if page.HasPrevious() {
		t.Error("first page should not have a previous page")
	}

	page = Paginate("c", makeSource(25), 3, 10)
	if page.HasNext() {
		t.Error("last page should not have a next page")
	}

	page = Paginate("c", makeSource(0), 1, 10)
	if page.HasNext() || page.HasPrevious() {
		t.Error("empty page should have no neighbours")
	}
}
