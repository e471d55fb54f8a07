package cache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Sternrassler/chroma-viewer/pkg/chroma"
)

func TestEntry_Expiry(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		expires     time.Time
		wantExpired bool
		wantMaxTTL  time.Duration
		wantMinTTL  time.Duration
	}{
		{"fresh default ttl", now.Add(DefaultTTL), false, DefaultTTL, DefaultTTL - time.Second},
		{"about to expire", now.Add(2 * time.Second), false, 2 * time.Second, time.Second},
		{"expired", now.Add(-time.Second), true, 0, 0},
		{"zero value", time.Time{}, true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{Result: &chroma.GetResult{}, Expires: tt.expires}

			if got := entry.IsExpired(); got != tt.wantExpired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.wantExpired)
			}
			if ttl := entry.TTL(); ttl < tt.wantMinTTL || ttl > tt.wantMaxTTL {
				t.Errorf("TTL() = %v, want between %v and %v", ttl, tt.wantMinTTL, tt.wantMaxTTL)
			}
		})
	}
}

func TestEntry_JSONShape(t *testing.T) {
	entry := Entry{
		Result: &chroma.GetResult{
			IDs:       []string{"a"},
			Documents: []string{"alpha"},
			Metadatas: []map[string]any{nil},
		},
		Expires:  time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC),
		CachedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"result", "expires", "cached_at"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("encoded entry missing %q", key)
		}
	}

	var result map[string]json.RawMessage
	if err := json.Unmarshal(raw["result"], &result); err != nil {
		t.Fatalf("Unmarshal result: %v", err)
	}
	if string(result["metadatas"]) != "[null]" {
		t.Errorf("metadatas = %s, want [null] for records without metadata", result["metadatas"])
	}
}
