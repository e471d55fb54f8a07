package cache

import (
	"fmt"
	"strings"
)

// KeyPrefix namespaces every key written by the viewer.
const KeyPrefix = "chroma-viewer"

// Key identifies one cached collection fetch.
type Key struct {
	// Store is the absolute store directory
	Store string

	// Collection is the collection name
	Collection string

	// Version is the store version the fetch was read at
	Version int64
}

// String generates a deterministic cache key string.
// Format: chroma-viewer:<store>:<collection>:v=<version>
//
// Example:
//
//	chroma-viewer:/data/chroma:notes:v=1718000000000000000
func (k Key) String() string {
	store := strings.TrimRight(k.Store, "/")
	if store == "" {
		store = "/"
	}
	return fmt.Sprintf("%s:%s:%s:v=%d", KeyPrefix, store, k.Collection, k.Version)
}
