// Package revocation implements the Revocation List component (C3): an
// in-memory set of revoked serial numbers, safe for concurrent lookups
// against a single writer that replaces one distribution point's
// contribution at a time.
package revocation

import (
	"encoding/hex"
	"sync"
	"time"
)

// List is the only mutable shared state in the crypto core. Per
// spec.md §5, it is single-writer (the CRL updater's timer thread),
// many-reader (caller threads verifying certificates), guarded by a
// reader-writer lock.
type List struct {
	mu      sync.RWMutex
	byURL   map[string]map[string]struct{} // url -> set of hex serials
	updated map[string]time.Time           // url -> thisUpdate
}

// New returns an empty revocation list.
func New() *List {
	return &List{
		byURL:   make(map[string]map[string]struct{}),
		updated: make(map[string]time.Time),
	}
}

// ContainsSerial reports whether serial has been merged from any known
// distribution point.
func (l *List) ContainsSerial(serial []byte) bool {
	key := hex.EncodeToString(serial)
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, serials := range l.byURL {
		if _, ok := serials[key]; ok {
			return true
		}
	}
	return false
}

// ReplaceFromURL atomically swaps the set of revoked serials attributed
// to url. Serials contributed by other URLs are left untouched.
func (l *List) ReplaceFromURL(url string, serials [][]byte, thisUpdate time.Time) {
	set := make(map[string]struct{}, len(serials))
	for _, s := range serials {
		set[hex.EncodeToString(s)] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.byURL[url] = set
	l.updated[url] = thisUpdate
}

// ContainsAnyURL reports whether any distribution point has ever been
// merged into the list.
func (l *List) ContainsAnyURL() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byURL) > 0
}

// LastUpdate returns the thisUpdate timestamp most recently merged for
// url, and whether url has been merged at all.
func (l *List) LastUpdate(url string) (time.Time, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.updated[url]
	return t, ok
}

// Size returns the total number of distinct (url, serial) entries
// currently held, for diagnostics.
func (l *List) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, set := range l.byURL {
		n += len(set)
	}
	return n
}
