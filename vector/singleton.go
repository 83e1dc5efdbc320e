package vector

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	shared   atomic.Pointer[Store]
	sharedMu sync.Mutex
)

// SharedStore returns the process-wide store, building it on first call.
// When cfg disables the feature it fails with ErrNotAvailable before
// touching the filesystem. Construction runs at most once at a time; a
// failed attempt caches nothing, so the next call retries from scratch.
func SharedStore(cfg Config) (*Store, error) {
	if !cfg.Enabled {
		return nil, ErrNotAvailable
	}

	if s := shared.Load(); s != nil {
		return s, nil
	}

	sharedMu.Lock()
	defer sharedMu.Unlock()

	if s := shared.Load(); s != nil {
		return s, nil
	}

	if cfg.Embeddings == "" || cfg.Metadata == "" || cfg.Documents == "" {
		return nil, fmt.Errorf("%w: embeddings, metadata and documents paths must all be set", ErrConfig)
	}

	s, err := New(cfg, nil)
	if err != nil {
		return nil, err
	}

	shared.Store(s)
	return s, nil
}

// ResetSharedStore drops the process-wide store so the next SharedStore
// call rebuilds it. Intended for tests; nothing on the serving path
// calls this.
func ResetSharedStore() {
	sharedMu.Lock()
	shared.Store(nil)
	sharedMu.Unlock()
}
