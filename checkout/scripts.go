package checkout

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Script is a third-party script tag.
type Script struct {
	ID   string
	Src  string
	Name string
}

var (
	// TokenizerScript hosts the card fields widget.
	TokenizerScript = Script{
		ID:   "framesv2-script",
		Src:  "https://cdn.checkout.com/js/framesv2.min.js",
		Name: "Frames",
	}
	// WalletScript hosts the wallet payments client.
	WalletScript = Script{
		ID:   "google-pay-script",
		Src:  "https://pay.google.com/gp/p/js/pay.js",
		Name: "Google Pay",
	}
)

// ScriptFetcher inserts a script tag and waits for its load or error event.
type ScriptFetcher interface {
	Fetch(ctx context.Context, s Script) error
}

// ScriptRegistry loads each script at most once. Concurrent loads of the
// same script share one fetch, like listeners on an existing tag.
type ScriptRegistry struct {
	fetcher ScriptFetcher
	group   singleflight.Group

	mu     sync.Mutex
	loaded map[string]bool
}

// NewScriptRegistry creates a registry backed by fetcher.
func NewScriptRegistry(fetcher ScriptFetcher) *ScriptRegistry {
	return &ScriptRegistry{
		fetcher: fetcher,
		loaded:  make(map[string]bool),
	}
}

// MarkLoaded records a script that is already on the page.
func (r *ScriptRegistry) MarkLoaded(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded[id] = true
}

// Loaded reports whether the script finished loading.
func (r *ScriptRegistry) Loaded(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded[id]
}

// Load fetches s unless it is already loaded. A failed load is not cached;
// the next call tries again.
func (r *ScriptRegistry) Load(ctx context.Context, s Script) error {
	if r.Loaded(s.ID) {
		return nil
	}

	_, err, _ := r.group.Do(s.ID, func() (any, error) {
		if r.Loaded(s.ID) {
			return nil, nil
		}
		if err := r.fetcher.Fetch(ctx, s); err != nil {
			return nil, fmt.Errorf("Failed to load %s script: %w", s.Name, err)
		}
		r.MarkLoaded(s.ID)
		return nil, nil
	})
	return err
}
