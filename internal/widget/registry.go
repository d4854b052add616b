package widget

import (
	"context"

	"kejinlab/internal/metrics"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Registry 存活的评论区实例，容量满时淘汰最久未用的实例并释放其订阅
type Registry struct {
	cache *lru.Cache[string, *Section]
	store Store
	base  Options
}

// NewRegistry keeps at most size sections. base is copied into every new section.
func NewRegistry(size int, store Store, base Options) (*Registry, error) {
	cache, err := lru.NewWithEvict[string, *Section](size, func(_ string, s *Section) {
		s.Close()
		metrics.LiveSections.Dec()
	})
	if err != nil {
		return nil, err
	}
	return &Registry{cache: cache, store: store, base: base}, nil
}

// Open creates a section for pageID and loads its first snapshot.
func (r *Registry) Open(ctx context.Context, pageID string) *Section {
	opts := r.base
	opts.PageID = pageID
	s := NewSection(uuid.NewString(), r.store, opts)
	s.Refresh(ctx)

	r.cache.Add(s.ID(), s)
	metrics.LiveSections.Inc()
	return s
}

// Get returns a live section by instance id.
func (r *Registry) Get(id string) (*Section, bool) {
	s, ok := r.cache.Get(id)
	if !ok || s.Closed() {
		return nil, false
	}
	return s, true
}

// Remove closes and forgets a section.
func (r *Registry) Remove(id string) {
	r.cache.Remove(id)
}

// Len returns the number of live sections.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close closes every section.
func (r *Registry) Close() {
	r.cache.Purge()
}
