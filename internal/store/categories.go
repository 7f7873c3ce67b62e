package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/idilsaglam/todosync/internal/model"
)

// CategoryStore owns the full category list and a name index over it.
// Todos refer to categories by name; the index is advisory and nothing
// cascades when a category goes away.
type CategoryStore struct {
	api API
	opt options

	mu        sync.Mutex
	items     []model.Category
	byName    map[string]model.Category
	issued    uint64
	committed uint64
}

func NewCategoryStore(api API, opts ...Option) *CategoryStore {
	return &CategoryStore{
		api:    api,
		opt:    buildOptions(opts),
		items:  []model.Category{},
		byName: map[string]model.Category{},
	}
}

// FetchAll replaces the list with the server's. Failures are logged and
// otherwise ignored: the previous list is returned. A response older than
// the last applied one is dropped the same way.
func (s *CategoryStore) FetchAll(ctx context.Context) []model.Category {
	s.mu.Lock()
	s.issued++
	gen := s.issued
	s.mu.Unlock()

	var list []model.Category
	if err := s.api.Get(ctx, "/categories", nil, &list); err != nil {
		s.opt.log.Debug("fetch categories failed", "err", err)
		return s.Items()
	}
	if list == nil {
		s.opt.log.Debug("fetch categories: null payload")
		return s.Items()
	}

	byName := make(map[string]model.Category, len(list))
	for _, c := range list {
		if _, dup := byName[c.Name]; !dup {
			byName[c.Name] = c
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen < s.committed && !s.opt.lastArrivalWins {
		s.opt.log.Debug("dropping stale category list", "gen", gen, "committed", s.committed)
		return append([]model.Category(nil), s.items...)
	}
	s.committed = max(s.committed, gen)
	s.items, s.byName = list, byName
	return append([]model.Category(nil), s.items...)
}

// Add creates a category named name and reloads the list.
func (s *CategoryStore) Add(ctx context.Context, name string) error {
	const op = "add category"
	name = strings.TrimSpace(name)
	if name == "" {
		return &MutationError{Op: op, Err: fmt.Errorf("%w: name is required", ErrInvalid)}
	}
	if err := s.api.Post(ctx, "/categories", map[string]string{"name": name}, nil); err != nil {
		s.opt.log.Warn("add category failed", "name", name, "err", err)
		return &MutationError{Op: op, Err: err}
	}
	s.FetchAll(ctx)
	return nil
}

// Remove deletes category id and reloads the list. Todos naming it keep
// their category text.
func (s *CategoryStore) Remove(ctx context.Context, id model.ID) error {
	const op = "remove category"
	if id.IsZero() {
		return &MutationError{Op: op, Err: fmt.Errorf("%w: missing id", ErrInvalid)}
	}
	if err := s.api.Delete(ctx, "/categories/"+url.PathEscape(id.String()), nil); err != nil {
		s.opt.log.Warn("remove category failed", "id", id, "err", err)
		return &MutationError{Op: op, Err: err}
	}
	s.FetchAll(ctx)
	return nil
}

func (s *CategoryStore) Items() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Category(nil), s.items...)
}

// Lookup finds a category by name.
func (s *CategoryStore) Lookup(name string) (model.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byName[name]
	return c, ok
}
