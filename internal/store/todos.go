package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/idilsaglam/todosync/internal/model"
)

// Page is the result of one list fetch.
type Page struct {
	Items []model.Todo
	Total int
}

type listResponse struct {
	Data  *[]model.Todo `json:"data"`
	Total int           `json:"total"`
}

// TodoStore owns the current page of todos and its PageState.
type TodoStore struct {
	api API
	opt options

	mu        sync.Mutex
	items     []model.Todo
	page      model.PageState
	inflight  int
	issued    uint64 // generation of the newest fetch sent
	committed uint64 // generation of the newest fetch applied
}

// NewTodoStore returns an empty store fetching pageSize todos per page.
func NewTodoStore(api API, pageSize int, opts ...Option) *TodoStore {
	if pageSize < 1 {
		pageSize = 10
	}
	return &TodoStore{
		api:   api,
		opt:   buildOptions(opts),
		items: []model.Todo{},
		page:  model.PageState{Current: 1, PageSize: pageSize},
	}
}

// FetchPage loads one page of todos matching search and replaces the
// stored page on success. On failure the previous page is kept.
func (s *TodoStore) FetchPage(ctx context.Context, page int, search string) (Page, error) {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	s.issued++
	gen := s.issued
	s.inflight++
	size := s.page.PageSize
	s.mu.Unlock()

	q := url.Values{
		"page":   {strconv.Itoa(page)},
		"limit":  {strconv.Itoa(size)},
		"search": {search},
	}
	var body listResponse
	err := s.api.Get(ctx, "/todos", q, &body)
	if err == nil && body.Data == nil {
		err = errors.New("malformed payload: missing data")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	log := s.opt.log.With("page", page, "search", search, "gen", gen)
	if err != nil {
		log.Warn("fetch todos failed", "err", err)
		return Page{}, &RetrievalError{Op: "fetch todos", Err: err}
	}
	if gen < s.committed && !s.opt.lastArrivalWins {
		log.Debug("dropping stale todo page", "committed", s.committed)
		return Page{}, ErrSuperseded
	}

	s.committed = max(s.committed, gen)
	s.items = append([]model.Todo{}, (*body.Data)...)
	s.page = model.PageState{Current: page, PageSize: size, Total: body.Total}
	log.Debug("todo page applied", "items", len(s.items), "total", body.Total)
	return Page{Items: append([]model.Todo(nil), s.items...), Total: body.Total}, nil
}

// Save creates a todo, or updates todo id when isEdit is set. New todos are
// always sent with completed=false.
func (s *TodoStore) Save(ctx context.Context, v model.Values, isEdit bool, id model.ID) error {
	op := "create todo"
	if isEdit {
		op = "update todo"
	}
	v, err := normalize(v)
	if err != nil {
		return &MutationError{Op: op, Err: err}
	}

	if isEdit {
		if id.IsZero() {
			return &MutationError{Op: op, Err: fmt.Errorf("%w: missing id", ErrInvalid)}
		}
		err = s.api.Put(ctx, todoPath(id), updateBody{ID: id, Values: v}, nil)
	} else {
		v.Completed = false
		err = s.api.Post(ctx, "/todos", v, nil)
	}
	if err != nil {
		s.opt.log.Warn(op+" failed", "id", id, "err", err)
		return &MutationError{Op: op, Err: err}
	}
	return nil
}

// Toggle sets completed on record. The whole record is sent back, so any
// field that changed on the server since record was fetched is overwritten.
func (s *TodoStore) Toggle(ctx context.Context, record model.Todo, completed bool) error {
	const op = "toggle todo"
	if record.ID.IsZero() {
		return &MutationError{Op: op, Err: fmt.Errorf("%w: missing id", ErrInvalid)}
	}
	record.Completed = completed
	if err := s.api.Put(ctx, todoPath(record.ID), record, nil); err != nil {
		s.opt.log.Warn("toggle todo failed", "id", record.ID, "err", err)
		return &MutationError{Op: op, Err: err}
	}
	return nil
}

// Delete removes todo id on the server. The local page is left as is.
func (s *TodoStore) Delete(ctx context.Context, id model.ID) error {
	const op = "delete todo"
	if id.IsZero() {
		return &MutationError{Op: op, Err: fmt.Errorf("%w: missing id", ErrInvalid)}
	}
	if err := s.api.Delete(ctx, todoPath(id), nil); err != nil {
		s.opt.log.Warn("delete todo failed", "id", id, "err", err)
		return &MutationError{Op: op, Err: err}
	}
	return nil
}

// Items returns a copy of the current page.
func (s *TodoStore) Items() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Todo(nil), s.items...)
}

func (s *TodoStore) Pagination() model.PageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Loading reports whether a fetch is in flight.
func (s *TodoStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

type updateBody struct {
	ID model.ID `json:"id"`
	model.Values
}

func normalize(v model.Values) (model.Values, error) {
	v.Title = strings.TrimSpace(v.Title)
	v.Category = strings.TrimSpace(v.Category)
	v.Description = strings.TrimSpace(v.Description)
	if v.Title == "" {
		return v, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if v.Category == "" {
		return v, fmt.Errorf("%w: category is required", ErrInvalid)
	}
	p, ok := model.ParsePriority(string(v.Priority))
	if !ok {
		return v, fmt.Errorf("%w: unknown priority %q", ErrInvalid, v.Priority)
	}
	v.Priority = p
	return v, nil
}

func todoPath(id model.ID) string {
	return "/todos/" + url.PathEscape(id.String())
}
