// Package facade is the single entry point presentation code uses to read
// and change todos and categories.
//
// Every mutation reports success as a bool and changes nothing locally; to
// see its effect the caller fetches again, normally with Refresh so the
// same page stays on screen.
package facade

import (
	"context"
	"errors"
	"log/slog"

	"github.com/idilsaglam/todosync/internal/model"
	"github.com/idilsaglam/todosync/internal/store"
)

// Notices shown to the user.
const (
	NoticeSaved           = "saved"
	NoticeDeleted         = "deleted"
	NoticeCategoryAdded   = "category added"
	NoticeCategoryDeleted = "category deleted"
	NoticeUnreachable     = "could not reach server"
)

// Notifier receives short user-facing notices.
type Notifier interface {
	Success(msg string)
	Failure(msg string)
}

type discard struct{}

func (discard) Success(string) {}
func (discard) Failure(string) {}

// CategoryAction selects what Facade.CategoryAction does with its value.
type CategoryAction string

const (
	CategoryAdd    CategoryAction = "add"    // value is the new name
	CategoryDelete CategoryAction = "delete" // value is the category id
)

type Facade struct {
	todos  *store.TodoStore
	cats   *store.CategoryStore
	notify Notifier
	log    *slog.Logger
}

type Option func(*Facade)

func WithNotifier(n Notifier) Option {
	return func(f *Facade) { f.notify = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Facade) { f.log = l }
}

func New(todos *store.TodoStore, cats *store.CategoryStore, opts ...Option) *Facade {
	f := &Facade{
		todos:  todos,
		cats:   cats,
		notify: discard{},
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FetchTodos loads page of the todos matching search, then refreshes the
// categories. A failed load keeps the previous page and emits a notice.
func (f *Facade) FetchTodos(ctx context.Context, page int, search string) bool {
	_, err := f.todos.FetchPage(ctx, page, search)
	switch {
	case errors.Is(err, store.ErrSuperseded):
		// a newer fetch already owns the view
		return true
	case err != nil:
		f.notify.Failure(NoticeUnreachable)
		return false
	}
	f.cats.FetchAll(ctx)
	return true
}

// Refresh re-fetches the page currently shown. Pass the same search text
// the page was loaded with.
func (f *Facade) Refresh(ctx context.Context, search string) bool {
	return f.FetchTodos(ctx, f.todos.Pagination().Current, search)
}

func (f *Facade) SaveTodo(ctx context.Context, v model.Values, isEdit bool, id model.ID) bool {
	if err := f.todos.Save(ctx, v, isEdit, id); err != nil {
		f.log.Debug("save todo rejected", "err", err)
		return false
	}
	f.notify.Success(NoticeSaved)
	return true
}

func (f *Facade) ToggleStatus(ctx context.Context, record model.Todo, completed bool) bool {
	if err := f.todos.Toggle(ctx, record, completed); err != nil {
		f.log.Debug("toggle rejected", "err", err)
		return false
	}
	return true
}

func (f *Facade) DeleteTodo(ctx context.Context, id model.ID) bool {
	if err := f.todos.Delete(ctx, id); err != nil {
		f.log.Debug("delete todo rejected", "err", err)
		return false
	}
	f.notify.Success(NoticeDeleted)
	return true
}

// CategoryAction adds or deletes a category. The category list is
// reloaded before it returns true.
func (f *Facade) CategoryAction(ctx context.Context, action CategoryAction, value string) bool {
	var (
		err    error
		notice string
	)
	switch action {
	case CategoryAdd:
		err, notice = f.cats.Add(ctx, value), NoticeCategoryAdded
	case CategoryDelete:
		err, notice = f.cats.Remove(ctx, model.ID(value)), NoticeCategoryDeleted
	default:
		f.log.Debug("unknown category action", "action", action)
		return false
	}
	if err != nil {
		f.log.Debug("category action rejected", "action", action, "err", err)
		return false
	}
	f.notify.Success(notice)
	return true
}

func (f *Facade) Todos() []model.Todo { return f.todos.Items() }

func (f *Facade) Categories() []model.Category { return f.cats.Items() }

// Category looks a todo's category name up in the loaded list. Orphaned
// names are simply not found.
func (f *Facade) Category(name string) (model.Category, bool) { return f.cats.Lookup(name) }

func (f *Facade) Loading() bool { return f.todos.Loading() }

func (f *Facade) Pagination() model.PageState { return f.todos.Pagination() }
