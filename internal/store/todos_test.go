package store_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/todosync/internal/apitest"
	"github.com/idilsaglam/todosync/internal/model"
	"github.com/idilsaglam/todosync/internal/store"
	"github.com/idilsaglam/todosync/internal/transport"
)

func seedN(srv *apitest.Server, n int) {
	for i := 0; i < n; i++ {
		srv.SeedTodo(model.Todo{Title: "task", Category: "Work"})
	}
}

func TestFetchPageReplacesItemsAndPageState(t *testing.T) {
	srv := apitest.New(t)
	seedN(srv, 12)
	s := store.NewTodoStore(srv.Client(), 5)

	page, err := s.FetchPage(context.Background(), 3, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, model.PageState{Current: 3, PageSize: 5, Total: 12}, s.Pagination())
	assert.Equal(t, page.Items, s.Items())

	req := srv.Requests()[0]
	assert.Equal(t, "3", req.Query.Get("page"))
	assert.Equal(t, "5", req.Query.Get("limit"))
	assert.False(t, s.Loading())
}

func TestFetchPageClampsPage(t *testing.T) {
	srv := apitest.New(t)
	s := store.NewTodoStore(srv.Client(), 10)

	_, err := s.FetchPage(context.Background(), 0, "")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Pagination().Current)
}

func TestFetchPageFailureKeepsPriorState(t *testing.T) {
	srv := apitest.New(t)
	seedN(srv, 3)
	s := store.NewTodoStore(srv.Client(), 10)
	_, err := s.FetchPage(context.Background(), 1, "")
	require.NoError(t, err)
	before, beforePage := s.Items(), s.Pagination()

	cases := map[string]struct {
		status int
		body   string
		kind   transport.Kind
	}{
		"server error": {status: 500, body: `{"error":"db down"}`, kind: transport.KindStatus},
		"not json":     {status: 200, body: `<html>`, kind: transport.KindDecode},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv.Fail("GET", "/todos", tc.status, tc.body)
			defer srv.Heal()

			_, err := s.FetchPage(context.Background(), 2, "x")
			var re *store.RetrievalError
			require.ErrorAs(t, err, &re)
			assert.True(t, transport.IsKind(err, tc.kind))
			assert.Equal(t, before, s.Items())
			assert.Equal(t, beforePage, s.Pagination())
		})
	}

	t.Run("missing data", func(t *testing.T) {
		srv.Fail("GET", "/todos", 200, `{"total":99}`)
		defer srv.Heal()

		_, err := s.FetchPage(context.Background(), 1, "")
		var re *store.RetrievalError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, before, s.Items())
		assert.Equal(t, 3, s.Pagination().Total)
	})
}

func TestCreateForcesCompletedFalse(t *testing.T) {
	srv := apitest.New(t)
	s := store.NewTodoStore(srv.Client(), 10)

	err := s.Save(context.Background(), model.Values{
		Title:     "Buy milk",
		Category:  "errands",
		Priority:  model.PriorityLow,
		Completed: true,
	}, false, "")
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(reqs[0].Body, &sent))
	assert.Equal(t, false, sent["completed"])
	assert.NotContains(t, sent, "id")

	// Save reports the outcome only; the local page is untouched until a fetch.
	assert.Empty(t, s.Items())

	page, err := s.FetchPage(context.Background(), 1, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	got := page.Items[0]
	assert.Equal(t, "Buy milk", got.Title)
	assert.False(t, got.Completed)
	assert.Equal(t, model.PriorityLow, got.Priority)
	assert.False(t, got.ID.IsZero())
}

func TestSaveDefaultsPriority(t *testing.T) {
	srv := apitest.New(t)
	s := store.NewTodoStore(srv.Client(), 10)

	require.NoError(t, s.Save(context.Background(), model.Values{Title: " Call mum ", Category: "Personal"}, false, ""))
	var sent model.Values
	require.NoError(t, json.Unmarshal(srv.Requests()[0].Body, &sent))
	assert.Equal(t, model.PriorityMedium, sent.Priority)
	assert.Equal(t, "Call mum", sent.Title)
}

func TestSaveValidatesBeforeSending(t *testing.T) {
	srv := apitest.New(t)
	s := store.NewTodoStore(srv.Client(), 10)

	for name, v := range map[string]model.Values{
		"empty title":      {Title: "  ", Category: "Work"},
		"empty category":   {Title: "Write report"},
		"unknown priority": {Title: "Write report", Category: "Work", Priority: "urgent"},
	} {
		t.Run(name, func(t *testing.T) {
			err := s.Save(context.Background(), v, false, "")
			var me *store.MutationError
			require.ErrorAs(t, err, &me)
			assert.ErrorIs(t, err, store.ErrInvalid)
		})
	}

	err := s.Save(context.Background(), model.Values{Title: "a", Category: "b"}, true, "")
	assert.ErrorIs(t, err, store.ErrInvalid)

	assert.Empty(t, srv.Requests())
}

func TestEditSendsFullFieldSet(t *testing.T) {
	srv := apitest.New(t)
	todo := srv.SeedTodo(model.Todo{Title: "Draft", Category: "Work", Priority: model.PriorityLow})
	s := store.NewTodoStore(srv.Client(), 10)

	err := s.Save(context.Background(), model.Values{
		Title:       "Final",
		Description: "send to Ana",
		Category:    "Work",
		Priority:    model.PriorityHigh,
		Completed:   true,
	}, true, todo.ID)
	require.NoError(t, err)

	req := srv.Requests()[0]
	assert.Equal(t, "PUT", req.Method)
	assert.Equal(t, "/todos/"+todo.ID.String(), req.Path)
	assert.JSONEq(t, `{"id":`+todo.ID.String()+`,"title":"Final","description":"send to Ana","category":"Work","priority":"high","completed":true}`, string(req.Body))

	got, _ := srv.Todo(todo.ID)
	assert.Equal(t, "Final", got.Title)
	assert.True(t, got.Completed)
}

func TestSaveFailureIsMutationError(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail("POST", "/todos", 400, `{"error":"bad"}`)
	s := store.NewTodoStore(srv.Client(), 10)

	err := s.Save(context.Background(), model.Values{Title: "x", Category: "y"}, false, "")
	var me *store.MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 400, transport.StatusCode(err))
}

func TestToggleRoundTrip(t *testing.T) {
	srv := apitest.New(t)
	seedN(srv, 2)
	s := store.NewTodoStore(srv.Client(), 10)
	page, err := s.FetchPage(context.Background(), 1, "")
	require.NoError(t, err)
	record := page.Items[1]

	require.NoError(t, s.Toggle(context.Background(), record, true))

	page, err = s.FetchPage(context.Background(), 1, "")
	require.NoError(t, err)
	var found bool
	for _, it := range page.Items {
		if it.ID == record.ID {
			found = true
			assert.True(t, it.Completed)
		}
	}
	assert.True(t, found)
}

func TestToggleSendsWholeRecord(t *testing.T) {
	srv := apitest.New(t)
	todo := srv.SeedTodo(model.Todo{Title: "Old title", Category: "Work"})
	s := store.NewTodoStore(srv.Client(), 10)
	page, err := s.FetchPage(context.Background(), 1, "")
	require.NoError(t, err)
	stale := page.Items[0]

	// someone else renames it
	require.NoError(t, s.Save(context.Background(), model.Values{Title: "New title", Category: "Work"}, true, todo.ID))

	require.NoError(t, s.Toggle(context.Background(), stale, true))
	got, _ := srv.Todo(todo.ID)
	assert.True(t, got.Completed)
	assert.Equal(t, "Old title", got.Title, "toggle writes back the cached record")
}

func TestToggleRequiresID(t *testing.T) {
	srv := apitest.New(t)
	s := store.NewTodoStore(srv.Client(), 10)
	assert.ErrorIs(t, s.Toggle(context.Background(), model.Todo{Title: "x"}, true), store.ErrInvalid)
	assert.Empty(t, srv.Requests())
}

func TestDeleteDoesNotTouchLocalPage(t *testing.T) {
	srv := apitest.New(t)
	todo := srv.SeedTodo(model.Todo{Title: "gone soon", Category: "Work"})
	s := store.NewTodoStore(srv.Client(), 10)
	_, err := s.FetchPage(context.Background(), 1, "")
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), todo.ID))
	assert.Len(t, s.Items(), 1)

	_, err = s.FetchPage(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Empty(t, s.Items())

	err = s.Delete(context.Background(), todo.ID)
	var me *store.MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 404, transport.StatusCode(err))
}

func TestSearchScenario(t *testing.T) {
	srv := apitest.New(t)
	s := store.NewTodoStore(srv.Client(), 10)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, model.Values{Title: "Buy milk", Category: "errands", Priority: model.PriorityLow}, false, ""))
	require.NoError(t, s.Save(ctx, model.Values{Title: "Walk dog", Category: "errands"}, false, ""))
	require.NoError(t, s.Save(ctx, model.Values{Title: "Oat MILK for coffee", Category: "errands"}, false, ""))

	page, err := s.FetchPage(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	page, err = s.FetchPage(ctx, 1, "milk")
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	for _, it := range page.Items {
		assert.Contains(t, []string{"Buy milk", "Oat MILK for coffee"}, it.Title)
	}
	assert.Equal(t, 2, s.Pagination().Total)
}

func TestLoadingOnlyDuringFetch(t *testing.T) {
	srv := apitest.New(t)
	srv.SetDelay(func(r apitest.Request) time.Duration { return 100 * time.Millisecond })
	s := store.NewTodoStore(srv.Client(), 10)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.FetchPage(context.Background(), 1, "")
	}()
	require.Eventually(t, s.Loading, time.Second, 5*time.Millisecond)
	<-done
	assert.False(t, s.Loading())

	go func() { _ = s.Delete(context.Background(), "1") }()
	require.Eventually(t, func() bool { return srv.Count("DELETE", "/todos/1") == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, s.Loading())
}

// overlappingFetches starts a slow "slow" search, then a fast "fast" search
// that completes first. beforeFast, if set, runs once the slow request is
// on the server.
func overlappingFetches(t *testing.T, s *store.TodoStore, srv *apitest.Server, beforeFast func()) (slowErr, fastErr error) {
	t.Helper()
	srv.SeedTodo(model.Todo{Title: "slow result", Category: "Work"})
	srv.SeedTodo(model.Todo{Title: "fast result", Category: "Work"})
	srv.SetDelay(func(r apitest.Request) time.Duration {
		if r.Query.Get("search") == "slow" {
			return 150 * time.Millisecond
		}
		return 0
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = s.FetchPage(context.Background(), 1, "slow")
	}()
	require.Eventually(t, func() bool { return srv.Count("GET", "/todos") == 1 }, time.Second, 2*time.Millisecond)
	if beforeFast != nil {
		beforeFast()
	}

	_, fastErr = s.FetchPage(context.Background(), 1, "fast")
	wg.Wait()
	return slowErr, fastErr
}

func TestOverlappingFetchesDropStaleResponse(t *testing.T) {
	srv := apitest.New(t)
	s := store.NewTodoStore(srv.Client(), 10)

	slowErr, fastErr := overlappingFetches(t, s, srv, nil)
	require.NoError(t, fastErr)
	assert.ErrorIs(t, slowErr, store.ErrSuperseded)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "fast result", items[0].Title)
	assert.False(t, s.Loading())
}

func TestOverlappingFetchesLastArrivalWins(t *testing.T) {
	srv := apitest.New(t)
	s := store.NewTodoStore(srv.Client(), 10, store.WithLastArrivalWins())

	slowErr, fastErr := overlappingFetches(t, s, srv, nil)
	require.NoError(t, fastErr)
	require.NoError(t, slowErr)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "slow result", items[0].Title)
}

func TestOverlappingFetchesNewerFailureKeepsOlder(t *testing.T) {
	srv := apitest.New(t)
	s := store.NewTodoStore(srv.Client(), 10)

	slowErr, fastErr := overlappingFetches(t, s, srv, func() {
		srv.Fail("GET", "/todos", 500, "")
	})
	var re *store.RetrievalError
	require.ErrorAs(t, fastErr, &re)
	require.NoError(t, slowErr)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "slow result", items[0].Title)
	assert.False(t, s.Loading())
}
