// Package apitest runs an in-memory implementation of the todo REST API on
// a fasthttp in-memory listener, for tests of everything that talks to it.
package apitest

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/idilsaglam/todosync/internal/model"
	"github.com/idilsaglam/todosync/internal/transport"
)

// URL is the base URL clients of a Server should use.
const URL = "http://api.test/api"

// Request is one request the server received, recorded before it is served.
type Request struct {
	Method string
	Path   string // relative to /api, e.g. "/todos/3"
	Query  url.Values
	Body   []byte
}

type failure struct {
	status int
	body   string
}

type Server struct {
	ln   *fasthttputil.InmemoryListener
	srv  *fasthttp.Server
	done chan struct{}

	mu         sync.Mutex
	todos      []model.Todo
	categories []model.Category
	seq        int
	clock      time.Time
	requests   []Request
	failures   map[string]failure
	delay      func(Request) time.Duration
}

// New starts a server and stops it when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		ln:         fasthttputil.NewInmemoryListener(),
		done:       make(chan struct{}),
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		categories: []model.Category{},
		failures:   map[string]failure{},
	}
	s.srv = &fasthttp.Server{Handler: s.handle}
	go func() {
		_ = s.srv.Serve(s.ln)
		close(s.done)
	}()
	t.Cleanup(s.close)
	return s
}

func (s *Server) close() {
	_ = s.ln.Close()
	_ = s.srv.Shutdown()
	<-s.done
}

// HTTPClient dials the in-memory listener whatever host is requested.
func (s *Server) HTTPClient() *fasthttp.Client {
	return &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) { return s.ln.Dial() },
	}
}

// Client is a transport client wired to this server.
func (s *Server) Client(opts ...transport.Option) *transport.Client {
	return transport.New(URL, append([]transport.Option{transport.WithHTTPClient(s.HTTPClient())}, opts...)...)
}

// Fail makes every "METHOD path" request answer with status and body until
// Heal is called. path is relative to /api and matched exactly.
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, body: body}
}

func (s *Server) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]failure{}
}

// SetDelay holds back the response to matching requests. The response
// reflects the server state when the request arrived.
func (s *Server) SetDelay(fn func(Request) time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = fn
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many "METHOD path" requests were received.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// SeedTodo stores t as if it had been created through the API.
func (s *Server) SeedTodo(t model.Todo) model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTodo(t)
}

func (s *Server) SeedCategory(name string) model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCategory(name)
}

// Todo returns the stored todo with id.
func (s *Server) Todo(id model.ID) (model.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.todoIndex(id)
	if i < 0 {
		return model.Todo{}, false
	}
	return s.todos[i], true
}

func (s *Server) Todos() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Todo(nil), s.todos...)
}

func (s *Server) Categories() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Category(nil), s.categories...)
}

func (s *Server) handle(rc *fasthttp.RequestCtx) {
	path := strings.TrimPrefix(string(rc.Path()), "/api")
	query, _ := url.ParseQuery(string(rc.QueryArgs().QueryString()))
	r := Request{
		Method: string(rc.Method()),
		Path:   path,
		Query:  query,
		Body:   append([]byte(nil), rc.PostBody()...),
	}

	s.mu.Lock()
	s.requests = append(s.requests, r)
	f, failing := s.failures[r.Method+" "+r.Path]
	delay := s.delay
	s.mu.Unlock()

	// the response is built now and delivered after the delay
	if delay != nil {
		if d := delay(r); d > 0 {
			defer time.Sleep(d)
		}
	}
	if failing {
		rc.SetStatusCode(f.status)
		rc.SetBodyString(f.body)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case parts[0] == "todos" && len(parts) == 1 && r.Method == fasthttp.MethodGet:
		s.listTodos(rc, query)
	case parts[0] == "todos" && len(parts) == 1 && r.Method == fasthttp.MethodPost:
		var in model.Todo
		if !decode(rc, r.Body, &in) {
			return
		}
		in.ID = ""
		writeJSON(rc, fasthttp.StatusOK, s.createTodo(in))
	case parts[0] == "todos" && len(parts) == 2 && r.Method == fasthttp.MethodPut:
		i := s.todoIndex(model.ID(parts[1]))
		if i < 0 {
			writeJSON(rc, fasthttp.StatusNotFound, map[string]string{"error": "Not found"})
			return
		}
		var in model.Todo
		if !decode(rc, r.Body, &in) {
			return
		}
		in.ID, in.CreatedAt = s.todos[i].ID, s.todos[i].CreatedAt
		in.UpdatedAt = s.tick()
		s.todos[i] = in
		writeJSON(rc, fasthttp.StatusOK, in)
	case parts[0] == "todos" && len(parts) == 2 && r.Method == fasthttp.MethodDelete:
		i := s.todoIndex(model.ID(parts[1]))
		if i < 0 {
			writeJSON(rc, fasthttp.StatusNotFound, map[string]string{"error": "Not found"})
			return
		}
		s.todos = append(s.todos[:i], s.todos[i+1:]...)
		writeJSON(rc, fasthttp.StatusOK, map[string]string{"message": "Deleted"})
	case parts[0] == "categories" && len(parts) == 1 && r.Method == fasthttp.MethodGet:
		writeJSON(rc, fasthttp.StatusOK, s.categories)
	case parts[0] == "categories" && len(parts) == 1 && r.Method == fasthttp.MethodPost:
		var in model.Category
		if !decode(rc, r.Body, &in) {
			return
		}
		writeJSON(rc, fasthttp.StatusOK, s.createCategory(in.Name))
	case parts[0] == "categories" && len(parts) == 2 && r.Method == fasthttp.MethodDelete:
		for i, c := range s.categories {
			if c.ID == model.ID(parts[1]) {
				s.categories = append(s.categories[:i], s.categories[i+1:]...)
				writeJSON(rc, fasthttp.StatusOK, map[string]string{"message": "Deleted"})
				return
			}
		}
		writeJSON(rc, fasthttp.StatusNotFound, map[string]string{"error": "Not found"})
	default:
		writeJSON(rc, fasthttp.StatusNotFound, map[string]string{"error": "no route"})
	}
}

// listTodos pages like the real API: title search is case-insensitive,
// pending items first, newest first.
func (s *Server) listTodos(rc *fasthttp.RequestCtx, q url.Values) {
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = 10
	}
	search := strings.ToLower(q.Get("search"))

	matched := []model.Todo{}
	for _, t := range s.todos {
		if search == "" || strings.Contains(strings.ToLower(t.Title), search) {
			matched = append(matched, t)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Completed != matched[j].Completed {
			return !matched[i].Completed
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	data := []model.Todo{}
	if off := (page - 1) * limit; off < len(matched) {
		data = matched[off:min(off+limit, len(matched))]
	}
	writeJSON(rc, fasthttp.StatusOK, map[string]any{
		"data":  data,
		"total": len(matched),
		"page":  page,
		"limit": limit,
	})
}

func (s *Server) createTodo(t model.Todo) model.Todo {
	s.seq++
	t.ID = model.ID(strconv.Itoa(s.seq))
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.Category == "" {
		t.Category = "General"
	}
	t.CreatedAt = s.tick()
	t.UpdatedAt = t.CreatedAt
	s.todos = append(s.todos, t)
	return t
}

func (s *Server) createCategory(name string) model.Category {
	s.seq++
	c := model.Category{ID: model.ID(strconv.Itoa(s.seq)), Name: name}
	s.categories = append(s.categories, c)
	return c
}

func (s *Server) todoIndex(id model.ID) int {
	for i, t := range s.todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func decode(rc *fasthttp.RequestCtx, body []byte, v any) bool {
	if err := json.Unmarshal(body, v); err != nil {
		writeJSON(rc, fasthttp.StatusBadRequest, map[string]string{"error": fmt.Sprintf("bad json: %v", err)})
		return false
	}
	return true
}

func writeJSON(rc *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		rc.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	rc.SetStatusCode(status)
	rc.SetContentType("application/json")
	rc.SetBody(b)
}
