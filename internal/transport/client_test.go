package transport

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newInMemoryFastHTTP(t *testing.T, handler fasthttp.RequestHandler) *fasthttp.Client {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}

	done := make(chan struct{})
	go func() {
		_ = srv.Serve(ln)
		close(done)
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		_ = srv.Shutdown()
		<-done
	})

	return &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
	}
}

func TestGetDecodesJSONAndSendsQuery(t *testing.T) {
	var gotPath, gotPage, gotSearch, gotReqID string
	hc := newInMemoryFastHTTP(t, func(rc *fasthttp.RequestCtx) {
		gotPath = string(rc.Path())
		gotPage = string(rc.QueryArgs().Peek("page"))
		gotSearch = string(rc.QueryArgs().Peek("search"))
		gotReqID = string(rc.Request.Header.Peek("X-Request-ID"))
		rc.SetContentType("application/json")
		rc.SetBodyString(`{"data":[{"id":1}],"total":1}`)
	})
	c := New("http://api.test/api/", WithHTTPClient(hc))

	var out struct {
		Total int `json:"total"`
	}
	err := c.Get(context.Background(), "/todos", url.Values{"page": {"2"}, "search": {"buy milk"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, "/api/todos", gotPath)
	assert.Equal(t, "2", gotPage)
	assert.Equal(t, "buy milk", gotSearch)
	assert.Len(t, gotReqID, 36)
}

func TestPostSendsJSONBody(t *testing.T) {
	var gotBody, gotType, gotMethod string
	hc := newInMemoryFastHTTP(t, func(rc *fasthttp.RequestCtx) {
		gotMethod = string(rc.Method())
		gotType = string(rc.Request.Header.ContentType())
		gotBody = string(rc.PostBody())
		rc.SetBodyString(`{"id":3,"name":"errands"}`)
	})
	c := New("http://api.test/api", WithHTTPClient(hc))

	require.NoError(t, c.Post(context.Background(), "/categories", map[string]string{"name": "errands"}, nil))
	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"name":"errands"}`, gotBody)
}

func TestStatusErrorsAreClassified(t *testing.T) {
	hc := newInMemoryFastHTTP(t, func(rc *fasthttp.RequestCtx) {
		rc.SetStatusCode(fasthttp.StatusNotFound)
		rc.SetBodyString(`{"error":"Not found"}`)
	})
	c := New("http://api.test/api", WithHTTPClient(hc))

	err := c.Delete(context.Background(), "/todos/9", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindStatus))
	assert.Equal(t, 404, StatusCode(err))
	assert.Contains(t, err.Error(), "Not found")
	assert.Contains(t, err.Error(), "DELETE /todos/9")
}

func TestMalformedPayloadIsDecodeError(t *testing.T) {
	hc := newInMemoryFastHTTP(t, func(rc *fasthttp.RequestCtx) {
		rc.SetBodyString(`<html>oops</html>`)
	})
	c := New("http://api.test/api", WithHTTPClient(hc))

	var out map[string]any
	err := c.Get(context.Background(), "/categories", nil, &out)
	assert.True(t, IsKind(err, KindDecode))
	assert.Equal(t, 200, StatusCode(err))
}

func TestNetworkErrors(t *testing.T) {
	hc := &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) { return nil, errors.New("connection refused") },
	}
	c := New("http://api.test/api", WithHTTPClient(hc))

	err := c.Put(context.Background(), "/todos/1", map[string]bool{"completed": true}, nil)
	assert.True(t, IsKind(err, KindNetwork))
	assert.Equal(t, 0, StatusCode(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.Get(ctx, "/todos", nil, nil)
	assert.True(t, IsKind(err, KindNetwork))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTimeout(t *testing.T) {
	hc := newInMemoryFastHTTP(t, func(rc *fasthttp.RequestCtx) {
		time.Sleep(200 * time.Millisecond)
	})
	c := New("http://api.test/api", WithHTTPClient(hc), WithTimeout(20*time.Millisecond))

	err := c.Get(context.Background(), "/todos", nil, nil)
	assert.True(t, IsKind(err, KindNetwork))
}

func TestMetrics(t *testing.T) {
	hc := newInMemoryFastHTTP(t, func(rc *fasthttp.RequestCtx) {
		if string(rc.Method()) == "DELETE" {
			rc.SetStatusCode(fasthttp.StatusInternalServerError)
			return
		}
		rc.SetBodyString(`[]`)
	})
	m := NewMetrics(prometheus.NewRegistry())
	c := New("http://api.test/api", WithHTTPClient(hc), WithMetrics(m))

	require.NoError(t, c.Get(context.Background(), "/categories", nil, nil))
	require.Error(t, c.Delete(context.Background(), "/categories/4", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "categories", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("DELETE", "categories", "status")))
}

func TestResource(t *testing.T) {
	assert.Equal(t, "todos", resource("/todos/17"))
	assert.Equal(t, "categories", resource("/categories"))
	assert.Equal(t, "root", resource("/"))
}
