package inspect

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/inject"
)

type testLogger struct {
	Prefix string
}

type testService struct {
	Logger *testLogger
}

func newTestLogger() *testLogger {
	return &testLogger{Prefix: "test"}
}

func newTestService(logger *testLogger) *testService {
	return &testService{Logger: logger}
}

type testController struct {
	Service *testService
}

func newTestController(service *testService) *testController {
	return &testController{Service: service}
}

func (c *testController) GetPrefix(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(c.Service.Logger.Prefix))
}

func newInjector(t *testing.T) *inject.Injector {
	t.Helper()

	in := inject.New()
	require.NoError(t, in.Provide(newTestLogger, inject.WithScope(inject.Singleton)))
	require.NoError(t, in.Provide(newTestService))
	require.NoError(t, in.Provide(newTestController))
	require.NoError(t, in.Freeze())
	return in
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler(t *testing.T) {
	t.Run("serves bindings as JSON", func(t *testing.T) {
		in := newInjector(t)
		_, err := inject.Resolve[*testService](in)
		require.NoError(t, err)

		rec := get(t, Handler(in), "/bindings")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var views []BindingView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
		require.Len(t, views, 3)

		assert.Equal(t, "*inspect.testLogger", views[0].Key)
		assert.Equal(t, inject.Singleton, views[0].Scope)
		assert.Equal(t, "Constructor", views[0].Strategy)
		assert.Equal(t, "Completed", views[0].State)
		assert.Empty(t, views[0].Dependencies)

		assert.Equal(t, inject.Unscoped, views[1].Scope)
		assert.Empty(t, views[1].State)
		require.Len(t, views[1].Dependencies, 1)
		assert.Equal(t, "*inspect.testLogger", views[1].Dependencies[0].Key)
		assert.Equal(t, "Direct", views[1].Dependencies[0].Indirection)
	})

	t.Run("reports qualifiers", func(t *testing.T) {
		in := inject.New()
		require.NoError(t, in.BindInstance(inject.KeyOf[string](inject.Named("env")), "prod"))

		views := Bindings(in)

		require.Len(t, views, 1)
		assert.Equal(t, "env", views[0].Qualifier)
		assert.Equal(t, "Instance", views[0].Strategy)
		assert.Equal(t, inject.Singleton, views[0].Scope)
	})

	t.Run("serves stats", func(t *testing.T) {
		in := newInjector(t)
		for range 3 {
			_, err := inject.Resolve[*testService](in)
			require.NoError(t, err)
		}

		rec := get(t, Handler(in), "/stats")

		assert.Equal(t, http.StatusOK, rec.Code)

		var stats StatsView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, in.ID(), stats.ID)
		assert.True(t, stats.Frozen)
		assert.Equal(t, 3, stats.Bindings)
		assert.Equal(t, int64(1), stats.Cache.Creations)
		assert.Equal(t, 1, stats.Cache.Entries)
	})

	t.Run("serves the graph in DOT format", func(t *testing.T) {
		rec := get(t, Handler(newInjector(t)), "/graph.dot")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "digraph dependencies {"))
		assert.Contains(t, rec.Body.String(), "->")
	})

	t.Run("serves the graph as text", func(t *testing.T) {
		rec := get(t, Handler(newInjector(t)), "/graph.txt")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Total nodes: 3")
		assert.Contains(t, rec.Body.String(), "Problems: none")
	})

	t.Run("mounts on a chi router", func(t *testing.T) {
		r := chi.NewRouter()
		r.Mount("/debug/inject", Handler(newInjector(t)))

		rec := get(t, r, "/debug/inject/bindings")
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = get(t, r, "/debug/inject/unknown")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandle(t *testing.T) {
	t.Run("resolves controller and calls method", func(t *testing.T) {
		in := newInjector(t)

		r := chi.NewRouter()
		r.Get("/prefix", Handle(in, (*testController).GetPrefix))

		rec := get(t, r, "/prefix")

		assert.Equal(t, http.StatusOK, rec.Code)
		body, _ := io.ReadAll(rec.Body)
		assert.Equal(t, "test", string(body))
	})

	t.Run("calls error handler on resolution failure", func(t *testing.T) {
		var handled error

		handler := Handle(inject.New(), (*testController).GetPrefix,
			WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				handled = err
				w.WriteHeader(http.StatusServiceUnavailable)
			}),
		)

		rec := get(t, handler, "/prefix")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.True(t, inject.IsUnsatisfied(handled))
	})

	t.Run("default error handler returns 500", func(t *testing.T) {
		rec := get(t, Handle(inject.New(), (*testController).GetPrefix), "/prefix")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("propagates construction errors", func(t *testing.T) {
		in := inject.New()
		require.NoError(t, in.Provide(func() (*testController, error) {
			return nil, errors.New("boom")
		}))

		var handled error
		handler := Handle(in, (*testController).GetPrefix,
			WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				handled = err
				w.WriteHeader(http.StatusBadGateway)
			}),
		)

		rec := get(t, handler, "/prefix")

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.ErrorIs(t, handled, inject.ErrConstruction)
	})
}
