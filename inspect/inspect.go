// Package inspect serves the state of an injector over HTTP using the Chi
// router.
//
// The handler exposes the binding table, the dependency graph and the
// singleton cache statistics, and is meant to be mounted on a debug or admin
// router:
//
//	r := chi.NewRouter()
//	r.Mount("/debug/inject", inspect.Handler(in))
//
// Routes:
//
//	GET /bindings   bindings in registration order, as JSON
//	GET /graph.dot  dependency graph in Graphviz DOT format
//	GET /graph.txt  dependency graph as text
//	GET /stats      cache statistics and freeze state, as JSON
//
// Handle wraps controller methods so the controller is resolved from the
// injector on every request.
package inspect

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/junioryono/inject"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds the configuration for the inspection handler and Handle.
type Config struct {
	// ErrorHandler is called when a request cannot be served.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// Logger receives write failures. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Option configures the inspection handler.
type Option func(*Config)

// WithErrorHandler sets the error handler.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		Logger: zap.NewNop(),
	}
}

func newConfig(opts []Option) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// EdgeView is the JSON form of a dependency edge.
type EdgeView struct {
	Key         string `json:"key"`
	Indirection string `json:"indirection"`
}

// BindingView is the JSON form of a binding.
type BindingView struct {
	Key          string       `json:"key"`
	Type         string       `json:"type"`
	Qualifier    string       `json:"qualifier,omitempty"`
	Scope        inject.Scope `json:"scope"`
	Strategy     string       `json:"strategy"`
	Stateful     bool         `json:"stateful,omitempty"`
	Source       string       `json:"source,omitempty"`
	State        string       `json:"state,omitempty"`
	Dependencies []EdgeView   `json:"dependencies"`
}

// StatsView is the JSON form of the injector state.
type StatsView struct {
	ID       string                 `json:"id"`
	Frozen   bool                   `json:"frozen"`
	Bindings int                    `json:"bindings"`
	Warnings []string               `json:"warnings,omitempty"`
	Cache    inject.CacheStatistics `json:"cache"`
}

// Bindings returns the views of every explicit binding in registration order.
// State is reported for Singleton bindings only.
func Bindings(in *inject.Injector) []BindingView {
	keys := in.Keys()
	views := make([]BindingView, 0, len(keys))

	for _, key := range keys {
		b, ok := in.Binding(key)
		if !ok {
			continue
		}

		view := BindingView{
			Key:          key.String(),
			Type:         key.Type.String(),
			Scope:        b.Scope,
			Strategy:     b.Strategy.Kind().String(),
			Stateful:     b.Stateful,
			Source:       b.Source,
			Dependencies: []EdgeView{},
		}
		if key.Qualifier != nil {
			view.Qualifier = fmt.Sprint(key.Qualifier)
		}
		if b.Scope == inject.Singleton {
			view.State = in.EntryState(key).String()
		}

		for _, edge := range in.Dependencies(key) {
			view.Dependencies = append(view.Dependencies, EdgeView{
				Key:         edge.To.String(),
				Indirection: edge.Indirection.String(),
			})
		}

		views = append(views, view)
	}

	return views
}

// Stats returns the state view of the injector.
func Stats(in *inject.Injector) StatsView {
	view := StatsView{
		ID:       in.ID(),
		Frozen:   in.Frozen(),
		Bindings: len(in.Keys()),
		Cache:    in.CacheStats(),
	}
	for _, w := range in.Warnings() {
		view.Warnings = append(view.Warnings, w.Key.String()+" -> "+w.Dependency.String())
	}
	return view
}

// Handler returns a Chi router serving the state of in.
func Handler(in *inject.Injector, opts ...Option) http.Handler {
	cfg := newConfig(opts)

	r := chi.NewRouter()

	r.Get("/bindings", func(w http.ResponseWriter, req *http.Request) {
		cfg.writeJSON(w, req, Bindings(in))
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		cfg.writeJSON(w, req, Stats(in))
	})

	r.Get("/graph.dot", func(w http.ResponseWriter, req *http.Request) {
		var buf bytes.Buffer
		if err := in.WriteDOT(&buf); err != nil {
			cfg.ErrorHandler(w, req, err)
			return
		}
		cfg.write(w, "text/vnd.graphviz; charset=utf-8", buf.Bytes())
	})

	r.Get("/graph.txt", func(w http.ResponseWriter, req *http.Request) {
		var buf bytes.Buffer
		if err := in.WriteText(&buf); err != nil {
			cfg.ErrorHandler(w, req, err)
			return
		}
		cfg.write(w, "text/plain; charset=utf-8", buf.Bytes())
	})

	return r
}

func (c *Config) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.ErrorHandler(w, r, err)
		return
	}
	c.write(w, "application/json", data)
}

func (c *Config) write(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		c.Logger.Warn("failed to write response", zap.Error(err))
	}
}

// Handle wraps a controller method as an http.HandlerFunc. The controller is
// resolved from in on every request, so Unscoped controllers are built per
// request while their Singleton dependencies are shared.
//
// Example:
//
//	r.Get("/users/{id}", inspect.Handle(in, (*UserController).GetByID))
func Handle[T any](in *inject.Injector, method func(T, http.ResponseWriter, *http.Request), opts ...Option) http.HandlerFunc {
	cfg := newConfig(opts)

	return func(w http.ResponseWriter, r *http.Request) {
		controller, err := inject.ResolveContext[T](r.Context(), in)
		if err != nil {
			cfg.ErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}
