package schema

import (
	"log/slog"

	"github.com/roach88/orchestra/internal/ir"
	"github.com/roach88/orchestra/internal/store"
)

// StoreSpec is a store declaration compiled from CUE.
type StoreSpec struct {
	Identifier   string
	Expects      []string
	Dependencies []DependencySpec // declaration order
	Defaults     ir.IRObject      // pre hook: fields filled when absent
	Omit         []string         // post hook: fields removed from resolved entities
}

// DependencySpec is one dependency edge.
//
// Key is a dotted field path holding the referenced id or list of ids. An
// empty Key attaches the whole dependency collection.
type DependencySpec struct {
	Target string
	Key    string
	Attach string
}

// Build configures a *store.Store from s. Configuration problems are
// recorded on the store and reported by its Err method.
func (s StoreSpec) Build(opts ...store.Option) *store.Store {
	st := store.New(s.Identifier, opts...)
	if len(s.Expects) > 0 {
		st.Expects(s.Expects...)
	}
	for _, d := range s.Dependencies {
		var getter store.Getter
		if d.Key != "" {
			getter = store.Field(d.Key)
		}
		st.DependsOn(d.Target, getter, store.Attach(d.Attach))
	}
	if len(s.Defaults) > 0 {
		st.Pre(fillDefaults(s.Defaults))
	}
	if len(s.Omit) > 0 {
		st.Post(omitFields(s.Omit))
	}
	return st
}

// BuildAll builds every spec in order and returns the first store
// configuration error.
func BuildAll(specs []StoreSpec, logger *slog.Logger) ([]*store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	stores := make([]*store.Store, 0, len(specs))
	for _, spec := range specs {
		st := spec.Build(store.WithLogger(logger))
		if err := st.Err(); err != nil {
			return nil, err
		}
		stores = append(stores, st)
	}
	return stores, nil
}

func fillDefaults(defaults ir.IRObject) store.Hook {
	return func(e ir.IRObject) ir.IRObject {
		out := e
		for k, v := range defaults {
			if _, ok := e.Get(k); !ok {
				out = out.With(k, v)
			}
		}
		return out
	}
}

func omitFields(fields []string) store.Hook {
	return func(e ir.IRObject) ir.IRObject {
		out := e
		for _, f := range fields {
			if f == "id" {
				continue
			}
			out = out.Without(f)
		}
		return out
	}
}
