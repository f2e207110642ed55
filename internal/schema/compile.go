package schema

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/orchestra/internal/ir"
)

// CompileStore parses a CUE value into a StoreSpec.
//
// The CUE value should be the store struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`store: posts: { dependencies: users: { key: "userId", attach: "user" } }`)
//	spec, err := CompileStore(v.LookupPath(cue.ParsePath("store.posts")))
func CompileStore(v cue.Value) (*StoreSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: "store", Message: "store must be a struct", Pos: v.Pos()}
	}

	spec := &StoreSpec{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Identifier = unquote(labels[len(labels)-1].String())
	}
	if spec.Identifier == "" {
		return nil, &CompileError{Field: "identifier", Message: "store identifier must be non-empty", Pos: v.Pos()}
	}

	var err error
	if spec.Expects, err = parseStrings(v, "expects"); err != nil {
		return nil, err
	}
	if spec.Omit, err = parseStrings(v, "omit"); err != nil {
		return nil, err
	}
	if spec.Dependencies, err = parseDependencies(v); err != nil {
		return nil, err
	}

	defaultsVal := v.LookupPath(cue.ParsePath("defaults"))
	if defaultsVal.Exists() {
		val, err := toIR(defaultsVal)
		if err != nil {
			return nil, err
		}
		obj, ok := val.(ir.IRObject)
		if !ok {
			return nil, &CompileError{Field: "defaults", Message: "defaults must be a struct", Pos: defaultsVal.Pos()}
		}
		if _, hasID := obj["id"]; hasID {
			return nil, &CompileError{Field: "defaults", Message: "defaults cannot set id", Pos: defaultsVal.Pos()}
		}
		spec.Defaults = obj
	}

	return spec, nil
}

// parseDependencies extracts dependency edges in declaration order.
func parseDependencies(v cue.Value) ([]DependencySpec, error) {
	var deps []DependencySpec

	depsVal := v.LookupPath(cue.ParsePath("dependencies"))
	if !depsVal.Exists() {
		return deps, nil // dependencies are optional
	}

	iter, err := depsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		target := iter.Label()
		edgeVal := iter.Value()
		field := "dependencies." + target

		dep := DependencySpec{Target: target}

		keyVal := edgeVal.LookupPath(cue.ParsePath("key"))
		if keyVal.Exists() {
			key, err := keyVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			if key == "" || strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") || strings.Contains(key, "..") {
				return nil, &CompileError{
					Field:   field + ".key",
					Message: fmt.Sprintf("invalid field path %q", key),
					Pos:     keyVal.Pos(),
				}
			}
			dep.Key = key
		}

		// attach is required: every edge needs a setter
		attachVal := edgeVal.LookupPath(cue.ParsePath("attach"))
		if !attachVal.Exists() {
			return nil, &CompileError{
				Field:   field + ".attach",
				Message: "attach field is required",
				Pos:     edgeVal.Pos(),
			}
		}
		attach, err := attachVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if attach == "" || attach == "id" {
			return nil, &CompileError{
				Field:   field + ".attach",
				Message: fmt.Sprintf("cannot attach to %q", attach),
				Pos:     attachVal.Pos(),
			}
		}
		dep.Attach = attach

		deps = append(deps, dep)
	}

	return deps, nil
}

func parseStrings(v cue.Value, name string) ([]string, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return nil, nil
	}
	iter, err := val.List()
	if err != nil {
		return nil, &CompileError{Field: name, Message: "must be a list of strings", Pos: val.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// toIR converts a concrete CUE value to an IR value.
// Floats are forbidden.
func toIR(v cue.Value) (ir.IRValue, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for iter.Next() {
			elem, err := toIR(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			elem, err := toIR(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "type",
			Message: "float values are forbidden, use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// unquote strips the quotes CUE keeps on labels that are not identifiers,
// such as "post-tags".
func unquote(label string) string {
	if len(label) >= 2 && label[0] == '"' && label[len(label)-1] == '"' {
		return label[1 : len(label)-1]
	}
	return label
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
