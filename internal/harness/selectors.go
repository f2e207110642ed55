package harness

import (
	"fmt"
	"sort"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/roach88/orchestra/internal/ir"
)

// selectorEnv is the expression environment: the entity under test is bound
// to `entity` as plain Go values.
func selectorEnv(e ir.IRObject) map[string]any {
	return map[string]any{"entity": ir.ToGo(e)}
}

func compileExpr(expression string, asBool bool) (*exprvm.Program, error) {
	options := []exprlang.Option{
		exprlang.Env(map[string]any{"entity": map[string]any{}}),
		exprlang.AllowUndefinedVariables(),
	}
	if asBool {
		options = append(options, exprlang.AsBool())
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	return program, nil
}

// selectorErrors keeps the first runtime error raised inside a reducer,
// where errors cannot be returned.
type selectorErrors struct {
	err error
}

func (s *selectorErrors) record(err error) {
	if s.err == nil {
		s.err = err
	}
}

// take returns the recorded error and resets it.
func (s *selectorErrors) take() error {
	err := s.err
	s.err = nil
	return err
}

// wherePredicate compiles a boolean expression over `entity`. An empty
// expression matches everything. Evaluation errors count as no match.
func wherePredicate(expression string, errs *selectorErrors) (func(ir.IRObject) bool, error) {
	if expression == "" {
		return func(ir.IRObject) bool { return true }, nil
	}
	program, err := compileExpr(expression, true)
	if err != nil {
		return nil, err
	}
	return func(e ir.IRObject) bool {
		out, err := exprlang.Run(program, selectorEnv(e))
		if err != nil {
			errs.record(fmt.Errorf("where %q: %w", expression, err))
			return false
		}
		b, _ := out.(bool)
		return b
	}, nil
}

// setTransform compiles field assignments. Every expression sees the
// entity as it was before the update. Entities not matching where are
// returned unchanged.
func setTransform(set map[string]string, where func(ir.IRObject) bool, errs *selectorErrors) (func(ir.IRObject) ir.IRObject, error) {
	fields := make([]string, 0, len(set))
	for field := range set {
		if field == "id" {
			return nil, fmt.Errorf("set: id cannot be updated")
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	programs := make(map[string]*exprvm.Program, len(set))
	for _, field := range fields {
		program, err := compileExpr(set[field], false)
		if err != nil {
			return nil, fmt.Errorf("set.%s: %w", field, err)
		}
		programs[field] = program
	}

	return func(e ir.IRObject) ir.IRObject {
		if !where(e) {
			return e
		}
		env := selectorEnv(e)
		out := e
		for _, field := range fields {
			raw, err := exprlang.Run(programs[field], env)
			if err != nil {
				errs.record(fmt.Errorf("set.%s %q: %w", field, set[field], err))
				return e
			}
			val, err := ir.FromGo(raw)
			if err != nil {
				errs.record(fmt.Errorf("set.%s %q: %w", field, set[field], err))
				return e
			}
			out = out.With(field, val)
		}
		return out
	}, nil
}
