package sim

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// Compiled transform programs are cached and reused across runs.
var (
	transformMu    sync.RWMutex
	transformCache = make(map[string]*vm.Program)
)

// evalTransform evaluates a processing agent's "transform" expression with
// the incoming message bound as the "input" variable. Non-string results
// are stringified.
func evalTransform(expression, input string) (string, error) {
	prg, err := getOrCompile(expression)
	if err != nil {
		return "", err
	}

	out, err := vm.Run(prg, map[string]any{"input": input})
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeExecution,
			"transform evaluation failed for %q: %s", expression, err.Error()).WithCause(err)
	}

	if s, ok := out.(string); ok {
		return s, nil
	}
	return fmt.Sprint(out), nil
}

// getOrCompile returns a cached compiled program or compiles and caches a new one.
func getOrCompile(expression string) (*vm.Program, error) {
	transformMu.RLock()
	if prg, ok := transformCache[expression]; ok {
		transformMu.RUnlock()
		return prg, nil
	}
	transformMu.RUnlock()

	transformMu.Lock()
	defer transformMu.Unlock()

	// Double-check after acquiring write lock.
	if prg, ok := transformCache[expression]; ok {
		return prg, nil
	}

	prg, err := expr.Compile(expression, expr.Env(map[string]any{"input": ""}))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"invalid transform expression %q: %s", expression, err.Error()).WithCause(err)
	}
	transformCache[expression] = prg
	return prg, nil
}
