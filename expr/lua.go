// Package expr evaluates the function expressions of the plotter. Expressions
// are Lua expressions evaluated in a sandboxed state that has only the base
// and math libraries; the math functions are also available as globals, so
// "sin(x)", "x^2 - 3*x" and "exp(-abs(x))" all work as written.
package expr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

type Lua struct {
	mu      sync.Mutex
	state   *lua.LState
	cache   map[string]*lua.LFunction
	timeout time.Duration
}

// DefaultTimeout limits how long a single evaluation may run.
const DefaultTimeout = 100 * time.Millisecond

const maxCachedExpressions = 64

var ErrNotANumber = errors.New("expression did not evaluate to a number")

// NewLua creates an evaluator. Close it when done.
func NewLua() *Lua {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module", "collectgarbage", "print"} {
		L.SetGlobal(name, lua.LNil)
	}
	if mathLib, ok := L.GetGlobal("math").(*lua.LTable); ok {
		mathLib.ForEach(func(k, v lua.LValue) {
			L.SetGlobal(k.String(), v)
		})
	}
	L.SetGlobal("e", lua.LNumber(math.E))
	L.SetGlobal("log10", L.NewFunction(unary(math.Log10)))
	L.SetGlobal("log2", L.NewFunction(unary(math.Log2)))
	L.SetGlobal("cbrt", L.NewFunction(unary(math.Cbrt)))
	L.SetGlobal("sign", L.NewFunction(unary(sign)))
	L.SetGlobal("round", L.NewFunction(unary(math.Round)))
	return &Lua{state: L, cache: map[string]*lua.LFunction{}, timeout: DefaultTimeout}
}

// SetTimeout changes the per-evaluation time limit. Zero disables it.
func (l *Lua) SetTimeout(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timeout = d
}

// Compile checks that the expression parses, without evaluating it.
func (l *Lua) Compile(expression string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.compile(expression)
	return err
}

// Evaluate evaluates expression with the global x bound to the given value.
func (l *Lua) Evaluate(expression string, x float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn, err := l.compile(expression)
	if err != nil {
		return 0, err
	}
	if l.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		l.state.SetContext(ctx)
		defer l.state.RemoveContext()
	}
	top := l.state.GetTop()
	l.state.SetGlobal("x", lua.LNumber(x))
	l.state.Push(fn)
	if err := l.state.PCall(0, 1, nil); err != nil {
		l.state.SetTop(top)
		return 0, fmt.Errorf("evaluating %q at x=%v: %w", expression, x, err)
	}
	ret := l.state.Get(-1)
	l.state.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("%w: %q returned %s", ErrNotANumber, expression, ret.Type())
	}
	return float64(n), nil
}

func (l *Lua) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Close()
}

func (l *Lua) compile(expression string) (*lua.LFunction, error) {
	if fn, ok := l.cache[expression]; ok {
		return fn, nil
	}
	fn, err := l.state.LoadString("return " + expression)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", expression, err)
	}
	if len(l.cache) >= maxCachedExpressions {
		clear(l.cache)
	}
	l.cache[expression] = fn
	return fn, nil
}

func unary(f func(float64) float64) lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(lua.LNumber(f(float64(L.CheckNumber(1)))))
		return 1
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
