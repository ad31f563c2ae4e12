package oracle

import (
	"context"
	"io"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/Feresey/metagraph/schema"
)

const (
	providerLua         = "lua"
	luaFuncNameComplete = "complete"
)

// Lua answers prompts with a user script defining
//
//	function complete(prompt) return "..." end
//
// The graph is available to the script as the global tables schema and relationships.
type Lua struct {
	mu  sync.Mutex
	l   *lua.LState
	log *zap.Logger

	complete lua.LValue
}

func NewLua(
	log *zap.Logger,
	g *schema.Graph,
	rels schema.Relationships,
	source io.Reader, name string,
) (*Lua, error) {
	l := lua.NewState()

	lo := &Lua{
		l:   l,
		log: log.Named("lua-oracle").With(zap.String("name", name)),
	}
	if g != nil {
		l.SetGlobal("schema", g.ToLua(l))
	}
	if rels != nil {
		l.SetGlobal("relationships", rels.ToLua(l))
	}

	compiled, err := l.Load(source, name)
	if err != nil {
		l.Close()
		return nil, xerrors.Errorf("lua source failed to compile: %w", err)
	}

	// выполнение тела скрипта, которое объявляет функции
	l.Push(compiled)
	if err := l.PCall(0, 0, nil); err != nil {
		l.Close()
		return nil, xerrors.Errorf("load lua oracle script: %w", err)
	}

	fn := l.GetGlobal(luaFuncNameComplete)
	if fn.Type() != lua.LTFunction {
		l.Close()
		return nil, xerrors.Errorf(
			"lua oracle must define function %s, but it is %s",
			luaFuncNameComplete, fn.Type().String())
	}
	lo.complete = fn

	return lo, nil
}

var _ Oracle = (*Lua)(nil)

// Complete calls the script. The state is not reentrant so calls are serialized.
func (o *Lua) Complete(ctx context.Context, prompt string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.l.SetContext(ctx)
	defer o.l.RemoveContext()

	err := o.l.CallByParam(lua.P{
		Fn:      o.complete,
		NRet:    1,
		Protect: true,
	}, lua.LString(prompt))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", &TimeoutError{Err: err}
		}
		o.log.Error("apply function complete", zap.Error(err))
		return "", &CallError{Provider: providerLua, Err: err}
	}

	ret := o.l.Get(-1)
	o.l.Pop(1)
	if ret.Type() != lua.LTString {
		return "", &CallError{
			Provider: providerLua,
			Err:      xerrors.Errorf("function %s returned %s instead of string", luaFuncNameComplete, ret.Type()),
		}
	}
	return lua.LVAsString(ret), nil
}

func (o *Lua) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.l.Close()
}
