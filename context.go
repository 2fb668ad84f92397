package spvcross

import (
	"context"
	"sync/atomic"

	"github.com/gogpu/spvcross/abi"
	"github.com/gogpu/spvcross/errors"
)

// contextRoot is the single owner record for a foreign arena. Exactly one
// root exists per arena. References to it are either borrowed (the holder
// does not retain) or counted (the holder took a reference via retain and
// must release it). The arena is destroyed exactly once, when the unique
// owner closes it or when the last counted reference is released.
type contextRoot struct {
	foreign   abi.Foreign
	ptr       abi.Pointer
	shared    atomic.Bool
	refs      atomic.Int32
	destroyed atomic.Bool
}

// promote converts the root from uniquely-owned to reference-counted.
// The initial reference belongs to whoever triggered the promotion.
// Idempotent; concurrent promotion is not supported (the Context is not
// goroutine-safe during derivation).
func (r *contextRoot) promote() {
	if r.shared.CompareAndSwap(false, true) {
		r.refs.Store(1)
	}
}

func (r *contextRoot) retain() {
	r.refs.Add(1)
}

func (r *contextRoot) release(ctx context.Context) error {
	if r.refs.Add(-1) == 0 {
		return r.destroy(ctx)
	}
	return nil
}

func (r *contextRoot) destroy(ctx context.Context) error {
	if !r.destroyed.CompareAndSwap(false, true) {
		return nil
	}
	return r.foreign.ContextDestroy(ctx, r.ptr)
}

// translate is the single point that maps a foreign result code into the
// error taxonomy, capturing the foreign error message when one is
// available. All foreign calls returning a result code funnel through it.
func (r *contextRoot) translate(ctx context.Context, res abi.Result, phase errors.Phase, detail string) error {
	switch res {
	case abi.Success:
		return nil
	case abi.ErrOutOfMemory:
		return errors.OutOfMemory(phase)
	default:
		msg, err := r.foreign.ContextLastError(ctx, r.ptr)
		if err != nil {
			msg = res.String()
		}
		return errors.Foreign(phase, detail, msg, uint32(r.ptr))
	}
}

// Context owns a foreign arena. All allocations made by the foreign
// library on behalf of derived objects live in this arena and share its
// lifetime.
//
// A Context is consumed by IntoCompiler; any use afterwards fails with a
// not-initialized error. Close is idempotent.
type Context struct {
	root   *contextRoot
	moved  atomic.Bool
	closed atomic.Bool
}

// NewContext constructs a fresh foreign arena.
func NewContext(ctx context.Context, foreign abi.Foreign) (*Context, error) {
	ptr, res, err := foreign.ContextCreate(ctx)
	if err != nil {
		return nil, errors.Call("spvc_context_create", err)
	}
	if res != abi.Success || ptr == 0 {
		return nil, errors.OutOfMemory(errors.PhaseContext)
	}
	return &Context{
		root: &contextRoot{foreign: foreign, ptr: ptr},
	}, nil
}

// Close drops this holder's claim on the arena. For a uniquely-owned
// context the arena is destroyed immediately; for a shared context the
// arena survives until the last derived compiler or artifact is closed.
// Closing a context that was consumed by IntoCompiler is a no-op.
func (c *Context) Close(ctx context.Context) error {
	if c.moved.Load() {
		return nil
	}
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.root.shared.Load() {
		return c.root.release(ctx)
	}
	return c.root.destroy(ctx)
}

// CompilerConfig controls construction of a compiler instance.
type CompilerConfig struct {
	// Lock selects the thread-sharing policy. The default, Unshared,
	// performs no locking; the instance must stay on one goroutine.
	Lock LockPolicy
}

// CreateCompiler parses the module and constructs a compiler instance that
// borrows this context. The caller must keep the Context alive for as long
// as the compiler and anything derived from it, and close it last.
func (c *Context) CreateCompiler(ctx context.Context, backend abi.Backend, mod Module) (*Compiler, error) {
	return c.CreateCompilerWithConfig(ctx, backend, mod, nil)
}

// CreateCompilerWithConfig is CreateCompiler with an explicit configuration.
func (c *Context) CreateCompilerWithConfig(ctx context.Context, backend abi.Backend, mod Module, cfg *CompilerConfig) (*Compiler, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	ptr, err := c.parseAndCreate(ctx, backend, mod)
	if err != nil {
		return nil, err
	}
	return newCompiler(ptr, c.root, false, backend, cfg), nil
}

// CreateCompilerShared parses the module and constructs a compiler that
// holds a counted reference to the arena. The arena is promoted to shared
// ownership; it is destroyed when the last holder (context, compiler, or
// artifact) is closed, in any order.
func (c *Context) CreateCompilerShared(ctx context.Context, backend abi.Backend, mod Module, cfg *CompilerConfig) (*Compiler, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	ptr, err := c.parseAndCreate(ctx, backend, mod)
	if err != nil {
		return nil, err
	}
	c.root.promote()
	c.root.retain()
	return newCompiler(ptr, c.root, true, backend, cfg), nil
}

// IntoCompiler consumes the context and constructs a compiler that becomes
// the sole owner of the arena. This allows the compiler (and its artifact)
// to be stored without keeping a reference to the context separately.
func (c *Context) IntoCompiler(ctx context.Context, backend abi.Backend, mod Module, cfg *CompilerConfig) (*Compiler, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	ptr, err := c.parseAndCreate(ctx, backend, mod)
	if err != nil {
		return nil, err
	}
	// The context's unique claim transfers to the compiler.
	c.root.promote()
	c.moved.Store(true)
	return newCompiler(ptr, c.root, true, backend, cfg), nil
}

func (c *Context) usable() error {
	if c.moved.Load() {
		return errors.NotInitialized(errors.PhaseContext, "context (consumed by IntoCompiler)")
	}
	if c.closed.Load() {
		return errors.NotInitialized(errors.PhaseContext, "context (closed)")
	}
	return nil
}

// parseAndCreate runs the two-step foreign protocol: parse raw words into
// an IR handle, then construct a compiler object that takes ownership of
// the parsed IR. On parse failure the partially-constructed IR remains
// arena-owned and is reclaimed with the context; nothing leaks past it.
func (c *Context) parseAndCreate(ctx context.Context, backend abi.Backend, mod Module) (abi.Pointer, error) {
	if len(mod.Words()) == 0 {
		return 0, errors.InvalidInput(errors.PhaseParse, "empty SPIR-V module")
	}

	ir, res, err := c.root.foreign.ContextParseSpirv(ctx, c.root.ptr, mod.Words())
	if err != nil {
		return 0, errors.Call("spvc_context_parse_spirv", err)
	}
	if err := c.root.translate(ctx, res, errors.PhaseParse, "parse SPIR-V module"); err != nil {
		return 0, err
	}

	comp, res, err := c.root.foreign.ContextCreateCompiler(ctx, c.root.ptr, backend, ir, abi.CaptureModeTakeOwnership)
	if err != nil {
		return 0, errors.Call("spvc_context_create_compiler", err)
	}
	if err := c.root.translate(ctx, res, errors.PhaseParse, "create compiler"); err != nil {
		return 0, err
	}
	if comp == 0 {
		return 0, errors.OutOfMemory(errors.PhaseParse)
	}
	return comp, nil
}
