package spvcross

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gogpu/spvcross/abi"
	"github.com/gogpu/spvcross/errors"
)

// LockPolicy is the thread-sharing policy of a compiler instance, chosen
// at construction and immutable afterwards.
type LockPolicy int

const (
	// Unshared performs no locking. The instance must be confined to a
	// single goroutine, or access must be synchronized externally.
	Unshared LockPolicy = iota

	// Shared serializes every call on the instance with an internal
	// mutex, making it safe to move between goroutines at the cost of
	// that synchronization.
	Shared
)

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

// Compiler is an instance of a SPIRV-Cross compiler over one parsed
// module. It is created through a Context, mutated by decoration and
// execution-mode calls, and frozen by Compile.
//
// Mutating calls invalidate previously returned short-lived strings from
// the same instance; see ContextStr.
type Compiler struct {
	foreign  abi.Foreign
	root     *contextRoot
	mu       sync.Locker
	ptr      abi.Pointer
	backend  abi.Backend
	retained bool
	frozen   atomic.Bool
	closed   atomic.Bool
}

func newCompiler(ptr abi.Pointer, root *contextRoot, retained bool, backend abi.Backend, cfg *CompilerConfig) *Compiler {
	var mu sync.Locker = noLock{}
	if cfg != nil && cfg.Lock == Shared {
		mu = &sync.Mutex{}
	}
	return &Compiler{
		foreign:  root.foreign,
		root:     root,
		mu:       mu,
		ptr:      ptr,
		backend:  backend,
		retained: retained,
	}
}

// Backend returns the compile target this instance was constructed for.
func (c *Compiler) Backend() abi.Backend {
	return c.backend
}

// Close drops the compiler's claim on the arena. The foreign compiler
// object itself is arena-owned and reclaimed when the arena is destroyed.
// For a borrowing compiler Close only marks the instance unusable.
func (c *Compiler) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.retained {
		return c.root.release(ctx)
	}
	return nil
}

// phantom creates a lifetime-only projection for minting handles and
// locating the context root. Only valid while c is alive.
func (c *Compiler) phantom() phantomCompiler {
	return phantomCompiler{ptr: c.ptr, root: c.root}
}

// yield validates a handle against this instance and unwraps the raw ID.
// A tag minted by any other instance is rejected here, before the ID can
// reach the foreign boundary.
func (c *Compiler) yield(h AnyHandle, phase errors.Phase) (uint32, error) {
	if h.provenance() != c.ptr {
		return 0, errors.InvalidHandle(phase, h.ID(),
			"handle was produced by a different compiler instance")
	}
	return h.ID(), nil
}

// HandleValid reports whether h was minted by this instance.
func (c *Compiler) HandleValid(h AnyHandle) bool {
	return h.provenance() == c.ptr
}

// ok funnels a foreign result code through the root's translation point.
func (c *Compiler) ok(ctx context.Context, res abi.Result, phase errors.Phase, detail string) error {
	return c.root.translate(ctx, res, phase, detail)
}

func (c *Compiler) usable() error {
	if c.closed.Load() {
		return errors.NotInitialized(errors.PhaseReflect, "compiler (closed)")
	}
	return nil
}

func (c *Compiler) mutable(phase errors.Phase) error {
	if err := c.usable(); err != nil {
		return err
	}
	if c.frozen.Load() {
		return errors.Frozen(phase, "compiler was frozen by Compile")
	}
	return nil
}

// AddHeaderLine prepends a custom line to the generated source.
func (c *Compiler) AddHeaderLine(ctx context.Context, line ContextStr) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutable(errors.PhaseCompile); err != nil {
		return err
	}
	if err := c.compilable(); err != nil {
		return err
	}

	cs, err := line.materialize(c.foreign)
	if err != nil {
		return err
	}
	defer cs.release()

	res, err := c.foreign.CompilerAddHeaderLine(ctx, c.ptr, cs.ptr)
	if err != nil {
		return errors.Call("spvc_compiler_add_header_line", err)
	}
	return c.ok(ctx, res, errors.PhaseCompile, "add header line")
}

// RequireExtension forces the generated source to declare an extension.
func (c *Compiler) RequireExtension(ctx context.Context, ext ContextStr) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutable(errors.PhaseCompile); err != nil {
		return err
	}
	if err := c.compilable(); err != nil {
		return err
	}

	cs, err := ext.materialize(c.foreign)
	if err != nil {
		return err
	}
	defer cs.release()

	res, err := c.foreign.CompilerRequireExtension(ctx, c.ptr, cs.ptr)
	if err != nil {
		return errors.Call("spvc_compiler_require_extension", err)
	}
	return c.ok(ctx, res, errors.PhaseCompile, "require extension")
}

func (c *Compiler) compilable() error {
	if c.backend == abi.BackendNone {
		return errors.InvalidInput(errors.PhaseCompile,
			"compiler was created for reflection only")
	}
	return nil
}
