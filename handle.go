package spvcross

import (
	"fmt"

	"github.com/gogpu/spvcross/abi"
)

// Handle is a reflected SPIR-V identifier tagged with the compiler
// instance that produced it. The tag makes the identifier usable only
// against that exact instance; presenting it to any other instance is
// detected and rejected before a foreign call is made.
//
// Handles are cheap value types. They never own foreign memory and
// discarding one has no effect on the arena.
type Handle[T abi.ID] struct {
	id  T
	tag abi.Pointer
}

// ID returns the raw numeric SPIR-V ID.
func (h Handle[T]) ID() uint32 {
	return uint32(h.id)
}

func (h Handle[T]) String() string {
	return fmt.Sprintf("Handle(%d)", uint32(h.id))
}

func (h Handle[T]) provenance() abi.Pointer {
	return h.tag
}

// AnyHandle is any Handle kind, used by operations that accept an
// identifier of arbitrary semantic kind (decorations, names).
type AnyHandle interface {
	ID() uint32
	provenance() abi.Pointer
}

// labelID is the kind for capability-proof handles. A label handle carries
// no SPIR-V reference; it only proves that a particular preparatory call
// was made on the instance whose tag it bears.
type labelID uint32

// phantomCompiler is a lifetime-only projection of a compiler instance.
// Child values (iterators, reflected resources) hold one so they can mint
// correctly-tagged handles and reach the context root without holding the
// typed compiler. It is constructed only from a live *Compiler and must
// never escape this package.
type phantomCompiler struct {
	ptr  abi.Pointer
	root *contextRoot
}

// contextPtr reports which foreign context the phantom is rooted in.
func (p phantomCompiler) contextPtr() abi.Pointer {
	return p.root.ptr
}

// mintHandle stamps id with the phantom's provenance tag. Callers must
// hold a phantom derived from a live instance; that is the whole safety
// argument, so minting stays confined to this package.
func mintHandle[T abi.ID](p phantomCompiler, id T) Handle[T] {
	return Handle[T]{id: id, tag: p.ptr}
}

// mintHandleIfNotZero returns no handle for ID 0, the foreign sentinel for
// "no object".
func mintHandleIfNotZero[T abi.ID](p phantomCompiler, id T) (Handle[T], bool) {
	if id == 0 {
		return Handle[T]{}, false
	}
	return mintHandle(p, id), true
}

// CreateHandle forges a handle for id as if it had been reflected from c.
// There are very few situations where this is needed; a forged handle that
// does not correspond to a real ID in c's module will be passed through to
// the foreign library unchecked.
func CreateHandle[T abi.ID](c *Compiler, id T) Handle[T] {
	return mintHandle(c.phantom(), id)
}
