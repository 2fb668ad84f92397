package spvcross

import (
	"strings"
	"unicode/utf8"

	"github.com/gogpu/spvcross/abi"
	"github.com/gogpu/spvcross/errors"
)

// ContextStr is an immutable string view that is either backed by a
// pointer into foreign-owned memory or by a host-owned copy.
//
// Pointer-backed instances retain the guest pointer so that passing the
// string back across the boundary costs nothing; they are valid exactly as
// long as the context root they were derived from. Strings returned by
// short-lived queries are additionally invalidated by the next mutating
// call on the instance that produced them; the wrapper cannot check this,
// it is a caller obligation.
//
// The backing variant is chosen once at construction and never changes:
// a foreign string that decodes as valid UTF-8 keeps its pointer, anything
// else (lossy decode, host-supplied text) is owned.
type ContextStr struct {
	root *contextRoot
	text string
	ptr  abi.Pointer
}

// NewString wraps host-supplied text. Passing it to the foreign boundary
// will allocate a nul-terminated copy in guest memory.
func NewString(s string) ContextStr {
	return ContextStr{text: s}
}

// wrapForeign wraps the nul-terminated guest string at ptr. The caller
// guarantees ptr is rooted in root's arena and that the bytes are not
// mutated for the lifetime of the returned value.
func wrapForeign(ptr abi.Pointer, root *contextRoot) (ContextStr, error) {
	raw, err := root.foreign.Memory().ReadCString(uint32(ptr))
	if err != nil {
		return ContextStr{}, errors.Call("read guest string", err)
	}
	if utf8.Valid(raw) {
		return ContextStr{ptr: ptr, root: root, text: string(raw)}, nil
	}
	// Lossy decode: the substituted copy no longer matches the guest
	// bytes, so it cannot reuse the pointer and owns its text outright.
	return ContextStr{text: strings.ToValidUTF8(string(raw), "�")}, nil
}

// String returns the decoded text.
func (s ContextStr) String() string {
	return s.text
}

// Len returns the length of the decoded text in bytes.
func (s ContextStr) Len() int {
	return len(s.text)
}

// PointerBacked reports whether the value still references foreign memory.
func (s ContextStr) PointerBacked() bool {
	return s.ptr != 0
}

// Equal compares decoded text content, independent of backing.
func (s ContextStr) Equal(o ContextStr) bool {
	return s.text == o.text
}

// Compare orders by decoded text content, independent of backing.
func (s ContextStr) Compare(o ContextStr) int {
	return strings.Compare(s.text, o.text)
}

// cstring is a nul-terminated guest string ready to cross the boundary:
// either the reused foreign pointer (zero cost) or a temporary allocation
// that must be released after the foreign call returns.
type cstring struct {
	alloc abi.Allocator
	ptr   abi.Pointer
	owned bool
}

func (c cstring) release() {
	if c.owned {
		c.alloc.Free(uint32(c.ptr))
	}
}

// materialize produces a guest pointer to nul-terminated bytes. The
// pointer-backed variant reuses the foreign pointer without allocating.
// The owned variant writes a fresh copy into guest memory and fails if the
// text contains an embedded nul byte; it never truncates.
func (s ContextStr) materialize(foreign abi.Foreign) (cstring, error) {
	if s.ptr != 0 {
		return cstring{ptr: s.ptr}, nil
	}
	if i := strings.IndexByte(s.text, 0); i >= 0 {
		return cstring{}, errors.EmbeddedNul(errors.PhaseEncode, i)
	}

	size := uint32(len(s.text)) + 1
	alloc := foreign.Allocator()
	ptr, err := alloc.Alloc(size)
	if err != nil || ptr == 0 {
		return cstring{}, errors.AllocationFailed(errors.PhaseEncode, size, err)
	}

	mem := foreign.Memory()
	if err := mem.Write(ptr, []byte(s.text)); err != nil {
		alloc.Free(ptr)
		return cstring{}, errors.Call("write guest string", err)
	}
	if err := mem.Write(ptr+size-1, []byte{0}); err != nil {
		alloc.Free(ptr)
		return cstring{}, errors.Call("write guest string terminator", err)
	}

	return cstring{ptr: abi.Pointer(ptr), owned: true, alloc: alloc}, nil
}
