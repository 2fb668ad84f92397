// Package spvcross provides safe Go bindings to the SPIRV-Cross compiler
// library, consumed as a WebAssembly module running in-process under wazero.
//
// The library reflects and recompiles SPIR-V modules into textual targets
// (GLSL, HLSL, MSL, JSON, C++). All memory for parsed modules, compiler
// instances and returned strings is owned by a foreign arena inside the
// guest module; this package's job is to make that foreign object graph safe
// to use without violating its lifetime or aliasing rules.
//
// # Architecture Overview
//
//	spvcross/        Root package: Context, Compiler, Handle, ContextStr
//	├── abi/         Foreign call contract and SPIR-V enums
//	├── engine/      wazero realization of the foreign contract
//	├── errors/      Structured error types
//	└── cmd/spvc/    CLI and interactive reflection browser
//
// # Context
//
// The entry point is Context, which owns the foreign arena. Every derived
// object is only valid while its context is alive. A Compiler can borrow
// the context (CreateCompiler; the caller keeps the Context alive and
// closes it last), share it (CreateCompilerShared; reference-counted,
// destroyed with the last holder), or consume it (IntoCompiler; the
// compiler becomes the sole owner).
//
// # Handles
//
// Reflected SPIR-V IDs are returned as Handle values tagged with the
// compiler instance that produced them. Presenting a handle to a different
// instance is detected and rejected before any foreign call is made.
//
// # Strings
//
// Strings returned by the foreign library are wrapped in ContextStr, which
// keeps the guest pointer when the bytes are valid UTF-8 so they can be
// passed back across the boundary at zero cost. Short-lived strings are
// only valid until the next mutating call on the instance that produced
// them; this is a caller obligation, not something the wrapper can check.
//
// # Thread Safety
//
// There is no internal threading. A Compiler constructed with the default
// Unshared policy must be confined to one goroutine; the Shared policy
// serializes calls with a mutex. The Context may be shared across
// goroutines only as far as the foreign allocator tolerates independent
// allocate/free calls.
package spvcross
