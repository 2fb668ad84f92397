// Package abi defines the contract between the safety core and the foreign
// SPIRV-Cross compiler library.
//
// The library is consumed as a WebAssembly build of its C API. Every foreign
// object lives in the guest module's linear memory and is identified by a
// Pointer, a 32-bit guest address. Pointers are owned by the foreign arena
// (the spvc_context): they stay valid until the context is destroyed and
// must never be dereferenced afterwards.
//
// The Foreign interface covers exactly the calls the wrapper makes. It has
// one production implementation (package engine, wazero-backed) and is
// narrow enough to fake in tests. Methods return both a Result, the code
// reported by the library itself, and an error for transport failures such
// as a guest trap; void C functions return only the transport error.
//
// Guest helpers beyond the stock C API (flattening and building the opaque
// spvc_set type) are part of the expected guest build, mirroring the native
// shims the library's other bindings ship.
package abi
