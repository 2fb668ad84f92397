// Package engine executes the SPIRV-Cross C API compiled to WebAssembly
// under the wazero runtime and exposes it through the abi.Foreign call
// surface.
//
// An Engine owns one wazero runtime. Loading the SPIRV-Cross module
// produces an Instance: a single guest instantiation with its own linear
// memory, exported-function cache and allocator. All foreign arenas created
// through one Instance share that linear memory.
//
// The guest library is not reentrant, so the Instance serializes every
// foreign call with an internal mutex. Concurrency across compiler
// instances is therefore safe but not parallel; use separate Instances for
// parallel compilation.
//
// # Usage
//
//	eng, err := engine.New(ctx)
//	if err != nil { ... }
//	defer eng.Close(ctx)
//
//	inst, err := eng.Load(ctx, spvcWasm)
//	if err != nil { ... }
//
//	cc, err := spvcross.NewContext(ctx, inst)
package engine
