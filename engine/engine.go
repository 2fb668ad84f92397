package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/gogpu/spvcross/errors"
)

// Config holds configuration for engine creation.
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages
	// (64KB each). 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32
}

// Engine owns a wazero runtime that SPIRV-Cross instances run under.
type Engine struct {
	runtime wazero.Runtime
}

// New creates a new engine with default configuration.
func New(ctx context.Context) (*Engine, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates a new engine with custom configuration. The guest
// libc's WASI imports are provided by the runtime.
func NewWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}
	return &Engine{runtime: runtime}, nil
}

// Load compiles and instantiates the SPIRV-Cross guest module, returning
// an Instance ready to back foreign contexts. The module must export the
// SPIRV-Cross C API along with malloc and free.
func (e *Engine) Load(ctx context.Context, wasmBytes []byte) (*Instance, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile guest module", err)
	}

	modCfg := wazero.NewModuleConfig().WithStartFunctions("_initialize", "_start")
	mod, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, errors.Load("instantiate guest module", err)
	}

	inst, err := newInstance(ctx, mod)
	if err != nil {
		mod.Close(ctx)
		return nil, err
	}

	Logger().Debug("loaded SPIRV-Cross guest module",
		zap.Int("binary_size", len(wasmBytes)),
		zap.Uint32("memory_pages", mod.Memory().Size()/65536))
	return inst, nil
}

// Close shuts down the runtime and every instance loaded from it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
