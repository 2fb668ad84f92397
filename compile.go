package spvcross

import (
	"context"

	"github.com/gogpu/spvcross/abi"
	"github.com/gogpu/spvcross/errors"
)

// CompileOptions holds the per-target options applied before compilation.
// Zero values leave the foreign defaults in place. Options that do not
// apply to the compiler's backend are ignored.
type CompileOptions struct {
	ForceTemporary                bool
	FlattenMultidimensionalArrays bool
	FixupDepthConvention          bool
	FlipVertexY                   bool

	GlslVersion         uint32
	GlslES              bool
	GlslVulkanSemantics bool

	HlslShaderModel uint32

	MslVersion uint32
}

// CompiledArtifact is the frozen result of compiling a module. It keeps
// only the context root alive; the compiler that produced it no longer
// accepts mutation.
type CompiledArtifact struct {
	source   ContextStr
	root     *contextRoot
	backend  abi.Backend
	retained bool
}

// Source returns the compiled source string, owned by the context.
func (a *CompiledArtifact) Source() ContextStr {
	return a.source
}

func (a *CompiledArtifact) String() string {
	return a.source.String()
}

// Backend returns the target the artifact was compiled for.
func (a *CompiledArtifact) Backend() abi.Backend {
	return a.backend
}

// Close drops the artifact's claim on the arena.
func (a *CompiledArtifact) Close(ctx context.Context) error {
	if !a.retained {
		return nil
	}
	a.retained = false
	return a.root.release(ctx)
}

// Compile generates target source from the current state of the module
// and freezes this instance: subsequent mutating calls fail. Reflection
// queries remain available on the frozen compiler.
func (c *Compiler) Compile(ctx context.Context, opts *CompileOptions) (*CompiledArtifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutable(errors.PhaseCompile); err != nil {
		return nil, err
	}
	if err := c.compilable(); err != nil {
		return nil, err
	}

	if opts != nil {
		if err := c.installOptions(ctx, opts); err != nil {
			return nil, err
		}
	}

	ptr, res, err := c.foreign.CompilerCompile(ctx, c.ptr)
	if err != nil {
		return nil, errors.Call("spvc_compiler_compile", err)
	}
	if err := c.ok(ctx, res, errors.PhaseCompile, "compile module"); err != nil {
		return nil, err
	}

	source, err := wrapForeign(ptr, c.root)
	if err != nil {
		return nil, err
	}

	c.frozen.Store(true)

	// The artifact takes its own claim so it can outlive the compiler
	// when the root is reference-counted.
	if c.retained {
		c.root.retain()
	}
	return &CompiledArtifact{
		source:   source,
		root:     c.root,
		backend:  c.backend,
		retained: c.retained,
	}, nil
}

type optionSetting struct {
	opt  abi.CompilerOption
	uval uint32
	bval bool
	isU  bool
}

func (c *Compiler) installOptions(ctx context.Context, opts *CompileOptions) error {
	set, res, err := c.foreign.CompilerCreateOptions(ctx, c.ptr)
	if err != nil {
		return errors.Call("spvc_compiler_create_compiler_options", err)
	}
	if err := c.ok(ctx, res, errors.PhaseCompile, "create compiler options"); err != nil {
		return err
	}

	var settings []optionSetting

	settings = append(settings,
		optionSetting{opt: abi.OptionForceTemporary, bval: opts.ForceTemporary},
		optionSetting{opt: abi.OptionFlattenMultidimensionalArrays, bval: opts.FlattenMultidimensionalArrays},
		optionSetting{opt: abi.OptionFixupDepthConvention, bval: opts.FixupDepthConvention},
		optionSetting{opt: abi.OptionFlipVertexY, bval: opts.FlipVertexY},
	)

	switch c.backend {
	case abi.BackendGlsl:
		if opts.GlslVersion != 0 {
			settings = append(settings, optionSetting{opt: abi.OptionGlslVersion, uval: opts.GlslVersion, isU: true})
		}
		settings = append(settings,
			optionSetting{opt: abi.OptionGlslES, bval: opts.GlslES},
			optionSetting{opt: abi.OptionGlslVulkanSemantics, bval: opts.GlslVulkanSemantics},
		)
	case abi.BackendHlsl:
		if opts.HlslShaderModel != 0 {
			settings = append(settings, optionSetting{opt: abi.OptionHlslShaderModel, uval: opts.HlslShaderModel, isU: true})
		}
	case abi.BackendMsl:
		if opts.MslVersion != 0 {
			settings = append(settings, optionSetting{opt: abi.OptionMslVersion, uval: opts.MslVersion, isU: true})
		}
	}

	for _, s := range settings {
		if s.isU {
			res, err = c.foreign.OptionsSetUint(ctx, set, s.opt, s.uval)
		} else {
			res, err = c.foreign.OptionsSetBool(ctx, set, s.opt, s.bval)
		}
		if err != nil {
			return errors.Call("spvc_compiler_options_set", err)
		}
		if err := c.ok(ctx, res, errors.PhaseCompile, "set compiler option"); err != nil {
			return err
		}
	}

	res, err = c.foreign.CompilerInstallOptions(ctx, c.ptr, set)
	if err != nil {
		return errors.Call("spvc_compiler_install_compiler_options", err)
	}
	return c.ok(ctx, res, errors.PhaseCompile, "install compiler options")
}
