package spvcross

import (
	"context"

	"github.com/gogpu/spvcross/abi"
	"github.com/gogpu/spvcross/errors"
)

// InterfaceVariables is an ordered set of interface variable handles, as
// returned by the foreign library for the active entry point.
type InterfaceVariables struct {
	handles []Handle[abi.VariableID]
}

// Handles returns the variable handles in foreign order.
func (v InterfaceVariables) Handles() []Handle[abi.VariableID] {
	return v.handles
}

// IDs returns the raw numeric IDs in foreign order.
func (v InterfaceVariables) IDs() []uint32 {
	ids := make([]uint32, len(v.handles))
	for i, h := range v.handles {
		ids[i] = h.ID()
	}
	return ids
}

// ActiveInterfaceVariables returns the set of variables that form the
// interface of the active entry point.
func (c *Compiler) ActiveInterfaceVariables(ctx context.Context) (InterfaceVariables, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return InterfaceVariables{}, err
	}

	ids, res, err := c.foreign.CompilerGetActiveInterfaceVariables(ctx, c.ptr)
	if err != nil {
		return InterfaceVariables{}, errors.Call("spvc_compiler_get_active_interface_variables", err)
	}
	if err := c.ok(ctx, res, errors.PhaseReflect, "query active interface variables"); err != nil {
		return InterfaceVariables{}, err
	}

	p := c.phantom()
	handles := make([]Handle[abi.VariableID], len(ids))
	for i, id := range ids {
		handles[i] = mintHandle(p, abi.VariableID(id))
	}
	return InterfaceVariables{handles: handles}, nil
}

// SetEnabledInterfaceVariables restricts compilation and reflection to the
// given variable set. Every handle is validated against this instance
// before any ID crosses the boundary.
func (c *Compiler) SetEnabledInterfaceVariables(ctx context.Context, vars InterfaceVariables) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutable(errors.PhaseReflect); err != nil {
		return err
	}

	ids := make([]uint32, len(vars.handles))
	for i, h := range vars.handles {
		id, err := c.yield(h, errors.PhaseReflect)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	res, err := c.foreign.CompilerSetEnabledInterfaceVariables(ctx, c.ptr, ids)
	if err != nil {
		return errors.Call("spvc_compiler_set_enabled_interface_variables", err)
	}
	return c.ok(ctx, res, errors.PhaseReflect, "set enabled interface variables")
}

// ExecutionModeArguments is the argument payload of an execution mode.
// One of NoArguments, UnitArgument, LocalSize or LocalSizeId.
type ExecutionModeArguments interface {
	expand() [3]uint32
}

// NoArguments marks an execution mode that takes no arguments.
type NoArguments struct{}

func (NoArguments) expand() [3]uint32 { return [3]uint32{} }

// UnitArgument is a single-literal execution mode argument, such as
// Invocations or OutputVertices.
type UnitArgument uint32

func (a UnitArgument) expand() [3]uint32 { return [3]uint32{uint32(a), 0, 0} }

// LocalSize is the literal workgroup size.
type LocalSize struct {
	X, Y, Z uint32
}

func (a LocalSize) expand() [3]uint32 { return [3]uint32{a.X, a.Y, a.Z} }

// LocalSizeId is the workgroup size given as constant IDs.
type LocalSizeId struct {
	X, Y, Z Handle[abi.ConstantID]
}

func (a LocalSizeId) expand() [3]uint32 {
	return [3]uint32{a.X.ID(), a.Y.ID(), a.Z.ID()}
}

// ExecutionModes returns the execution modes declared by the active entry
// point.
func (c *Compiler) ExecutionModes(ctx context.Context) ([]abi.ExecutionMode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return nil, err
	}
	return c.executionModes(ctx)
}

func (c *Compiler) executionModes(ctx context.Context) ([]abi.ExecutionMode, error) {
	modes, res, err := c.foreign.CompilerGetExecutionModes(ctx, c.ptr)
	if err != nil {
		return nil, errors.Call("spvc_compiler_get_execution_modes", err)
	}
	if err := c.ok(ctx, res, errors.PhaseReflect, "query execution modes"); err != nil {
		return nil, err
	}
	return modes, nil
}

// SetExecutionMode sets or unsets an execution mode. A nil args unsets the
// mode; to set a mode that takes no arguments pass NoArguments. LocalSizeId
// handles are validated against this instance before crossing the boundary.
func (c *Compiler) SetExecutionMode(ctx context.Context, mode abi.ExecutionMode, args ExecutionModeArguments) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutable(errors.PhaseReflect); err != nil {
		return err
	}

	if args == nil {
		if err := c.foreign.CompilerUnsetExecutionMode(ctx, c.ptr, mode); err != nil {
			return errors.Call("spvc_compiler_unset_execution_mode", err)
		}
		return nil
	}

	if ids, ok := args.(LocalSizeId); ok {
		for _, h := range []Handle[abi.ConstantID]{ids.X, ids.Y, ids.Z} {
			if _, err := c.yield(h, errors.PhaseReflect); err != nil {
				return err
			}
		}
	}

	a := args.expand()
	if err := c.foreign.CompilerSetExecutionMode(ctx, c.ptr, mode, a[0], a[1], a[2]); err != nil {
		return errors.Call("spvc_compiler_set_execution_mode_with_arguments", err)
	}
	return nil
}

// ExecutionModeArguments returns the arguments of mode, or nil if the mode
// was never set. A zero workgroup dimension is the foreign sentinel for
// "unused", never reported as a spurious zero-valued result.
func (c *Compiler) ExecutionModeArguments(ctx context.Context, mode abi.ExecutionMode) (ExecutionModeArguments, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return nil, err
	}

	switch mode {
	case abi.ExecutionModeLocalSize:
		x, y, z, err := c.executionModeXYZ(ctx, mode)
		if err != nil {
			return nil, err
		}
		if x*y*z == 0 {
			return nil, nil
		}
		return LocalSize{X: x, Y: y, Z: z}, nil

	case abi.ExecutionModeLocalSizeId:
		x, y, z, err := c.executionModeXYZ(ctx, mode)
		if err != nil {
			return nil, err
		}
		if x*y*z == 0 {
			// If one is zero, all are zero.
			return nil, nil
		}
		p := c.phantom()
		return LocalSizeId{
			X: mintHandle(p, abi.ConstantID(x)),
			Y: mintHandle(p, abi.ConstantID(y)),
			Z: mintHandle(p, abi.ConstantID(z)),
		}, nil

	case abi.ExecutionModeInvocations,
		abi.ExecutionModeOutputVertices,
		abi.ExecutionModeOutputPrimitivesEXT:
		set, err := c.executionModeDeclared(ctx, mode)
		if err != nil || !set {
			return nil, err
		}
		x, err := c.foreign.CompilerGetExecutionModeArgument(ctx, c.ptr, mode, 0)
		if err != nil {
			return nil, errors.Call("spvc_compiler_get_execution_mode_argument_by_index", err)
		}
		return UnitArgument(x), nil

	default:
		set, err := c.executionModeDeclared(ctx, mode)
		if err != nil || !set {
			return nil, err
		}
		return NoArguments{}, nil
	}
}

func (c *Compiler) executionModeDeclared(ctx context.Context, mode abi.ExecutionMode) (bool, error) {
	modes, err := c.executionModes(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range modes {
		if m == mode {
			return true, nil
		}
	}
	return false, nil
}

func (c *Compiler) executionModeXYZ(ctx context.Context, mode abi.ExecutionMode) (x, y, z uint32, err error) {
	for i, out := range []*uint32{&x, &y, &z} {
		v, callErr := c.foreign.CompilerGetExecutionModeArgument(ctx, c.ptr, mode, uint32(i))
		if callErr != nil {
			return 0, 0, 0, errors.Call("spvc_compiler_get_execution_mode_argument_by_index", callErr)
		}
		*out = v
	}
	return x, y, z, nil
}

// HasDecoration reports whether the object referenced by h carries d.
func (c *Compiler) HasDecoration(ctx context.Context, h AnyHandle, d abi.Decoration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return false, err
	}
	id, err := c.yield(h, errors.PhaseDecorate)
	if err != nil {
		return false, err
	}
	has, err := c.foreign.CompilerHasDecoration(ctx, c.ptr, id, d)
	if err != nil {
		return false, errors.Call("spvc_compiler_has_decoration", err)
	}
	return has, nil
}

// Decoration returns the literal value of d on the object referenced by h.
// The second return is false when the decoration is absent.
func (c *Compiler) Decoration(ctx context.Context, h AnyHandle, d abi.Decoration) (uint32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return 0, false, err
	}
	id, err := c.yield(h, errors.PhaseDecorate)
	if err != nil {
		return 0, false, err
	}

	has, err := c.foreign.CompilerHasDecoration(ctx, c.ptr, id, d)
	if err != nil {
		return 0, false, errors.Call("spvc_compiler_has_decoration", err)
	}
	if !has {
		return 0, false, nil
	}

	v, err := c.foreign.CompilerGetDecoration(ctx, c.ptr, id, d)
	if err != nil {
		return 0, false, errors.Call("spvc_compiler_get_decoration", err)
	}
	return v, true, nil
}

// SetDecoration decorates the object referenced by h with a literal value.
func (c *Compiler) SetDecoration(ctx context.Context, h AnyHandle, d abi.Decoration, value uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutable(errors.PhaseDecorate); err != nil {
		return err
	}
	id, err := c.yield(h, errors.PhaseDecorate)
	if err != nil {
		return err
	}
	if err := c.foreign.CompilerSetDecoration(ctx, c.ptr, id, d, value); err != nil {
		return errors.Call("spvc_compiler_set_decoration", err)
	}
	return nil
}

// UnsetDecoration removes d from the object referenced by h.
func (c *Compiler) UnsetDecoration(ctx context.Context, h AnyHandle, d abi.Decoration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutable(errors.PhaseDecorate); err != nil {
		return err
	}
	id, err := c.yield(h, errors.PhaseDecorate)
	if err != nil {
		return err
	}
	if err := c.foreign.CompilerUnsetDecoration(ctx, c.ptr, id, d); err != nil {
		return errors.Call("spvc_compiler_unset_decoration", err)
	}
	return nil
}

// DecorationString returns the string argument of d on the object
// referenced by h. The result is short-lived: it is invalidated by the
// next mutating call on this instance.
func (c *Compiler) DecorationString(ctx context.Context, h AnyHandle, d abi.Decoration) (ContextStr, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return ContextStr{}, err
	}
	id, err := c.yield(h, errors.PhaseDecorate)
	if err != nil {
		return ContextStr{}, err
	}
	ptr, err := c.foreign.CompilerGetDecorationString(ctx, c.ptr, id, d)
	if err != nil {
		return ContextStr{}, errors.Call("spvc_compiler_get_decoration_string", err)
	}
	return wrapForeign(ptr, c.root)
}

// SetDecorationString decorates the object referenced by h with a string
// argument.
func (c *Compiler) SetDecorationString(ctx context.Context, h AnyHandle, d abi.Decoration, value ContextStr) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutable(errors.PhaseDecorate); err != nil {
		return err
	}
	id, err := c.yield(h, errors.PhaseDecorate)
	if err != nil {
		return err
	}

	cs, err := value.materialize(c.foreign)
	if err != nil {
		return err
	}
	defer cs.release()

	if err := c.foreign.CompilerSetDecorationString(ctx, c.ptr, id, d, cs.ptr); err != nil {
		return errors.Call("spvc_compiler_set_decoration_string", err)
	}
	return nil
}

// Name returns the debug name of the object referenced by h. The result is
// short-lived: it is invalidated by the next mutating call on this
// instance.
func (c *Compiler) Name(ctx context.Context, h AnyHandle) (ContextStr, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return ContextStr{}, err
	}
	id, err := c.yield(h, errors.PhaseReflect)
	if err != nil {
		return ContextStr{}, err
	}
	ptr, err := c.foreign.CompilerGetName(ctx, c.ptr, id)
	if err != nil {
		return ContextStr{}, errors.Call("spvc_compiler_get_name", err)
	}
	return wrapForeign(ptr, c.root)
}

// SetName overrides the debug name of the object referenced by h.
func (c *Compiler) SetName(ctx context.Context, h AnyHandle, name ContextStr) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutable(errors.PhaseDecorate); err != nil {
		return err
	}
	id, err := c.yield(h, errors.PhaseDecorate)
	if err != nil {
		return err
	}

	cs, err := name.materialize(c.foreign)
	if err != nil {
		return err
	}
	defer cs.release()

	if err := c.foreign.CompilerSetName(ctx, c.ptr, id, cs.ptr); err != nil {
		return errors.Call("spvc_compiler_set_name", err)
	}
	return nil
}

// EntryPoint is a reflected entry point.
type EntryPoint struct {
	Name           ContextStr
	ExecutionModel abi.ExecutionModel
}

// EntryPoints lists the entry points declared by the module.
func (c *Compiler) EntryPoints(ctx context.Context) ([]EntryPoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return nil, err
	}

	raw, res, err := c.foreign.CompilerGetEntryPoints(ctx, c.ptr)
	if err != nil {
		return nil, errors.Call("spvc_compiler_get_entry_points", err)
	}
	if err := c.ok(ctx, res, errors.PhaseReflect, "query entry points"); err != nil {
		return nil, err
	}

	eps := make([]EntryPoint, len(raw))
	for i, e := range raw {
		name, err := wrapForeign(e.Name, c.root)
		if err != nil {
			return nil, err
		}
		eps[i] = EntryPoint{Name: name, ExecutionModel: e.ExecutionModel}
	}
	return eps, nil
}

// BuiltDummySamplerProof proves that CreateDummySamplerForCombinedImages
// was called on a particular instance. It is redeemable only against the
// instance that issued it.
type BuiltDummySamplerProof struct {
	// SamplerID is the handle of the created sampler object, if one was
	// needed. It can be decorated before compiling.
	SamplerID Handle[abi.VariableID]

	// HasSampler reports whether a dummy sampler object was created.
	HasSampler bool

	label Handle[labelID]
}

// CreateDummySamplerForCombinedImages injects a dummy sampler for
// texelFetch operations that have no sampler, which GLSL targets require.
// The returned proof must be presented to BuildCombinedImageSamplers.
func (c *Compiler) CreateDummySamplerForCombinedImages(ctx context.Context) (BuiltDummySamplerProof, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutable(errors.PhaseReflect); err != nil {
		return BuiltDummySamplerProof{}, err
	}

	id, res, err := c.foreign.CompilerBuildDummySampler(ctx, c.ptr)
	if err != nil {
		return BuiltDummySamplerProof{}, errors.Call("spvc_compiler_build_dummy_sampler_for_combined_images", err)
	}
	if err := c.ok(ctx, res, errors.PhaseReflect, "build dummy sampler"); err != nil {
		return BuiltDummySamplerProof{}, err
	}

	p := c.phantom()
	sampler, has := mintHandleIfNotZero(p, abi.VariableID(id))
	return BuiltDummySamplerProof{
		SamplerID:  sampler,
		HasSampler: has,
		label:      mintHandle(p, labelID(0)),
	}, nil
}

// BuildCombinedImageSamplers re-routes separate images and samplers into
// combined image samplers. The proof must originate from this instance; a
// proof smuggled from another instance is rejected before any foreign call.
func (c *Compiler) BuildCombinedImageSamplers(ctx context.Context, proof BuiltDummySamplerProof) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutable(errors.PhaseReflect); err != nil {
		return err
	}
	if !c.HandleValid(proof.label) {
		return errors.InvalidHandle(errors.PhaseReflect, 0,
			"dummy sampler proof was produced by a different compiler instance")
	}

	res, err := c.foreign.CompilerBuildCombinedImageSamplers(ctx, c.ptr)
	if err != nil {
		return errors.Call("spvc_compiler_build_combined_image_samplers", err)
	}
	return c.ok(ctx, res, errors.PhaseReflect, "build combined image samplers")
}

// CombinedImageSampler is one remapping produced by
// BuildCombinedImageSamplers.
type CombinedImageSampler struct {
	// CombinedID references the created combined image sampler.
	CombinedID Handle[abi.VariableID]
	// ImageID references the split image.
	ImageID Handle[abi.VariableID]
	// SamplerID references the split sampler.
	SamplerID Handle[abi.VariableID]
}

// CombinedImageSamplers returns the combined image sampler remappings.
func (c *Compiler) CombinedImageSamplers(ctx context.Context) ([]CombinedImageSampler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usable(); err != nil {
		return nil, err
	}

	raw, res, err := c.foreign.CompilerGetCombinedImageSamplers(ctx, c.ptr)
	if err != nil {
		return nil, errors.Call("spvc_compiler_get_combined_image_samplers", err)
	}
	if err := c.ok(ctx, res, errors.PhaseReflect, "query combined image samplers"); err != nil {
		return nil, err
	}

	p := c.phantom()
	out := make([]CombinedImageSampler, len(raw))
	for i, s := range raw {
		out[i] = CombinedImageSampler{
			CombinedID: mintHandle(p, abi.VariableID(s.CombinedID)),
			ImageID:    mintHandle(p, abi.VariableID(s.ImageID)),
			SamplerID:  mintHandle(p, abi.VariableID(s.SamplerID)),
		}
	}
	return out, nil
}
