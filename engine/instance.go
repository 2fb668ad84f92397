package engine

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/gogpu/spvcross/abi"
	"github.com/gogpu/spvcross/errors"
)

// Exported guest function names. The spvc_rs_* helpers come from the shim
// compiled into the guest next to the C API; they flatten opaque spvc_set
// values into ID arrays.
const (
	fnMalloc = "malloc"
	fnFree   = "free"

	fnContextCreate    = "spvc_context_create"
	fnContextDestroy   = "spvc_context_destroy"
	fnContextLastError = "spvc_context_get_last_error_string"
	fnParseSpirv       = "spvc_context_parse_spirv"
	fnCreateCompiler   = "spvc_context_create_compiler"

	fnGetActiveVars  = "spvc_compiler_get_active_interface_variables"
	fnSetEnabledVars = "spvc_compiler_set_enabled_interface_variables"
	fnExposeSet      = "spvc_rs_expose_set"
	fnBuildSet       = "spvc_rs_build_set"

	fnGetExecutionModes   = "spvc_compiler_get_execution_modes"
	fnSetExecutionMode    = "spvc_compiler_set_execution_mode_with_arguments"
	fnUnsetExecutionMode  = "spvc_compiler_unset_execution_mode"
	fnGetExecModeArgument = "spvc_compiler_get_execution_mode_argument_by_index"

	fnHasDecoration       = "spvc_compiler_has_decoration"
	fnGetDecoration       = "spvc_compiler_get_decoration"
	fnSetDecoration       = "spvc_compiler_set_decoration"
	fnUnsetDecoration     = "spvc_compiler_unset_decoration"
	fnGetDecorationString = "spvc_compiler_get_decoration_string"
	fnSetDecorationString = "spvc_compiler_set_decoration_string"
	fnGetName             = "spvc_compiler_get_name"
	fnSetName             = "spvc_compiler_set_name"

	fnBuildDummySampler     = "spvc_compiler_build_dummy_sampler_for_combined_images"
	fnBuildCombinedSamplers = "spvc_compiler_build_combined_image_samplers"
	fnGetCombinedSamplers   = "spvc_compiler_get_combined_image_samplers"

	fnGetEntryPoints   = "spvc_compiler_get_entry_points"
	fnAddHeaderLine    = "spvc_compiler_add_header_line"
	fnRequireExtension = "spvc_compiler_require_extension"

	fnCreateOptions  = "spvc_compiler_create_compiler_options"
	fnOptionsSetBool = "spvc_compiler_options_set_bool"
	fnOptionsSetUint = "spvc_compiler_options_set_uint"
	fnInstallOptions = "spvc_compiler_install_compiler_options"
	fnCompile        = "spvc_compiler_compile"
)

// requiredExports are checked eagerly at load time so a wrong or stripped
// guest binary fails fast instead of on first use.
var requiredExports = []string{
	fnMalloc,
	fnFree,
	fnContextCreate,
	fnContextDestroy,
	fnParseSpirv,
	fnCreateCompiler,
	fnCompile,
}

// Instance is one instantiation of the SPIRV-Cross guest module. It
// implements abi.Foreign. Every foreign call is serialized by an internal
// mutex since the guest library is not reentrant.
type Instance struct {
	mod       api.Module
	mem       *guestMemory
	mu        sync.Mutex
	cacheMu   sync.RWMutex
	funcCache map[string]api.Function
	stackBuf  []uint64
	scratch   uint32 // guest block for out-parameters, owned by mu
}

// Guest struct sizes in wasm32 layout.
const (
	combinedSamplerSize = 12 // three IDs
	entryPointSize      = 8  // execution model + name pointer
	scratchSize         = 16
)

func newInstance(ctx context.Context, mod api.Module) (*Instance, error) {
	if mod.Memory() == nil {
		return nil, errors.MissingExport("memory")
	}
	for _, name := range requiredExports {
		if mod.ExportedFunction(name) == nil {
			return nil, errors.MissingExport(name)
		}
	}

	inst := &Instance{
		mod:       mod,
		mem:       &guestMemory{mem: mod.Memory()},
		funcCache: make(map[string]api.Function, 32),
		stackBuf:  make([]uint64, 16),
	}

	scratch, err := inst.malloc(ctx, scratchSize)
	if err != nil {
		return nil, err
	}
	if scratch == 0 {
		return nil, errors.AllocationFailed(errors.PhaseLoad, scratchSize, nil)
	}
	inst.scratch = scratch
	return inst, nil
}

// Close releases the guest instantiation. Contexts created from this
// instance must be closed first.
func (i *Instance) Close(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.mod == nil {
		return nil
	}
	err := i.mod.Close(ctx)
	i.mod = nil
	i.funcCache = nil
	return err
}

// Memory returns the guest linear memory view.
func (i *Instance) Memory() abi.Memory {
	return i.mem
}

// Allocator returns the guest malloc/free allocator.
func (i *Instance) Allocator() abi.Allocator {
	return &guestAllocator{inst: i}
}

func (i *Instance) fn(name string) (api.Function, error) {
	i.cacheMu.RLock()
	fn, ok := i.funcCache[name]
	i.cacheMu.RUnlock()
	if ok {
		return fn, nil
	}

	fn = i.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.MissingExport(name)
	}
	i.cacheMu.Lock()
	i.funcCache[name] = fn
	i.cacheMu.Unlock()
	return fn, nil
}

// call invokes a guest export over the shared stack buffer. Callers must
// hold i.mu. The first stack slot is returned; void functions leave it
// meaningless.
func (i *Instance) call(ctx context.Context, name string, args ...uint64) (uint64, error) {
	fn, err := i.fn(name)
	if err != nil {
		return 0, err
	}
	copy(i.stackBuf, args)
	if err := fn.CallWithStack(ctx, i.stackBuf); err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return i.stackBuf[0], nil
}

func (i *Instance) malloc(ctx context.Context, size uint32) (uint32, error) {
	ret, err := i.call(ctx, fnMalloc, uint64(size))
	if err != nil {
		return 0, err
	}
	return uint32(ret), nil
}

func (i *Instance) free(ctx context.Context, ptr uint32) {
	if ptr == 0 {
		return
	}
	if _, err := i.call(ctx, fnFree, uint64(ptr)); err != nil {
		Logger().Warn("guest free failed",
			zap.Uint32("ptr", ptr),
			zap.Error(err))
	}
}

func result(ret uint64) abi.Result {
	return abi.Result(int32(uint32(ret)))
}

func (i *Instance) ContextCreate(ctx context.Context) (abi.Pointer, abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnContextCreate, uint64(i.scratch))
	if err != nil {
		return 0, 0, err
	}
	if res := result(ret); res != abi.Success {
		return 0, res, nil
	}
	p, err := i.mem.ReadU32(i.scratch)
	if err != nil {
		return 0, 0, err
	}
	return abi.Pointer(p), abi.Success, nil
}

func (i *Instance) ContextDestroy(ctx context.Context, c abi.Pointer) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, err := i.call(ctx, fnContextDestroy, uint64(c))
	return err
}

func (i *Instance) ContextLastError(ctx context.Context, c abi.Pointer) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnContextLastError, uint64(c))
	if err != nil {
		return "", err
	}
	if ret == 0 {
		return "", nil
	}
	raw, err := i.mem.ReadCString(uint32(ret))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (i *Instance) ContextParseSpirv(ctx context.Context, c abi.Pointer, words []uint32) (abi.Pointer, abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	buf, err := i.writeWords(ctx, words)
	if err != nil {
		return 0, 0, err
	}
	defer i.free(ctx, buf)

	ret, err := i.call(ctx, fnParseSpirv, uint64(c), uint64(buf), uint64(len(words)), uint64(i.scratch))
	if err != nil {
		return 0, 0, err
	}
	if res := result(ret); res != abi.Success {
		return 0, res, nil
	}
	ir, err := i.mem.ReadU32(i.scratch)
	if err != nil {
		return 0, 0, err
	}
	return abi.Pointer(ir), abi.Success, nil
}

func (i *Instance) ContextCreateCompiler(ctx context.Context, c abi.Pointer, backend abi.Backend, ir abi.Pointer, mode abi.CaptureMode) (abi.Pointer, abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnCreateCompiler,
		uint64(c), uint64(uint32(backend)), uint64(ir), uint64(uint32(mode)), uint64(i.scratch))
	if err != nil {
		return 0, 0, err
	}
	if res := result(ret); res != abi.Success {
		return 0, res, nil
	}
	comp, err := i.mem.ReadU32(i.scratch)
	if err != nil {
		return 0, 0, err
	}
	return abi.Pointer(comp), abi.Success, nil
}

func (i *Instance) CompilerGetActiveInterfaceVariables(ctx context.Context, comp abi.Pointer) ([]uint32, abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnGetActiveVars, uint64(comp), uint64(i.scratch))
	if err != nil {
		return nil, 0, err
	}
	if res := result(ret); res != abi.Success {
		return nil, res, nil
	}
	set, err := i.mem.ReadU32(i.scratch)
	if err != nil {
		return nil, 0, err
	}

	ret, err = i.call(ctx, fnExposeSet, uint64(set), uint64(i.scratch), uint64(i.scratch+4))
	if err != nil {
		return nil, 0, err
	}
	if res := result(ret); res != abi.Success {
		return nil, res, nil
	}
	ids, err := i.readArrayOut()
	if err != nil {
		return nil, 0, err
	}
	return ids, abi.Success, nil
}

func (i *Instance) CompilerSetEnabledInterfaceVariables(ctx context.Context, comp abi.Pointer, ids []uint32) (abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	buf, err := i.writeWords(ctx, ids)
	if err != nil {
		return 0, err
	}
	defer i.free(ctx, buf)

	ret, err := i.call(ctx, fnBuildSet, uint64(buf), uint64(len(ids)), uint64(i.scratch))
	if err != nil {
		return 0, err
	}
	if res := result(ret); res != abi.Success {
		return res, nil
	}
	set, err := i.mem.ReadU32(i.scratch)
	if err != nil {
		return 0, err
	}

	ret, err = i.call(ctx, fnSetEnabledVars, uint64(comp), uint64(set))
	if err != nil {
		return 0, err
	}
	return result(ret), nil
}

func (i *Instance) CompilerGetExecutionModes(ctx context.Context, comp abi.Pointer) ([]abi.ExecutionMode, abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnGetExecutionModes, uint64(comp), uint64(i.scratch), uint64(i.scratch+4))
	if err != nil {
		return nil, 0, err
	}
	if res := result(ret); res != abi.Success {
		return nil, res, nil
	}
	raw, err := i.readArrayOut()
	if err != nil {
		return nil, 0, err
	}
	modes := make([]abi.ExecutionMode, len(raw))
	for j, m := range raw {
		modes[j] = abi.ExecutionMode(m)
	}
	return modes, abi.Success, nil
}

func (i *Instance) CompilerSetExecutionMode(ctx context.Context, comp abi.Pointer, mode abi.ExecutionMode, x, y, z uint32) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, err := i.call(ctx, fnSetExecutionMode,
		uint64(comp), uint64(mode), uint64(x), uint64(y), uint64(z))
	return err
}

func (i *Instance) CompilerUnsetExecutionMode(ctx context.Context, comp abi.Pointer, mode abi.ExecutionMode) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, err := i.call(ctx, fnUnsetExecutionMode, uint64(comp), uint64(mode))
	return err
}

func (i *Instance) CompilerGetExecutionModeArgument(ctx context.Context, comp abi.Pointer, mode abi.ExecutionMode, index uint32) (uint32, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	ret, err := i.call(ctx, fnGetExecModeArgument, uint64(comp), uint64(mode), uint64(index))
	if err != nil {
		return 0, err
	}
	return uint32(ret), nil
}

func (i *Instance) CompilerHasDecoration(ctx context.Context, comp abi.Pointer, id uint32, d abi.Decoration) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	ret, err := i.call(ctx, fnHasDecoration, uint64(comp), uint64(id), uint64(d))
	if err != nil {
		return false, err
	}
	return uint32(ret) != 0, nil
}

func (i *Instance) CompilerGetDecoration(ctx context.Context, comp abi.Pointer, id uint32, d abi.Decoration) (uint32, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	ret, err := i.call(ctx, fnGetDecoration, uint64(comp), uint64(id), uint64(d))
	if err != nil {
		return 0, err
	}
	return uint32(ret), nil
}

func (i *Instance) CompilerSetDecoration(ctx context.Context, comp abi.Pointer, id uint32, d abi.Decoration, value uint32) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, err := i.call(ctx, fnSetDecoration, uint64(comp), uint64(id), uint64(d), uint64(value))
	return err
}

func (i *Instance) CompilerUnsetDecoration(ctx context.Context, comp abi.Pointer, id uint32, d abi.Decoration) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, err := i.call(ctx, fnUnsetDecoration, uint64(comp), uint64(id), uint64(d))
	return err
}

func (i *Instance) CompilerGetDecorationString(ctx context.Context, comp abi.Pointer, id uint32, d abi.Decoration) (abi.Pointer, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	ret, err := i.call(ctx, fnGetDecorationString, uint64(comp), uint64(id), uint64(d))
	if err != nil {
		return 0, err
	}
	return abi.Pointer(uint32(ret)), nil
}

func (i *Instance) CompilerSetDecorationString(ctx context.Context, comp abi.Pointer, id uint32, d abi.Decoration, str abi.Pointer) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, err := i.call(ctx, fnSetDecorationString, uint64(comp), uint64(id), uint64(d), uint64(str))
	return err
}

func (i *Instance) CompilerGetName(ctx context.Context, comp abi.Pointer, id uint32) (abi.Pointer, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	ret, err := i.call(ctx, fnGetName, uint64(comp), uint64(id))
	if err != nil {
		return 0, err
	}
	return abi.Pointer(uint32(ret)), nil
}

func (i *Instance) CompilerSetName(ctx context.Context, comp abi.Pointer, id uint32, name abi.Pointer) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, err := i.call(ctx, fnSetName, uint64(comp), uint64(id), uint64(name))
	return err
}

func (i *Instance) CompilerBuildDummySampler(ctx context.Context, comp abi.Pointer) (uint32, abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnBuildDummySampler, uint64(comp), uint64(i.scratch))
	if err != nil {
		return 0, 0, err
	}
	if res := result(ret); res != abi.Success {
		return 0, res, nil
	}
	id, err := i.mem.ReadU32(i.scratch)
	if err != nil {
		return 0, 0, err
	}
	return id, abi.Success, nil
}

func (i *Instance) CompilerBuildCombinedImageSamplers(ctx context.Context, comp abi.Pointer) (abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnBuildCombinedSamplers, uint64(comp))
	if err != nil {
		return 0, err
	}
	return result(ret), nil
}

func (i *Instance) CompilerGetCombinedImageSamplers(ctx context.Context, comp abi.Pointer) ([]abi.CombinedImageSampler, abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnGetCombinedSamplers, uint64(comp), uint64(i.scratch), uint64(i.scratch+4))
	if err != nil {
		return nil, 0, err
	}
	if res := result(ret); res != abi.Success {
		return nil, res, nil
	}
	arr, count, err := i.readOutSlots()
	if err != nil {
		return nil, 0, err
	}

	samplers := make([]abi.CombinedImageSampler, count)
	for j := range samplers {
		data, err := i.mem.Read(arr+uint32(j)*combinedSamplerSize, combinedSamplerSize)
		if err != nil {
			return nil, 0, err
		}
		samplers[j] = abi.CombinedImageSampler{
			CombinedID: binary.LittleEndian.Uint32(data[0:]),
			ImageID:    binary.LittleEndian.Uint32(data[4:]),
			SamplerID:  binary.LittleEndian.Uint32(data[8:]),
		}
	}
	return samplers, abi.Success, nil
}

func (i *Instance) CompilerGetEntryPoints(ctx context.Context, comp abi.Pointer) ([]abi.EntryPoint, abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnGetEntryPoints, uint64(comp), uint64(i.scratch), uint64(i.scratch+4))
	if err != nil {
		return nil, 0, err
	}
	if res := result(ret); res != abi.Success {
		return nil, res, nil
	}
	arr, count, err := i.readOutSlots()
	if err != nil {
		return nil, 0, err
	}

	eps := make([]abi.EntryPoint, count)
	for j := range eps {
		data, err := i.mem.Read(arr+uint32(j)*entryPointSize, entryPointSize)
		if err != nil {
			return nil, 0, err
		}
		eps[j] = abi.EntryPoint{
			ExecutionModel: abi.ExecutionModel(binary.LittleEndian.Uint32(data[0:])),
			Name:           abi.Pointer(binary.LittleEndian.Uint32(data[4:])),
		}
	}
	return eps, abi.Success, nil
}

func (i *Instance) CompilerAddHeaderLine(ctx context.Context, comp abi.Pointer, line abi.Pointer) (abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnAddHeaderLine, uint64(comp), uint64(line))
	if err != nil {
		return 0, err
	}
	return result(ret), nil
}

func (i *Instance) CompilerRequireExtension(ctx context.Context, comp abi.Pointer, ext abi.Pointer) (abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnRequireExtension, uint64(comp), uint64(ext))
	if err != nil {
		return 0, err
	}
	return result(ret), nil
}

func (i *Instance) CompilerCreateOptions(ctx context.Context, comp abi.Pointer) (abi.Pointer, abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnCreateOptions, uint64(comp), uint64(i.scratch))
	if err != nil {
		return 0, 0, err
	}
	if res := result(ret); res != abi.Success {
		return 0, res, nil
	}
	opts, err := i.mem.ReadU32(i.scratch)
	if err != nil {
		return 0, 0, err
	}
	return abi.Pointer(opts), abi.Success, nil
}

func (i *Instance) OptionsSetBool(ctx context.Context, opts abi.Pointer, option abi.CompilerOption, v bool) (abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var b uint64
	if v {
		b = 1
	}
	ret, err := i.call(ctx, fnOptionsSetBool, uint64(opts), uint64(option), b)
	if err != nil {
		return 0, err
	}
	return result(ret), nil
}

func (i *Instance) OptionsSetUint(ctx context.Context, opts abi.Pointer, option abi.CompilerOption, v uint32) (abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnOptionsSetUint, uint64(opts), uint64(option), uint64(v))
	if err != nil {
		return 0, err
	}
	return result(ret), nil
}

func (i *Instance) CompilerInstallOptions(ctx context.Context, comp abi.Pointer, opts abi.Pointer) (abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnInstallOptions, uint64(comp), uint64(opts))
	if err != nil {
		return 0, err
	}
	return result(ret), nil
}

func (i *Instance) CompilerCompile(ctx context.Context, comp abi.Pointer) (abi.Pointer, abi.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ret, err := i.call(ctx, fnCompile, uint64(comp), uint64(i.scratch))
	if err != nil {
		return 0, 0, err
	}
	if res := result(ret); res != abi.Success {
		return 0, res, nil
	}
	src, err := i.mem.ReadU32(i.scratch)
	if err != nil {
		return 0, 0, err
	}
	return abi.Pointer(src), abi.Success, nil
}

// writeWords copies words into a fresh guest allocation. Callers must hold
// i.mu and free the returned pointer. A zero length yields a null buffer.
func (i *Instance) writeWords(ctx context.Context, words []uint32) (uint32, error) {
	if len(words) == 0 {
		return 0, nil
	}
	size := uint32(len(words)) * 4
	ptr, err := i.malloc(ctx, size)
	if err != nil {
		return 0, err
	}
	if ptr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseEncode, size, nil)
	}

	data := make([]byte, size)
	for j, w := range words {
		binary.LittleEndian.PutUint32(data[j*4:], w)
	}
	if werr := i.mem.Write(ptr, data); werr != nil {
		i.free(ctx, ptr)
		return 0, werr
	}
	return ptr, nil
}

// readOutSlots reads the (array pointer, count) pair the previous call
// stored in the scratch block. Callers must hold i.mu.
func (i *Instance) readOutSlots() (arr, count uint32, err error) {
	arr, err = i.mem.ReadU32(i.scratch)
	if err != nil {
		return 0, 0, err
	}
	count, err = i.mem.ReadU32(i.scratch + 4)
	if err != nil {
		return 0, 0, err
	}
	return arr, count, nil
}

// readArrayOut reads the ID array described by the scratch out-slots.
func (i *Instance) readArrayOut() ([]uint32, error) {
	arr, count, err := i.readOutSlots()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	data, err := i.mem.Read(arr, count*4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for j := range out {
		out[j] = binary.LittleEndian.Uint32(data[j*4:])
	}
	return out, nil
}

// guestAllocator implements abi.Allocator over the guest's malloc/free.
type guestAllocator struct {
	inst *Instance
}

func (a *guestAllocator) Alloc(size uint32) (uint32, error) {
	a.inst.mu.Lock()
	defer a.inst.mu.Unlock()
	return a.inst.malloc(context.Background(), size)
}

func (a *guestAllocator) Free(ptr uint32) {
	a.inst.mu.Lock()
	defer a.inst.mu.Unlock()
	a.inst.free(context.Background(), ptr)
}

// guestMemory wraps wazero memory to implement abi.Memory.
type guestMemory struct {
	mem api.Memory
}

func (m *guestMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *guestMemory) Write(offset uint32, data []byte) error {
	ok := m.mem.Write(offset, data)
	if !ok {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *guestMemory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("read out of bounds")
	}
	return val, nil
}

func (m *guestMemory) WriteU32(offset uint32, value uint32) error {
	ok := m.mem.WriteUint32Le(offset, value)
	if !ok {
		return fmt.Errorf("write out of bounds")
	}
	return nil
}

func (m *guestMemory) ReadCString(offset uint32) ([]byte, error) {
	const chunk = 256
	var out []byte
	for {
		n := uint32(chunk)
		size := m.mem.Size()
		if offset >= size {
			return nil, fmt.Errorf("unterminated string at offset %d", offset)
		}
		if offset+n > size {
			n = size - offset
		}
		data, ok := m.mem.Read(offset, n)
		if !ok {
			return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, n)
		}
		if idx := bytes.IndexByte(data, 0); idx >= 0 {
			return append(out, data[:idx]...), nil
		}
		out = append(out, data...)
		offset += n
	}
}

// Compile-time check that Instance implements abi.Foreign.
var _ abi.Foreign = (*Instance)(nil)
var _ abi.Memory = (*guestMemory)(nil)
var _ abi.Allocator = (*guestAllocator)(nil)
