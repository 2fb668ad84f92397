package spvcross

import (
	"context"
	"fmt"

	"github.com/gogpu/spvcross/abi"
)

// fakeForeign is an in-memory stand-in for the foreign library. It keeps a
// byte slab as its "linear memory" so pointer-backed strings behave like
// the real guest, and it counts destroy calls so the lifetime tests can
// assert the arena is torn down exactly once.
type fakeForeign struct {
	mem      *fakeMemory
	contexts map[abi.Pointer]*fakeContext
	calls    map[string]int
	destroys map[abi.Pointer]int
	nextPtr  abi.Pointer
}

type fakeContext struct {
	lastError string
	irs       map[abi.Pointer][]uint32
	compilers map[abi.Pointer]*fakeCompiler
	destroyed bool
}

type fakeCompiler struct {
	backend    abi.Backend
	active     []uint32
	enabled    []uint32
	modes      []abi.ExecutionMode
	modeArgs   map[abi.ExecutionMode][3]uint32
	decoration map[[2]uint32]uint32
	decoStr    map[[2]uint32]abi.Pointer
	names      map[uint32]abi.Pointer
	dummyBuilt bool
	combined   []abi.CombinedImageSampler
	entryName  abi.Pointer
}

type fakeMemory struct {
	slab []byte
	next uint32
	live int
}

func newFakeForeign() *fakeForeign {
	return &fakeForeign{
		mem:      &fakeMemory{slab: make([]byte, 1<<16), next: 16},
		contexts: make(map[abi.Pointer]*fakeContext),
		calls:    make(map[string]int),
		destroys: make(map[abi.Pointer]int),
		nextPtr:  0x100,
	}
}

func (m *fakeMemory) Read(offset, length uint32) ([]byte, error) {
	if int(offset)+int(length) > len(m.slab) {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return m.slab[offset : offset+length], nil
}

func (m *fakeMemory) Write(offset uint32, data []byte) error {
	if int(offset)+len(data) > len(m.slab) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	copy(m.slab[offset:], data)
	return nil
}

func (m *fakeMemory) ReadU32(offset uint32) (uint32, error) {
	b, err := m.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (m *fakeMemory) WriteU32(offset, value uint32) error {
	return m.Write(offset, []byte{byte(value), byte(value >> 8), byte(value >> 16), byte(value >> 24)})
}

func (m *fakeMemory) ReadCString(offset uint32) ([]byte, error) {
	for i := offset; int(i) < len(m.slab); i++ {
		if m.slab[i] == 0 {
			return m.slab[offset:i], nil
		}
	}
	return nil, fmt.Errorf("unterminated string at offset %d", offset)
}

func (m *fakeMemory) Alloc(size uint32) (uint32, error) {
	if int(m.next)+int(size) > len(m.slab) {
		return 0, fmt.Errorf("fake arena exhausted")
	}
	ptr := m.next
	m.next += size
	m.live++
	return ptr, nil
}

func (m *fakeMemory) Free(ptr uint32) {
	if ptr != 0 {
		m.live--
	}
}

// intern writes s plus a nul terminator into the slab and returns its
// address, mimicking a context-owned string.
func (f *fakeForeign) intern(s []byte) abi.Pointer {
	ptr, err := f.mem.Alloc(uint32(len(s)) + 1)
	if err != nil {
		panic(err)
	}
	copy(f.mem.slab[ptr:], s)
	f.mem.slab[ptr+uint32(len(s))] = 0
	f.mem.live-- // context-owned, not a caller allocation
	return abi.Pointer(ptr)
}

func (f *fakeForeign) alloc() abi.Pointer {
	p := f.nextPtr
	f.nextPtr += 0x10
	return p
}

func (f *fakeForeign) Memory() abi.Memory       { return f.mem }
func (f *fakeForeign) Allocator() abi.Allocator { return f.mem }

func (f *fakeForeign) ContextCreate(ctx context.Context) (abi.Pointer, abi.Result, error) {
	f.calls["context_create"]++
	p := f.alloc()
	f.contexts[p] = &fakeContext{
		irs:       make(map[abi.Pointer][]uint32),
		compilers: make(map[abi.Pointer]*fakeCompiler),
	}
	return p, abi.Success, nil
}

func (f *fakeForeign) ContextDestroy(ctx context.Context, c abi.Pointer) error {
	f.destroys[c]++
	if fc, ok := f.contexts[c]; ok {
		fc.destroyed = true
	}
	return nil
}

func (f *fakeForeign) ContextLastError(ctx context.Context, c abi.Pointer) (string, error) {
	if fc, ok := f.contexts[c]; ok {
		return fc.lastError, nil
	}
	return "", nil
}

func (f *fakeForeign) ContextParseSpirv(ctx context.Context, c abi.Pointer, words []uint32) (abi.Pointer, abi.Result, error) {
	f.calls["parse_spirv"]++
	fc := f.contexts[c]
	if len(words) == 0 || words[0] != spirvMagic {
		fc.lastError = "Invalid SPIR-V format."
		return 0, abi.ErrInvalidSpirv, nil
	}
	ir := f.alloc()
	fc.irs[ir] = words
	return ir, abi.Success, nil
}

func (f *fakeForeign) ContextCreateCompiler(ctx context.Context, c abi.Pointer, backend abi.Backend, ir abi.Pointer, mode abi.CaptureMode) (abi.Pointer, abi.Result, error) {
	f.calls["create_compiler"]++
	fc := f.contexts[c]
	if _, ok := fc.irs[ir]; !ok {
		fc.lastError = "Invalid IR handle."
		return 0, abi.ErrInvalidArgument, nil
	}
	if mode == abi.CaptureModeTakeOwnership {
		delete(fc.irs, ir)
	}

	comp := f.alloc()
	fc.compilers[comp] = &fakeCompiler{
		backend:    backend,
		active:     []uint32{13, 9},
		modes:      []abi.ExecutionMode{abi.ExecutionModeOriginUpperLeft},
		modeArgs:   make(map[abi.ExecutionMode][3]uint32),
		decoration: make(map[[2]uint32]uint32),
		decoStr:    make(map[[2]uint32]abi.Pointer),
		names: map[uint32]abi.Pointer{
			13: f.intern([]byte("position")),
			9:  f.intern([]byte("color")),
			77: f.intern([]byte{0xff, 'b', 'a', 'd'}),
		},
		entryName: f.intern([]byte("main")),
	}
	return comp, abi.Success, nil
}

func (f *fakeForeign) compiler(comp abi.Pointer) *fakeCompiler {
	for _, fc := range f.contexts {
		if k, ok := fc.compilers[comp]; ok {
			if fc.destroyed {
				panic(fmt.Sprintf("compiler 0x%x used after its context was destroyed", comp))
			}
			return k
		}
	}
	panic(fmt.Sprintf("unknown compiler pointer 0x%x reached the foreign boundary", comp))
}

func (f *fakeForeign) CompilerGetActiveInterfaceVariables(ctx context.Context, comp abi.Pointer) ([]uint32, abi.Result, error) {
	f.calls["get_active_interface_variables"]++
	k := f.compiler(comp)
	out := make([]uint32, len(k.active))
	copy(out, k.active)
	return out, abi.Success, nil
}

func (f *fakeForeign) CompilerSetEnabledInterfaceVariables(ctx context.Context, comp abi.Pointer, ids []uint32) (abi.Result, error) {
	f.calls["set_enabled_interface_variables"]++
	k := f.compiler(comp)
	k.enabled = append([]uint32(nil), ids...)
	return abi.Success, nil
}

func (f *fakeForeign) CompilerGetExecutionModes(ctx context.Context, comp abi.Pointer) ([]abi.ExecutionMode, abi.Result, error) {
	f.calls["get_execution_modes"]++
	k := f.compiler(comp)
	out := make([]abi.ExecutionMode, len(k.modes))
	copy(out, k.modes)
	return out, abi.Success, nil
}

func (f *fakeForeign) CompilerSetExecutionMode(ctx context.Context, comp abi.Pointer, mode abi.ExecutionMode, x, y, z uint32) error {
	f.calls["set_execution_mode"]++
	k := f.compiler(comp)
	k.modeArgs[mode] = [3]uint32{x, y, z}
	for _, m := range k.modes {
		if m == mode {
			return nil
		}
	}
	k.modes = append(k.modes, mode)
	return nil
}

func (f *fakeForeign) CompilerUnsetExecutionMode(ctx context.Context, comp abi.Pointer, mode abi.ExecutionMode) error {
	f.calls["unset_execution_mode"]++
	k := f.compiler(comp)
	delete(k.modeArgs, mode)
	for i, m := range k.modes {
		if m == mode {
			k.modes = append(k.modes[:i], k.modes[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeForeign) CompilerGetExecutionModeArgument(ctx context.Context, comp abi.Pointer, mode abi.ExecutionMode, index uint32) (uint32, error) {
	f.calls["get_execution_mode_argument"]++
	k := f.compiler(comp)
	return k.modeArgs[mode][index], nil
}

func (f *fakeForeign) CompilerHasDecoration(ctx context.Context, comp abi.Pointer, id uint32, d abi.Decoration) (bool, error) {
	k := f.compiler(comp)
	_, ok := k.decoration[[2]uint32{id, uint32(d)}]
	return ok, nil
}

func (f *fakeForeign) CompilerGetDecoration(ctx context.Context, comp abi.Pointer, id uint32, d abi.Decoration) (uint32, error) {
	k := f.compiler(comp)
	return k.decoration[[2]uint32{id, uint32(d)}], nil
}

func (f *fakeForeign) CompilerSetDecoration(ctx context.Context, comp abi.Pointer, id uint32, d abi.Decoration, value uint32) error {
	f.calls["set_decoration"]++
	k := f.compiler(comp)
	k.decoration[[2]uint32{id, uint32(d)}] = value
	return nil
}

func (f *fakeForeign) CompilerUnsetDecoration(ctx context.Context, comp abi.Pointer, id uint32, d abi.Decoration) error {
	k := f.compiler(comp)
	delete(k.decoration, [2]uint32{id, uint32(d)})
	return nil
}

func (f *fakeForeign) CompilerGetDecorationString(ctx context.Context, comp abi.Pointer, id uint32, d abi.Decoration) (abi.Pointer, error) {
	k := f.compiler(comp)
	if p, ok := k.decoStr[[2]uint32{id, uint32(d)}]; ok {
		return p, nil
	}
	return f.intern(nil), nil
}

func (f *fakeForeign) CompilerSetDecorationString(ctx context.Context, comp abi.Pointer, id uint32, d abi.Decoration, str abi.Pointer) error {
	k := f.compiler(comp)
	raw, err := f.mem.ReadCString(uint32(str))
	if err != nil {
		return err
	}
	k.decoStr[[2]uint32{id, uint32(d)}] = f.intern(append([]byte(nil), raw...))
	return nil
}

func (f *fakeForeign) CompilerGetName(ctx context.Context, comp abi.Pointer, id uint32) (abi.Pointer, error) {
	f.calls["get_name"]++
	k := f.compiler(comp)
	if p, ok := k.names[id]; ok {
		return p, nil
	}
	return f.intern(nil), nil
}

func (f *fakeForeign) CompilerSetName(ctx context.Context, comp abi.Pointer, id uint32, name abi.Pointer) error {
	f.calls["set_name"]++
	k := f.compiler(comp)
	raw, err := f.mem.ReadCString(uint32(name))
	if err != nil {
		return err
	}
	k.names[id] = f.intern(append([]byte(nil), raw...))
	return nil
}

func (f *fakeForeign) CompilerBuildDummySampler(ctx context.Context, comp abi.Pointer) (uint32, abi.Result, error) {
	f.calls["build_dummy_sampler"]++
	k := f.compiler(comp)
	k.dummyBuilt = true
	return 42, abi.Success, nil
}

func (f *fakeForeign) CompilerBuildCombinedImageSamplers(ctx context.Context, comp abi.Pointer) (abi.Result, error) {
	f.calls["build_combined_image_samplers"]++
	k := f.compiler(comp)
	if !k.dummyBuilt {
		return abi.ErrInvalidArgument, nil
	}
	k.combined = []abi.CombinedImageSampler{
		{CombinedID: 50, ImageID: 13, SamplerID: 42},
	}
	return abi.Success, nil
}

func (f *fakeForeign) CompilerGetCombinedImageSamplers(ctx context.Context, comp abi.Pointer) ([]abi.CombinedImageSampler, abi.Result, error) {
	k := f.compiler(comp)
	return append([]abi.CombinedImageSampler(nil), k.combined...), abi.Success, nil
}

func (f *fakeForeign) CompilerGetEntryPoints(ctx context.Context, comp abi.Pointer) ([]abi.EntryPoint, abi.Result, error) {
	k := f.compiler(comp)
	return []abi.EntryPoint{
		{ExecutionModel: abi.ExecutionModelFragment, Name: k.entryName},
	}, abi.Success, nil
}

func (f *fakeForeign) CompilerAddHeaderLine(ctx context.Context, comp abi.Pointer, line abi.Pointer) (abi.Result, error) {
	f.calls["add_header_line"]++
	f.compiler(comp)
	if _, err := f.mem.ReadCString(uint32(line)); err != nil {
		return abi.ErrInvalidArgument, nil
	}
	return abi.Success, nil
}

func (f *fakeForeign) CompilerRequireExtension(ctx context.Context, comp abi.Pointer, ext abi.Pointer) (abi.Result, error) {
	f.calls["require_extension"]++
	f.compiler(comp)
	return abi.Success, nil
}

func (f *fakeForeign) CompilerCreateOptions(ctx context.Context, comp abi.Pointer) (abi.Pointer, abi.Result, error) {
	f.compiler(comp)
	return f.alloc(), abi.Success, nil
}

func (f *fakeForeign) OptionsSetBool(ctx context.Context, opts abi.Pointer, option abi.CompilerOption, v bool) (abi.Result, error) {
	return abi.Success, nil
}

func (f *fakeForeign) OptionsSetUint(ctx context.Context, opts abi.Pointer, option abi.CompilerOption, v uint32) (abi.Result, error) {
	return abi.Success, nil
}

func (f *fakeForeign) CompilerInstallOptions(ctx context.Context, comp abi.Pointer, opts abi.Pointer) (abi.Result, error) {
	f.compiler(comp)
	return abi.Success, nil
}

func (f *fakeForeign) CompilerCompile(ctx context.Context, comp abi.Pointer) (abi.Pointer, abi.Result, error) {
	f.calls["compile"]++
	k := f.compiler(comp)
	var src string
	switch k.backend {
	case abi.BackendGlsl:
		src = "#version 330\nvoid main() {}\n"
	case abi.BackendHlsl:
		src = "void main() {}\n"
	default:
		src = "// output\n"
	}
	return f.intern([]byte(src)), abi.Success, nil
}

var _ abi.Foreign = (*fakeForeign)(nil)

// fixtureWords is a minimal word stream that passes the fake's magic
// check. Only the first word matters to the fake.
func fixtureWords() []uint32 {
	return []uint32{spirvMagic, 0x00010000, 0, 100, 0}
}
