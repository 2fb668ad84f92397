package abi

import "context"

// Pointer is a guest address in the foreign module's linear memory.
// Pointer 0 is the null pointer and always invalid.
type Pointer uint32

// Result is the status code reported by the foreign library.
type Result int32

const (
	Success             Result = 0
	ErrInvalidSpirv     Result = -1
	ErrUnsupportedSpirv Result = -2
	ErrOutOfMemory      Result = -3
	ErrInvalidArgument  Result = -4
)

// String returns the C enum name for the result code.
func (r Result) String() string {
	switch r {
	case Success:
		return "SPVC_SUCCESS"
	case ErrInvalidSpirv:
		return "SPVC_ERROR_INVALID_SPIRV"
	case ErrUnsupportedSpirv:
		return "SPVC_ERROR_UNSUPPORTED_SPIRV"
	case ErrOutOfMemory:
		return "SPVC_ERROR_OUT_OF_MEMORY"
	case ErrInvalidArgument:
		return "SPVC_ERROR_INVALID_ARGUMENT"
	default:
		return "SPVC_ERROR_UNKNOWN"
	}
}

// Backend selects the compile target of a compiler instance.
type Backend int32

const (
	BackendNone Backend = iota // reflection only
	BackendGlsl
	BackendHlsl
	BackendMsl
	BackendJson
	BackendCpp
)

// CaptureMode controls ownership of the parsed IR when constructing a
// compiler. The wrapper always transfers ownership so the compiler object,
// not the caller, owns the IR.
type CaptureMode int32

const (
	CaptureModeCopy          CaptureMode = 0
	CaptureModeTakeOwnership CaptureMode = 1
)

// ID kinds. Reflected SPIR-V identifiers are plain uint32 values on the
// wire; these distinct types keep variable, constant and type IDs from
// being interchanged on the host side.
type (
	VariableID uint32
	ConstantID uint32
	TypeID     uint32
)

// ID constrains the kinds a reflected handle may carry.
type ID interface {
	~uint32
}

// CombinedImageSampler is one remapping entry produced after building
// combined image samplers.
type CombinedImageSampler struct {
	CombinedID uint32
	ImageID    uint32
	SamplerID  uint32
}

// EntryPoint is a raw reflected entry point. Name points at a
// context-owned string in guest memory.
type EntryPoint struct {
	ExecutionModel ExecutionModel
	Name           Pointer
}

// Memory is a read/write view of the guest module's linear memory.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	WriteU32(offset uint32, value uint32) error

	// ReadCString reads the nul-terminated bytes at offset, excluding the
	// terminator. Fails if no terminator is found inside the memory bounds.
	ReadCString(offset uint32) ([]byte, error)
}

// Allocator allocates memory in the guest module's linear memory.
type Allocator interface {
	Alloc(size uint32) (uint32, error)
	Free(ptr uint32)
}

// Foreign is the full foreign call surface the wrapper uses. All pointers
// taken and returned are guest addresses whose lifetime is governed by the
// foreign arena they belong to; the caller is responsible for presenting
// only pointers that are still rooted.
type Foreign interface {
	Memory() Memory
	Allocator() Allocator

	// Context lifecycle.
	ContextCreate(ctx context.Context) (Pointer, Result, error)
	ContextDestroy(ctx context.Context, c Pointer) error
	ContextLastError(ctx context.Context, c Pointer) (string, error)

	// Two-step compiler construction. ParseSpirv allocates the IR inside
	// the arena; CreateCompiler consumes it when mode is TakeOwnership.
	ContextParseSpirv(ctx context.Context, c Pointer, words []uint32) (Pointer, Result, error)
	ContextCreateCompiler(ctx context.Context, c Pointer, backend Backend, ir Pointer, mode CaptureMode) (Pointer, Result, error)

	// Interface variables.
	CompilerGetActiveInterfaceVariables(ctx context.Context, comp Pointer) ([]uint32, Result, error)
	CompilerSetEnabledInterfaceVariables(ctx context.Context, comp Pointer, ids []uint32) (Result, error)

	// Execution modes.
	CompilerGetExecutionModes(ctx context.Context, comp Pointer) ([]ExecutionMode, Result, error)
	CompilerSetExecutionMode(ctx context.Context, comp Pointer, mode ExecutionMode, x, y, z uint32) error
	CompilerUnsetExecutionMode(ctx context.Context, comp Pointer, mode ExecutionMode) error
	CompilerGetExecutionModeArgument(ctx context.Context, comp Pointer, mode ExecutionMode, index uint32) (uint32, error)

	// Decorations and names.
	CompilerHasDecoration(ctx context.Context, comp Pointer, id uint32, d Decoration) (bool, error)
	CompilerGetDecoration(ctx context.Context, comp Pointer, id uint32, d Decoration) (uint32, error)
	CompilerSetDecoration(ctx context.Context, comp Pointer, id uint32, d Decoration, value uint32) error
	CompilerUnsetDecoration(ctx context.Context, comp Pointer, id uint32, d Decoration) error
	CompilerGetDecorationString(ctx context.Context, comp Pointer, id uint32, d Decoration) (Pointer, error)
	CompilerSetDecorationString(ctx context.Context, comp Pointer, id uint32, d Decoration, str Pointer) error
	CompilerGetName(ctx context.Context, comp Pointer, id uint32) (Pointer, error)
	CompilerSetName(ctx context.Context, comp Pointer, id uint32, name Pointer) error

	// Combined image samplers.
	CompilerBuildDummySampler(ctx context.Context, comp Pointer) (uint32, Result, error)
	CompilerBuildCombinedImageSamplers(ctx context.Context, comp Pointer) (Result, error)
	CompilerGetCombinedImageSamplers(ctx context.Context, comp Pointer) ([]CombinedImageSampler, Result, error)

	// Entry points.
	CompilerGetEntryPoints(ctx context.Context, comp Pointer) ([]EntryPoint, Result, error)

	// Source amendments. Strings are guest pointers produced by the
	// caller's string bridge.
	CompilerAddHeaderLine(ctx context.Context, comp Pointer, line Pointer) (Result, error)
	CompilerRequireExtension(ctx context.Context, comp Pointer, ext Pointer) (Result, error)

	// Compilation.
	CompilerCreateOptions(ctx context.Context, comp Pointer) (Pointer, Result, error)
	OptionsSetBool(ctx context.Context, opts Pointer, option CompilerOption, v bool) (Result, error)
	OptionsSetUint(ctx context.Context, opts Pointer, option CompilerOption, v uint32) (Result, error)
	CompilerInstallOptions(ctx context.Context, comp Pointer, opts Pointer) (Result, error)
	CompilerCompile(ctx context.Context, comp Pointer) (Pointer, Result, error)
}

// CompilerOption identifies a compiler option in the foreign option set.
// Values carry a language tag in the upper bits, matching the C encoding.
type CompilerOption uint32

const (
	optionCommonBit CompilerOption = 0x1000000
	optionGlslBit   CompilerOption = 0x2000000
	optionHlslBit   CompilerOption = 0x4000000
	optionMslBit    CompilerOption = 0x8000000
)

const (
	OptionForceTemporary                CompilerOption = 1 | optionCommonBit
	OptionFlattenMultidimensionalArrays CompilerOption = 2 | optionCommonBit
	OptionFixupDepthConvention          CompilerOption = 3 | optionCommonBit
	OptionFlipVertexY                   CompilerOption = 4 | optionCommonBit

	OptionGlslSupportNonzeroBaseInstance CompilerOption = 5 | optionGlslBit
	OptionGlslSeparateShaderObjects      CompilerOption = 6 | optionGlslBit
	OptionGlslEnable420PackExtension     CompilerOption = 7 | optionGlslBit
	OptionGlslVersion                    CompilerOption = 8 | optionGlslBit
	OptionGlslES                         CompilerOption = 9 | optionGlslBit
	OptionGlslVulkanSemantics            CompilerOption = 10 | optionGlslBit

	OptionHlslShaderModel CompilerOption = 12 | optionHlslBit

	OptionMslVersion CompilerOption = 18 | optionMslBit
)
