package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/gogpu/spvcross"
	"github.com/gogpu/spvcross/abi"
	"github.com/gogpu/spvcross/engine"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to the SPIRV-Cross wasm build")
		spvFile     = flag.String("spv", "", "Path to the SPIR-V binary to process")
		target      = flag.String("target", "glsl", "Compile target: none, glsl, hlsl, msl, json, cpp")
		glslVersion = flag.Uint("glsl-version", 0, "GLSL version (e.g. 330, 450); 0 keeps the default")
		glslES      = flag.Bool("es", false, "Generate GLSL ES")
		reflectOnly = flag.Bool("reflect", false, "Print reflection info and skip compilation")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *wasmFile == "" || *spvFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: spvc -wasm <spirv-cross.wasm> -spv <shader.spv> [-target glsl] [-glsl-version 330]")
		fmt.Fprintln(os.Stderr, "       spvc -wasm <spirv-cross.wasm> -spv <shader.spv> -reflect")
		fmt.Fprintln(os.Stderr, "       spvc -wasm <spirv-cross.wasm> -spv <shader.spv> -i  (interactive mode)")
		os.Exit(1)
	}

	backend, err := parseTarget(*target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*wasmFile, *spvFile, backend); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	opts := &spvcross.CompileOptions{
		GlslVersion: uint32(*glslVersion),
		GlslES:      *glslES,
	}
	if err := run(*wasmFile, *spvFile, backend, opts, *reflectOnly); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseTarget(s string) (abi.Backend, error) {
	switch strings.ToLower(s) {
	case "none":
		return abi.BackendNone, nil
	case "glsl":
		return abi.BackendGlsl, nil
	case "hlsl":
		return abi.BackendHlsl, nil
	case "msl":
		return abi.BackendMsl, nil
	case "json":
		return abi.BackendJson, nil
	case "cpp":
		return abi.BackendCpp, nil
	default:
		return 0, fmt.Errorf("unknown target %q", s)
	}
}

func run(wasmFile, spvFile string, backend abi.Backend, opts *spvcross.CompileOptions, reflectOnly bool) error {
	ctx := context.Background()

	wasmBytes, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read wasm: %w", err)
	}
	spvBytes, err := os.ReadFile(spvFile)
	if err != nil {
		return fmt.Errorf("read SPIR-V: %w", err)
	}

	mod, err := spvcross.ModuleFromBytes(spvBytes)
	if err != nil {
		return err
	}

	eng, err := engine.New(ctx)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer eng.Close(ctx)

	inst, err := eng.Load(ctx, wasmBytes)
	if err != nil {
		return err
	}

	cc, err := spvcross.NewContext(ctx, inst)
	if err != nil {
		return err
	}
	defer cc.Close(ctx)

	comp, err := cc.CreateCompiler(ctx, backend, mod)
	if err != nil {
		return err
	}

	if err := printReflection(ctx, comp); err != nil {
		return err
	}

	if reflectOnly || backend == abi.BackendNone {
		return nil
	}

	artifact, err := comp.Compile(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Printf("\n--- %s ---\n%s", strings.ToUpper(backendName(backend)), artifact.Source().String())
	return nil
}

func printReflection(ctx context.Context, comp *spvcross.Compiler) error {
	eps, err := comp.EntryPoints(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Entry points:\n")
	for _, ep := range eps {
		fmt.Printf("  %s (%s)\n", ep.Name.String(), ep.ExecutionModel)
	}

	vars, err := comp.ActiveInterfaceVariables(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nInterface variables:\n")
	for _, h := range vars.Handles() {
		name, err := comp.Name(ctx, h)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("  %%%d %s", h.ID(), name.String())
		if loc, ok, _ := comp.Decoration(ctx, h, abi.DecorationLocation); ok {
			line += fmt.Sprintf(" location=%d", loc)
		}
		if set, ok, _ := comp.Decoration(ctx, h, abi.DecorationDescriptorSet); ok {
			line += fmt.Sprintf(" set=%d", set)
		}
		if binding, ok, _ := comp.Decoration(ctx, h, abi.DecorationBinding); ok {
			line += fmt.Sprintf(" binding=%d", binding)
		}
		fmt.Println(line)
	}

	modes, err := comp.ExecutionModes(ctx)
	if err != nil {
		return err
	}
	if len(modes) > 0 {
		fmt.Printf("\nExecution modes:\n")
		for _, mode := range modes {
			args, err := comp.ExecutionModeArguments(ctx, mode)
			if err != nil {
				return err
			}
			fmt.Printf("  %s\n", formatMode(mode, args))
		}
	}
	return nil
}

func formatMode(mode abi.ExecutionMode, args spvcross.ExecutionModeArguments) string {
	switch a := args.(type) {
	case spvcross.LocalSize:
		return fmt.Sprintf("mode %d local_size=(%d, %d, %d)", mode, a.X, a.Y, a.Z)
	case spvcross.LocalSizeId:
		return fmt.Sprintf("mode %d local_size_id=(%%%d, %%%d, %%%d)", mode, a.X.ID(), a.Y.ID(), a.Z.ID())
	case spvcross.UnitArgument:
		return fmt.Sprintf("mode %d arg=%d", mode, uint32(a))
	default:
		return fmt.Sprintf("mode %d", mode)
	}
}

func backendName(b abi.Backend) string {
	switch b {
	case abi.BackendGlsl:
		return "glsl"
	case abi.BackendHlsl:
		return "hlsl"
	case abi.BackendMsl:
		return "msl"
	case abi.BackendJson:
		return "json"
	case abi.BackendCpp:
		return "cpp"
	default:
		return "none"
	}
}
