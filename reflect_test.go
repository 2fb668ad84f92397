package spvcross

import (
	"context"
	"reflect"
	"testing"

	"github.com/gogpu/spvcross/abi"
)

func TestActiveInterfaceVariables(t *testing.T) {
	ctx := context.Background()
	_, comp := singleCompiler(t)

	vars, err := comp.ActiveInterfaceVariables(ctx)
	if err != nil {
		t.Fatalf("ActiveInterfaceVariables() error = %v", err)
	}
	if got, want := vars.IDs(), []uint32{13, 9}; !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

func TestSetEnabledInterfaceVariablesRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, comp := singleCompiler(t)

	vars, err := comp.ActiveInterfaceVariables(ctx)
	if err != nil {
		t.Fatalf("ActiveInterfaceVariables() error = %v", err)
	}
	if err := comp.SetEnabledInterfaceVariables(ctx, vars); err != nil {
		t.Fatalf("SetEnabledInterfaceVariables() error = %v", err)
	}

	var k *fakeCompiler
	for _, fc := range f.contexts {
		for _, c := range fc.compilers {
			k = c
		}
	}
	if got, want := k.enabled, []uint32{13, 9}; !reflect.DeepEqual(got, want) {
		t.Errorf("enabled set = %v, want %v", got, want)
	}
}

func TestExecutionModesReflectsDeclared(t *testing.T) {
	ctx := context.Background()
	_, comp := singleCompiler(t)

	modes, err := comp.ExecutionModes(ctx)
	if err != nil {
		t.Fatalf("ExecutionModes() error = %v", err)
	}
	if got, want := modes, []abi.ExecutionMode{abi.ExecutionModeOriginUpperLeft}; !reflect.DeepEqual(got, want) {
		t.Errorf("ExecutionModes() = %v, want %v", got, want)
	}
}

func TestExecutionModeArguments(t *testing.T) {
	ctx := context.Background()
	_, comp := singleCompiler(t)

	if err := comp.SetExecutionMode(ctx, abi.ExecutionModeLocalSize, LocalSize{X: 4, Y: 1, Z: 1}); err != nil {
		t.Fatalf("SetExecutionMode(LocalSize) error = %v", err)
	}

	args, err := comp.ExecutionModeArguments(ctx, abi.ExecutionModeLocalSize)
	if err != nil {
		t.Fatalf("ExecutionModeArguments() error = %v", err)
	}
	if got, want := args, (LocalSize{X: 4, Y: 1, Z: 1}); got != want {
		t.Errorf("ExecutionModeArguments(LocalSize) = %v, want %v", got, want)
	}
}

func TestExecutionModeArgumentsNeverSet(t *testing.T) {
	ctx := context.Background()
	_, comp := singleCompiler(t)

	tests := []struct {
		name string
		mode abi.ExecutionMode
	}{
		{"local size", abi.ExecutionModeLocalSize},
		{"local size id", abi.ExecutionModeLocalSizeId},
		{"invocations", abi.ExecutionModeInvocations},
		{"early fragment tests", abi.ExecutionModeEarlyFragmentTests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := comp.ExecutionModeArguments(ctx, tt.mode)
			if err != nil {
				t.Fatalf("ExecutionModeArguments() error = %v", err)
			}
			if args != nil {
				t.Errorf("ExecutionModeArguments(unset) = %v, want nil", args)
			}
		})
	}
}

func TestExecutionModeArgumentKinds(t *testing.T) {
	ctx := context.Background()
	_, comp := singleCompiler(t)

	if err := comp.SetExecutionMode(ctx, abi.ExecutionModeInvocations, UnitArgument(3)); err != nil {
		t.Fatalf("SetExecutionMode(Invocations) error = %v", err)
	}
	args, err := comp.ExecutionModeArguments(ctx, abi.ExecutionModeInvocations)
	if err != nil {
		t.Fatalf("ExecutionModeArguments() error = %v", err)
	}
	if got, want := args, UnitArgument(3); got != want {
		t.Errorf("ExecutionModeArguments(Invocations) = %v, want %v", got, want)
	}

	// A declared no-argument mode reports NoArguments, not nil.
	args, err = comp.ExecutionModeArguments(ctx, abi.ExecutionModeOriginUpperLeft)
	if err != nil {
		t.Fatalf("ExecutionModeArguments() error = %v", err)
	}
	if _, ok := args.(NoArguments); !ok {
		t.Errorf("ExecutionModeArguments(OriginUpperLeft) = %v, want NoArguments", args)
	}
}

func TestLocalSizeIdRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, comp := singleCompiler(t)

	set := LocalSizeId{
		X: CreateHandle(comp, abi.ConstantID(21)),
		Y: CreateHandle(comp, abi.ConstantID(22)),
		Z: CreateHandle(comp, abi.ConstantID(23)),
	}
	if err := comp.SetExecutionMode(ctx, abi.ExecutionModeLocalSizeId, set); err != nil {
		t.Fatalf("SetExecutionMode(LocalSizeId) error = %v", err)
	}

	args, err := comp.ExecutionModeArguments(ctx, abi.ExecutionModeLocalSizeId)
	if err != nil {
		t.Fatalf("ExecutionModeArguments() error = %v", err)
	}
	got, ok := args.(LocalSizeId)
	if !ok {
		t.Fatalf("ExecutionModeArguments(LocalSizeId) = %T, want LocalSizeId", args)
	}
	if got.X.ID() != 21 || got.Y.ID() != 22 || got.Z.ID() != 23 {
		t.Errorf("LocalSizeId IDs = (%d,%d,%d), want (21,22,23)", got.X.ID(), got.Y.ID(), got.Z.ID())
	}
	if !comp.HandleValid(got.X) {
		t.Errorf("reflected constant handle not tagged with this instance")
	}
}

func TestUnsetExecutionMode(t *testing.T) {
	ctx := context.Background()
	_, comp := singleCompiler(t)

	if err := comp.SetExecutionMode(ctx, abi.ExecutionModeLocalSize, LocalSize{X: 2, Y: 2, Z: 2}); err != nil {
		t.Fatalf("SetExecutionMode() error = %v", err)
	}
	if err := comp.SetExecutionMode(ctx, abi.ExecutionModeLocalSize, nil); err != nil {
		t.Fatalf("SetExecutionMode(nil) error = %v", err)
	}

	args, err := comp.ExecutionModeArguments(ctx, abi.ExecutionModeLocalSize)
	if err != nil {
		t.Fatalf("ExecutionModeArguments() error = %v", err)
	}
	if args != nil {
		t.Errorf("ExecutionModeArguments() after unset = %v, want nil", args)
	}
}

func TestDecorationRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, comp := singleCompiler(t)
	h := CreateHandle(comp, abi.VariableID(13))

	if _, present, _ := comp.Decoration(ctx, h, abi.DecorationBinding); present {
		t.Fatalf("Decoration() present before set")
	}

	if err := comp.SetDecoration(ctx, h, abi.DecorationBinding, 7); err != nil {
		t.Fatalf("SetDecoration() error = %v", err)
	}
	v, present, err := comp.Decoration(ctx, h, abi.DecorationBinding)
	if err != nil {
		t.Fatalf("Decoration() error = %v", err)
	}
	if !present || v != 7 {
		t.Errorf("Decoration() = (%d, %t), want (7, true)", v, present)
	}

	has, err := comp.HasDecoration(ctx, h, abi.DecorationBinding)
	if err != nil {
		t.Fatalf("HasDecoration() error = %v", err)
	}
	if !has {
		t.Errorf("HasDecoration() = false after set")
	}

	if err := comp.UnsetDecoration(ctx, h, abi.DecorationBinding); err != nil {
		t.Fatalf("UnsetDecoration() error = %v", err)
	}
	if _, present, _ := comp.Decoration(ctx, h, abi.DecorationBinding); present {
		t.Errorf("Decoration() present after unset")
	}
}

func TestDecorationStringRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, comp := singleCompiler(t)
	h := CreateHandle(comp, abi.VariableID(13))

	if err := comp.SetDecorationString(ctx, h, abi.DecorationHlslSemantic, NewString("SV_Target")); err != nil {
		t.Fatalf("SetDecorationString() error = %v", err)
	}
	s, err := comp.DecorationString(ctx, h, abi.DecorationHlslSemantic)
	if err != nil {
		t.Fatalf("DecorationString() error = %v", err)
	}
	if s.String() != "SV_Target" {
		t.Errorf("DecorationString() = %q, want %q", s.String(), "SV_Target")
	}
}

func TestEntryPoints(t *testing.T) {
	ctx := context.Background()
	_, comp := singleCompiler(t)

	eps, err := comp.EntryPoints(ctx)
	if err != nil {
		t.Fatalf("EntryPoints() error = %v", err)
	}
	if len(eps) != 1 {
		t.Fatalf("EntryPoints() returned %d entries, want 1", len(eps))
	}
	if eps[0].Name.String() != "main" {
		t.Errorf("entry point name = %q, want %q", eps[0].Name.String(), "main")
	}
	if eps[0].ExecutionModel != abi.ExecutionModelFragment {
		t.Errorf("execution model = %v, want fragment", eps[0].ExecutionModel)
	}
}

func TestCombinedImageSamplerFlow(t *testing.T) {
	ctx := context.Background()
	_, comp := singleCompiler(t)

	proof, err := comp.CreateDummySamplerForCombinedImages(ctx)
	if err != nil {
		t.Fatalf("CreateDummySamplerForCombinedImages() error = %v", err)
	}
	if !proof.HasSampler {
		t.Fatalf("no dummy sampler handle returned")
	}
	if !comp.HandleValid(proof.SamplerID) {
		t.Errorf("sampler handle not tagged with this instance")
	}

	if err := comp.BuildCombinedImageSamplers(ctx, proof); err != nil {
		t.Fatalf("BuildCombinedImageSamplers() error = %v", err)
	}

	samplers, err := comp.CombinedImageSamplers(ctx)
	if err != nil {
		t.Fatalf("CombinedImageSamplers() error = %v", err)
	}
	if len(samplers) != 1 {
		t.Fatalf("CombinedImageSamplers() returned %d entries, want 1", len(samplers))
	}
	s := samplers[0]
	if s.CombinedID.ID() != 50 || s.ImageID.ID() != 13 || s.SamplerID.ID() != 42 {
		t.Errorf("remapping = (%d,%d,%d), want (50,13,42)",
			s.CombinedID.ID(), s.ImageID.ID(), s.SamplerID.ID())
	}
	if !comp.HandleValid(s.CombinedID) {
		t.Errorf("combined handle not tagged with this instance")
	}
}
