package spvcross

import (
	"encoding/binary"

	"github.com/gogpu/spvcross/errors"
)

// spirvMagic is the first word of every SPIR-V binary.
const spirvMagic = 0x07230203

// Module is a SPIR-V module represented as SPIR-V words. It does not own
// the words; the slice must stay alive until the module has been parsed.
type Module struct {
	words []uint32
}

// ModuleFromWords creates a Module from SPIR-V words.
func ModuleFromWords(words []uint32) Module {
	return Module{words: words}
}

// ModuleFromBytes creates a Module from a little-endian SPIR-V binary.
// The length must be a multiple of four and the magic word must match.
func ModuleFromBytes(data []byte) (Module, error) {
	if len(data) < 4 || len(data)%4 != 0 {
		return Module{}, errors.InvalidInput(errors.PhaseParse,
			"SPIR-V binary length must be a non-zero multiple of 4")
	}

	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}

	if words[0] != spirvMagic {
		return Module{}, errors.InvalidInput(errors.PhaseParse,
			"missing SPIR-V magic word")
	}
	return Module{words: words}, nil
}

// Words returns the SPIR-V words of the module.
func (m Module) Words() []uint32 {
	return m.words
}
