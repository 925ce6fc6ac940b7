package counter

import (
	"bytes"
	"crypto/sha256"
)

type InstructionType uint8

const (
	InstructionTypeUnknown InstructionType = iota
	InstructionTypeInitialize
	InstructionTypeIncrement
	InstructionTypeDecrement
)

var (
	initializeDiscriminator = anchorDiscriminator("global", "initialize")
	incrementDiscriminator  = anchorDiscriminator("global", "increment")
	decrementDiscriminator  = anchorDiscriminator("global", "decrement")
)

func (t InstructionType) discriminator() []byte {
	switch t {
	case InstructionTypeInitialize:
		return initializeDiscriminator
	case InstructionTypeIncrement:
		return incrementDiscriminator
	case InstructionTypeDecrement:
		return decrementDiscriminator
	}
	return nil
}

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeInitialize:
		return "initialize"
	case InstructionTypeIncrement:
		return "increment"
	case InstructionTypeDecrement:
		return "decrement"
	}
	return "unknown"
}

func instructionTypeFromData(data []byte) InstructionType {
	if len(data) < 8 {
		return InstructionTypeUnknown
	}

	for _, t := range []InstructionType{
		InstructionTypeInitialize,
		InstructionTypeIncrement,
		InstructionTypeDecrement,
	} {
		if bytes.Equal(data[:8], t.discriminator()) {
			return t
		}
	}
	return InstructionTypeUnknown
}

// Anchor derives discriminators from the first 8 bytes of
// sha256("<namespace>:<name>").
func anchorDiscriminator(namespace, name string) []byte {
	h := sha256.Sum256([]byte(namespace + ":" + name))
	return h[:8]
}
