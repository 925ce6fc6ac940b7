package compute_budget

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/solana-starter/pkg/solana"
	solana_binary "github.com/code-payments/solana-starter/pkg/solana/binary"
)

// ComputeBudget111111111111111111111111111111
var ProgramKey = ed25519.PublicKey{3, 6, 70, 111, 229, 33, 23, 50, 255, 236, 173, 186, 114, 195, 155, 231, 188, 140, 229, 187, 197, 247, 18, 107, 44, 67, 155, 58, 64, 0, 0, 0}

// Single byte instruction tags. Only the limit and price variants are built
// here; the first two are deprecated on mainnet.
const (
	tagRequestUnits uint8 = iota
	tagRequestHeapFrame
	tagSetComputeUnitLimit
	tagSetComputeUnitPrice
)

var (
	ErrInvalidLength      = errors.New("invalid compute budget instruction length")
	ErrUnexpectedTag      = errors.New("unexpected compute budget instruction")
	ErrDuplicateBudgetTag = errors.New("duplicate compute budget instruction")
)

func SetComputeUnitLimit(limit uint32) solana.Instruction {
	data := []byte{tagSetComputeUnitLimit, 0, 0, 0, 0}

	offset := 1
	solana_binary.PutUint32(data[offset:], limit, &offset)

	return solana.NewInstruction(ProgramKey, data)
}

// SetComputeUnitPrice sets the priority fee in micro-lamports per compute unit
func SetComputeUnitPrice(microLamports uint64) solana.Instruction {
	data := make([]byte, 1+8)
	data[0] = tagSetComputeUnitPrice

	offset := 1
	solana_binary.PutUint64(data[offset:], microLamports, &offset)

	return solana.NewInstruction(ProgramKey, data)
}

func ParseComputeUnitLimit(data []byte) (uint32, error) {
	if err := checkTag(data, tagSetComputeUnitLimit, 1+4); err != nil {
		return 0, err
	}

	var limit uint32
	offset := 1
	solana_binary.GetUint32(data[offset:], &limit, &offset)
	return limit, nil
}

func ParseComputeUnitPrice(data []byte) (uint64, error) {
	if err := checkTag(data, tagSetComputeUnitPrice, 1+8); err != nil {
		return 0, err
	}

	var price uint64
	offset := 1
	solana_binary.GetUint64(data[offset:], &price, &offset)
	return price, nil
}

func checkTag(data []byte, tag uint8, size int) error {
	if len(data) == 0 || data[0] != tag {
		return ErrUnexpectedTag
	}
	if len(data) != size {
		return ErrInvalidLength
	}
	return nil
}

// IsProgram reports whether the instruction at index targets the compute
// budget program.
func IsProgram(m solana.Message, index int) bool {
	if index < 0 || index >= len(m.Instructions) {
		return false
	}
	return bytes.Equal(m.Accounts[m.Instructions[index].ProgramIndex], ProgramKey)
}

// Budget is the compute budget requested by a transaction. Zero values mean
// the instruction wasn't present.
type Budget struct {
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
}

// DecompileBudget collects every compute budget instruction in the message.
// Duplicate instructions are rejected, as they are by the runtime.
func DecompileBudget(m solana.Message) (*Budget, error) {
	var budget Budget
	seen := make(map[uint8]struct{})

	for i, ixn := range m.Instructions {
		if !IsProgram(m, i) {
			continue
		}
		if len(ixn.Data) == 0 {
			return nil, errors.Wrapf(ErrInvalidLength, "instruction %d", i)
		}

		tag := ixn.Data[0]
		if _, ok := seen[tag]; ok {
			return nil, errors.Wrapf(ErrDuplicateBudgetTag, "instruction %d", i)
		}
		seen[tag] = struct{}{}

		var err error
		switch tag {
		case tagSetComputeUnitLimit:
			budget.ComputeUnitLimit, err = ParseComputeUnitLimit(ixn.Data)
		case tagSetComputeUnitPrice:
			budget.ComputeUnitPrice, err = ParseComputeUnitPrice(ixn.Data)
		default:
			err = ErrUnexpectedTag
		}
		if err != nil {
			return nil, errors.Wrapf(err, "instruction %d", i)
		}
	}

	return &budget, nil
}
