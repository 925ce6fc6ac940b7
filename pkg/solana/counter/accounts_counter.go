package counter

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/code-payments/solana-starter/pkg/solana/binary"
)

const (
	CounterAccountSize = (8 + // discriminator
		8) // count
)

var CounterAccountDiscriminator = anchorDiscriminator("account", "Counter")

type CounterAccount struct {
	Address ed25519.PublicKey
	Count   uint64
}

func (obj *CounterAccount) Marshal() []byte {
	var offset int

	data := make([]byte, CounterAccountSize)
	binary.PutDiscriminator(data[offset:], CounterAccountDiscriminator, &offset)
	binary.PutUint64(data[offset:], obj.Count, &offset)

	return data
}

func (obj *CounterAccount) Unmarshal(data []byte) error {
	if len(data) < CounterAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	binary.GetDiscriminator(data[offset:], &discriminator, &offset)
	if !bytes.Equal(discriminator, CounterAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	binary.GetUint64(data[offset:], &obj.Count, &offset)

	return nil
}

func (obj *CounterAccount) String() string {
	return fmt.Sprintf(
		"CounterAccount{address=%s,count=%d}",
		base58.Encode(obj.Address),
		obj.Count,
	)
}
