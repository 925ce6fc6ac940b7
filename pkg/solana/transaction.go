package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"slices"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const (
	// MaxTransactionSize taken from: https://github.com/solana-labs/solana/blob/39b3ac6a8d29e14faa1de73d8b46d390ad41797b/sdk/src/packet.rs#L9-L13
	MaxTransactionSize = 1232
)

var (
	ErrTransactionTooLarge = errors.New("transaction exceeds max size")
)

type Signature [ed25519.SignatureSize]byte
type Blockhash [sha256.Size]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (b Blockhash) String() string {
	return base58.Encode(b[:])
}

type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

type Message struct {
	Header          Header
	Accounts        []ed25519.PublicKey
	RecentBlockhash Blockhash
	Instructions    []CompiledInstruction
}

type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewLegacyTransaction compiles the instructions into a legacy transaction
// paid for by payer. Instructions execute in the order they're provided.
func NewLegacyTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	m := compileMessage(payer, instructions)
	return Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}
}

// compileMessage dedupes every referenced account, orders them as the runtime
// expects and rewrites the instructions to reference accounts by index.
//
// Order: fee payer, writable signers, readonly signers, writable non-signers,
// readonly non-signers, then programs.
func compileMessage(payer ed25519.PublicKey, instructions []Instruction) Message {
	metas := []AccountMeta{{PublicKey: payer, IsSigner: true, IsWritable: true, isPayer: true}}
	for _, ixn := range instructions {
		metas = append(metas, AccountMeta{PublicKey: ixn.Program, isProgram: true})
		metas = append(metas, ixn.Accounts...)
	}

	metas = mergeAccountMeta(metas)
	slices.SortFunc(metas, compareAccountMeta)

	var m Message
	m.Accounts = make([]ed25519.PublicKey, len(metas))
	for i, meta := range metas {
		m.Accounts[i] = meta.PublicKey

		switch {
		case meta.IsSigner && meta.IsWritable:
			m.Header.NumSignatures++
		case meta.IsSigner:
			m.Header.NumSignatures++
			m.Header.NumReadonlySigned++
		case !meta.IsWritable:
			m.Header.NumReadOnly++
		}
	}

	m.Instructions = make([]CompiledInstruction, len(instructions))
	for i, ixn := range instructions {
		compiled := CompiledInstruction{
			ProgramIndex: byte(indexOf(m.Accounts, ixn.Program)),
			Accounts:     make([]byte, len(ixn.Accounts)),
			Data:         ixn.Data,
		}
		for j, meta := range ixn.Accounts {
			compiled.Accounts[j] = byte(indexOf(m.Accounts, meta.PublicKey))
		}
		m.Instructions[i] = compiled
	}

	// An unset key still occupies a full slot on the wire
	for i, key := range m.Accounts {
		if len(key) == 0 {
			m.Accounts[i] = make(ed25519.PublicKey, ed25519.PublicKeySize)
		}
	}

	return m
}

// Signature returns the fee payer's signature, which doubles as the
// transaction id.
func (t *Transaction) Signature() Signature {
	if len(t.Signatures) == 0 {
		return Signature{}
	}
	return t.Signatures[0]
}

// FeePayer returns the account paying for the transaction.
func (t *Transaction) FeePayer() ed25519.PublicKey {
	if len(t.Message.Accounts) == 0 {
		return nil
	}
	return t.Message.Accounts[0]
}

// Signers returns the accounts whose signatures are required.
func (t *Transaction) Signers() []ed25519.PublicKey {
	return t.Message.Accounts[:t.Message.Header.NumSignatures]
}

// IsSigner reports whether the account is in the required signer set.
func (t *Transaction) IsSigner(pub ed25519.PublicKey) bool {
	index := indexOf(t.Message.Accounts, pub)
	return index >= 0 && index < int(t.Message.Header.NumSignatures)
}

// IsWritable reports whether the account at the message index is writable.
func (m Message) IsWritable(index int) bool {
	numSigned := int(m.Header.NumSignatures)
	if index < numSigned {
		return index < numSigned-int(m.Header.NumReadonlySigned)
	}
	return index < len(m.Accounts)-int(m.Header.NumReadOnly)
}

// IsFullySigned reports whether every required signature slot is populated.
func (t *Transaction) IsFullySigned() bool {
	for _, s := range t.Signatures {
		if s == (Signature{}) {
			return false
		}
	}
	return len(t.Signatures) > 0
}

// VerifySignatures checks every required signature against the message.
func (t *Transaction) VerifySignatures() error {
	if len(t.Signatures) != int(t.Message.Header.NumSignatures) {
		return errors.Errorf("expected %d signatures, got %d", t.Message.Header.NumSignatures, len(t.Signatures))
	}

	messageBytes := t.Message.Marshal()
	for i, s := range t.Signatures {
		if !ed25519.Verify(t.Message.Accounts[i], messageBytes, s[:]) {
			return errors.Errorf("invalid signature for %s", base58.Encode(t.Message.Accounts[i]))
		}
	}

	return nil
}

func (t *Transaction) SetBlockhash(bh Blockhash) {
	t.Message.RecentBlockhash = bh
}

// Sign signs the message with each signer. Signers may be applied in any
// order and across multiple calls, as long as the blockhash isn't changed in
// between.
func (t *Transaction) Sign(signers ...ed25519.PrivateKey) error {
	message := t.Message.Marshal()

	for _, signer := range signers {
		var sig Signature
		copy(sig[:], ed25519.Sign(signer, message))

		if err := t.AddSignature(signer.Public().(ed25519.PublicKey), sig); err != nil {
			return err
		}
	}
	return nil
}

// AddSignature places an externally produced signature into the slot of pub.
func (t *Transaction) AddSignature(pub ed25519.PublicKey, sig Signature) error {
	index := indexOf(t.Message.Accounts, pub)
	if index < 0 || index >= len(t.Signatures) {
		return errors.Errorf("account %s is not in the list of signers", base58.Encode(pub))
	}

	t.Signatures[index] = sig
	return nil
}

func indexOf(keys []ed25519.PublicKey, key ed25519.PublicKey) int {
	return slices.IndexFunc(keys, func(k ed25519.PublicKey) bool {
		return bytes.Equal(k, key)
	})
}
