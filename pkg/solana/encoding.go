package solana

import (
	"bytes"
	"crypto/ed25519"
	"io"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/solana-starter/pkg/solana/shortvec"
)

// Marshal returns the legacy wire encoding of the transaction
func (t Transaction) Marshal() []byte {
	var b bytes.Buffer

	_, _ = shortvec.EncodeLen(&b, len(t.Signatures))
	for _, s := range t.Signatures {
		b.Write(s[:])
	}
	b.Write(t.Message.Marshal())

	return b.Bytes()
}

// MarshalChecked marshals the transaction, failing if the wire size exceeds
// MaxTransactionSize.
func (t Transaction) MarshalChecked() ([]byte, error) {
	b := t.Marshal()
	if len(b) > MaxTransactionSize {
		return nil, errors.Wrapf(ErrTransactionTooLarge, "size=%d", len(b))
	}
	return b, nil
}

// ToBase58 returns the base58 wire encoding used by sendTransaction.
func (t Transaction) ToBase58() string {
	return base58.Encode(t.Marshal())
}

func (t *Transaction) Unmarshal(b []byte) error {
	r := newWireReader(b)

	sigLen := r.len("signature")
	t.Signatures = make([]Signature, sigLen)
	for i := range t.Signatures {
		r.read(t.Signatures[i][:], "signature")
	}
	if r.err != nil {
		return r.err
	}

	return t.Message.Unmarshal(r.rest())
}

func (m Message) Marshal() []byte {
	var b bytes.Buffer

	b.Write([]byte{m.Header.NumSignatures, m.Header.NumReadonlySigned, m.Header.NumReadOnly})

	_, _ = shortvec.EncodeLen(&b, len(m.Accounts))
	for _, a := range m.Accounts {
		b.Write(a)
	}

	b.Write(m.RecentBlockhash[:])

	_, _ = shortvec.EncodeLen(&b, len(m.Instructions))
	for _, i := range m.Instructions {
		b.WriteByte(i.ProgramIndex)

		_, _ = shortvec.EncodeLen(&b, len(i.Accounts))
		b.Write(i.Accounts)

		_, _ = shortvec.EncodeLen(&b, len(i.Data))
		b.Write(i.Data)
	}

	return b.Bytes()
}

func (m *Message) Unmarshal(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	// Versioned messages set the high bit of the first byte
	if b[0]&0x80 != 0 {
		return errors.New("versioned messages not supported")
	}

	r := newWireReader(b)

	var header [3]byte
	r.read(header[:], "header")
	m.Header = Header{
		NumSignatures:     header[0],
		NumReadonlySigned: header[1],
		NumReadOnly:       header[2],
	}

	m.Accounts = make([]ed25519.PublicKey, r.len("account"))
	for i := range m.Accounts {
		m.Accounts[i] = make(ed25519.PublicKey, ed25519.PublicKeySize)
		r.read(m.Accounts[i], "account")
	}

	r.read(m.RecentBlockhash[:], "recent blockhash")

	m.Instructions = make([]CompiledInstruction, r.len("instruction"))
	for i := range m.Instructions {
		var programIndex [1]byte
		r.read(programIndex[:], "program index")

		c := CompiledInstruction{ProgramIndex: programIndex[0]}
		c.Accounts = r.bytes("instruction accounts")
		c.Data = r.bytes("instruction data")
		if r.err != nil {
			return errors.Wrapf(r.err, "instruction %d", i)
		}

		if int(c.ProgramIndex) >= len(m.Accounts) {
			return errors.Errorf("program index out of range: %d:%d", i, c.ProgramIndex)
		}
		for _, index := range c.Accounts {
			if int(index) >= len(m.Accounts) {
				return errors.Errorf("account index out of range: %d:%d", i, index)
			}
		}

		m.Instructions[i] = c
	}

	return r.err
}

// wireReader decodes a message field by field. The first failure sticks and
// turns every later read into a no-op.
type wireReader struct {
	buf *bytes.Reader
	err error
}

func newWireReader(b []byte) *wireReader {
	return &wireReader{buf: bytes.NewReader(b)}
}

func (r *wireReader) len(field string) int {
	if r.err != nil {
		return 0
	}

	n, err := shortvec.DecodeLen(r.buf)
	if err != nil {
		r.err = errors.Wrapf(err, "failed to read %s length", field)
		return 0
	}
	return n
}

func (r *wireReader) read(dst []byte, field string) {
	if r.err != nil {
		return
	}

	if _, err := io.ReadFull(r.buf, dst); err != nil {
		r.err = errors.Wrapf(err, "failed to read %s", field)
	}
}

func (r *wireReader) bytes(field string) []byte {
	dst := make([]byte, r.len(field))
	r.read(dst, field)
	return dst
}

func (r *wireReader) rest() []byte {
	rest := make([]byte, r.buf.Len())
	_, _ = r.buf.Read(rest)
	return rest
}
