package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"
)

// PollRate is half a slot at the default tick rate of 160 ticks per second and
// 64 ticks per slot.
const PollRate = 200 * time.Millisecond

// JSON-RPC error codes with a meaning specific to Solana nodes.
//
// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs
const (
	codePreflightFailure = -32002
	codeNodeUnhealthy    = -32005
)

var (
	ErrNoAccountInfo = errors.New("no account info")
	ErrRateLimited   = errors.New("rate limited")
	ErrServiceError  = errors.New("service error")
)

// AccountInfo is the lamport balance, owner and raw data of an account
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

// SendConfig controls how sendTransaction treats a submission.
type SendConfig struct {
	SkipPreflight       bool
	PreflightCommitment Commitment
}

// Client is the subset of the Solana JSON-RPC API used to submit and track
// transactions.
//
// Every method makes a single attempt. Callers own any retry policy.
//
// Reference: https://solana.com/docs/rpc
type Client interface {
	GetAccountInfo(ed25519.PublicKey, Commitment) (AccountInfo, error)
	GetBlockHeight(Commitment) (uint64, error)
	GetLatestBlockhash(Commitment) (Blockhash, uint64, error)
	GetSignatureStatuses([]Signature) ([]*SignatureStatus, error)
	RequestAirdrop(ed25519.PublicKey, uint64, Commitment) (Signature, error)
	SendTransaction(Transaction, SendConfig) (Signature, error)
}

type client struct {
	log *logrus.Entry
	rpc jsonrpc.RPCClient
}

// New returns a client for the node at endpoint.
func New(endpoint string) Client {
	return &client{
		log: logrus.StandardLogger().WithField("type", "solana/client"),
		rpc: jsonrpc.NewClient(endpoint),
	}
}

// call invokes method and maps transport level failures onto ErrRateLimited
// and ErrServiceError. Any other error is returned as is, so callers can still
// inspect a *jsonrpc.RPCError.
func (c *client) call(out interface{}, method string, params ...interface{}) error {
	err := c.rpc.CallFor(out, method, params...)
	if err == nil {
		return nil
	}

	var code int
	var message string
	switch typed := err.(type) {
	case *jsonrpc.HTTPError:
		code, message = typed.Code, typed.Error()
	case *jsonrpc.RPCError:
		code, message = typed.Code, typed.Message
	default:
		return err
	}

	switch {
	case code == http.StatusTooManyRequests:
		c.log.WithField("method", method).Warn("rate limited")
		return ErrRateLimited
	case code >= http.StatusInternalServerError, code == codeNodeUnhealthy:
		return errors.Wrap(ErrServiceError, message)
	}
	return err
}

// commitmentParam wraps a commitment the way nodes expect it for methods that
// take no positional argument.
func commitmentParam(commitment Commitment) []interface{} {
	return []interface{}{commitment}
}

func (c *client) GetBlockHeight(commitment Commitment) (uint64, error) {
	var height uint64
	if err := c.call(&height, "getBlockHeight", commitmentParam(commitment)); err != nil {
		return 0, errors.Wrap(err, "getBlockHeight() failed")
	}
	return height, nil
}

// GetLatestBlockhash returns the latest blockhash along with the last block
// height at which a transaction referencing it is still eligible for inclusion.
//
// Results are never cached. A transaction must always be built against a
// freshly fetched blockhash.
func (c *client) GetLatestBlockhash(commitment Commitment) (Blockhash, uint64, error) {
	var resp struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(&resp, "getLatestBlockhash", commitmentParam(commitment)); err != nil {
		return Blockhash{}, 0, errors.Wrap(err, "getLatestBlockhash() failed")
	}

	var hash Blockhash
	if err := decodeFixed(hash[:], resp.Value.Blockhash); err != nil {
		return Blockhash{}, 0, errors.Wrap(err, "invalid blockhash in response")
	}
	return hash, resp.Value.LastValidBlockHeight, nil
}

func (c *client) GetAccountInfo(account ed25519.PublicKey, commitment Commitment) (AccountInfo, error) {
	var resp struct {
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"`
			Executable bool     `json:"executable"`
		} `json:"value"`
	}
	opts := map[string]string{
		"commitment": commitment.Commitment,
		"encoding":   "base64",
	}
	if err := c.call(&resp, "getAccountInfo", base58.Encode(account), opts); err != nil {
		return AccountInfo{}, errors.Wrap(err, "getAccountInfo() failed")
	}
	if resp.Value == nil {
		return AccountInfo{}, ErrNoAccountInfo
	}

	info := AccountInfo{
		Lamports:   resp.Value.Lamports,
		Executable: resp.Value.Executable,
	}

	owner, err := base58.Decode(resp.Value.Owner)
	if err != nil {
		return AccountInfo{}, errors.Wrap(err, "invalid owner in response")
	}
	info.Owner = owner

	// Data is a [payload, encoding] pair
	if len(resp.Value.Data) > 0 {
		if info.Data, err = base64.StdEncoding.DecodeString(resp.Value.Data[0]); err != nil {
			return AccountInfo{}, errors.Wrap(err, "invalid account data in response")
		}
	}
	return info, nil
}

// SendTransaction submits a fully signed transaction. It does not wait for
// the transaction to land.
//
// A node rejection that carries a transaction error, such as a preflight
// simulation failure, is returned as a *TransactionError.
func (c *client) SendTransaction(txn Transaction, config SendConfig) (Signature, error) {
	sig := txn.Signature()

	raw, err := txn.MarshalChecked()
	if err != nil {
		return sig, err
	}

	preflight := config.PreflightCommitment.Commitment
	if preflight == "" {
		preflight = CommitmentProcessed.Commitment
	}
	opts := map[string]interface{}{
		"skipPreflight":       config.SkipPreflight,
		"preflightCommitment": preflight,
		"encoding":            "base64",
	}

	var returned string
	err = c.call(&returned, "sendTransaction", base64.StdEncoding.EncodeToString(raw), opts)
	if err != nil {
		rpcErr, ok := err.(*jsonrpc.RPCError)
		if !ok {
			return sig, errors.Wrap(err, "sendTransaction() failed")
		}

		txErr, parseErr := ParseRPCError(rpcErr)
		if parseErr != nil || txErr == nil {
			return sig, err
		}

		c.log.WithFields(logrus.Fields{
			"method":    "sendTransaction",
			"signature": sig.String(),
			"preflight": rpcErr.Code == codePreflightFailure,
		}).WithError(txErr).Debug("transaction rejected")
		return sig, txErr
	}

	if returned != "" && returned != sig.String() {
		return sig, errors.Errorf("node returned unexpected signature %s", returned)
	}
	return sig, nil
}

func (c *client) RequestAirdrop(account ed25519.PublicKey, lamports uint64, commitment Commitment) (Signature, error) {
	var encoded string
	if err := c.call(&encoded, "requestAirdrop", base58.Encode(account), lamports, commitment); err != nil {
		return Signature{}, errors.Wrap(err, "requestAirdrop() failed")
	}

	sig, err := SignatureFromString(encoded)
	if err != nil {
		return Signature{}, errors.Wrap(err, "invalid signature in response")
	}
	if sig == (Signature{}) {
		return Signature{}, errors.New("empty signature returned")
	}
	return sig, nil
}

// GetSignatureStatuses returns one entry per signature. Entries are nil for
// signatures the node hasn't seen. Only recent history is searched.
func (c *client) GetSignatureStatuses(sigs []Signature) ([]*SignatureStatus, error) {
	encoded := make([]string, len(sigs))
	for i, sig := range sigs {
		encoded[i] = sig.String()
	}

	var resp struct {
		Value []*struct {
			Slot               uint64          `json:"slot"`
			Confirmations      *int            `json:"confirmations"`
			ConfirmationStatus string          `json:"confirmationStatus"`
			Err                json.RawMessage `json:"err"`
		} `json:"value"`
	}
	opts := map[string]bool{"searchTransactionHistory": false}
	if err := c.call(&resp, "getSignatureStatuses", encoded, opts); err != nil {
		return nil, errors.Wrap(err, "getSignatureStatuses() failed")
	}

	statuses := make([]*SignatureStatus, len(sigs))
	for i, v := range resp.Value {
		if v == nil || i >= len(statuses) {
			continue
		}

		txErr, err := decodeTransactionError(v.Err)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid status for %s", encoded[i])
		}

		statuses[i] = &SignatureStatus{
			Slot:               v.Slot,
			ErrorResult:        txErr,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: v.ConfirmationStatus,
		}
	}
	return statuses, nil
}

// decodeTransactionError parses the err field of a status. A missing or null
// field means the transaction succeeded.
func decodeTransactionError(raw json.RawMessage) (*TransactionError, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return ParseTransactionError(v)
}

// SignatureFromString decodes a base58 transaction signature.
func SignatureFromString(s string) (Signature, error) {
	var sig Signature
	if err := decodeFixed(sig[:], s); err != nil {
		return Signature{}, err
	}
	return sig, nil
}

// decodeFixed base58 decodes s into dst, which must be filled exactly.
func decodeFixed(dst []byte, s string) error {
	b, err := base58.Decode(s)
	if err != nil {
		return err
	}
	if len(b) != len(dst) {
		return errors.Errorf("invalid length: %d", len(b))
	}
	copy(dst, b)
	return nil
}
