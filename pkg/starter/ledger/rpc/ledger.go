package rpc

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/solana-starter/pkg/metrics"
	"github.com/code-payments/solana-starter/pkg/rate"
	"github.com/code-payments/solana-starter/pkg/retry"
	"github.com/code-payments/solana-starter/pkg/retry/backoff"
	"github.com/code-payments/solana-starter/pkg/solana"
	"github.com/code-payments/solana-starter/pkg/starter/ledger"
)

const (
	metricsStructName = "ledger.rpc"

	confirmationLatencyMetricName = "Ledger%ConfirmationLatency"
	submissionEventName           = "LedgerSubmission"
)

var (
	errNotConfirmed    = errors.New("transaction not yet confirmed")
	errPollLimitExceed = errors.New("confirmation poll limit exceeded")
)

// Ledger is a ledger.Ledger backed by a Solana JSON-RPC node.
//
// Every RPC call is made exactly once. Reads fail fast with
// solana.ErrRateLimited when the local rate limit is exhausted, while
// submissions and confirmation polls wait for capacity.
type Ledger struct {
	log     *logrus.Entry
	conf    *conf
	client  solana.Client
	limiter rate.Limiter
}

// New returns a new RPC ledger. A nil limiter disables rate limiting.
func New(client solana.Client, limiter rate.Limiter, configProvider ConfigProvider) *Ledger {
	if limiter == nil {
		limiter = &rate.NoLimiter{}
	}

	return &Ledger{
		log:     logrus.StandardLogger().WithField("type", "starter/ledger/rpc"),
		conf:    configProvider(),
		client:  client,
		limiter: limiter,
	}
}

// GetCheckpoint implements ledger.Ledger.GetCheckpoint
func (l *Ledger) GetCheckpoint(ctx context.Context) (*ledger.Checkpoint, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetCheckpoint")
	defer tracer.End()

	if err := l.allow("getLatestBlockhash"); err != nil {
		tracer.OnError(err)
		return nil, err
	}

	blockhash, lastValidBlockHeight, err := l.client.GetLatestBlockhash(l.readCommitment(ctx))
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error getting latest blockhash")
	}

	return &ledger.Checkpoint{
		Blockhash:            blockhash,
		LastValidBlockHeight: lastValidBlockHeight,
	}, nil
}

// GetAccountInfo implements ledger.Ledger.GetAccountInfo
func (l *Ledger) GetAccountInfo(ctx context.Context, account ed25519.PublicKey) (*solana.AccountInfo, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetAccountInfo")
	tracer.AddAttribute("account", base58.Encode(account))
	defer tracer.End()

	if err := l.allow("getAccountInfo"); err != nil {
		tracer.OnError(err)
		return nil, err
	}

	info, err := l.client.GetAccountInfo(account, l.readCommitment(ctx))
	if err == solana.ErrNoAccountInfo {
		return nil, ledger.ErrAccountNotFound
	} else if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error getting account info")
	}

	return &info, nil
}

// SubmitAndConfirm implements ledger.Ledger.SubmitAndConfirm
func (l *Ledger) SubmitAndConfirm(ctx context.Context, txn *solana.Transaction, opts ledger.SubmitOptions) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SubmitAndConfirm")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	sig = txn.Signature()
	tracer.AddAttribute("signature", sig.String())

	log := l.log.WithFields(logrus.Fields{
		"method":    "SubmitAndConfirm",
		"signature": sig.String(),
	})

	if err := ledger.ValidateForSubmission(txn); err != nil {
		return sig, err
	}

	if opts.Commitment == (solana.Commitment{}) {
		opts.Commitment = solana.CommitmentConfirmed
	}

	if err := l.limiter.Wait(ctx, "sendTransaction"); err != nil {
		return sig, errors.Wrap(err, "error waiting for rate limiter")
	}

	start := time.Now()
	_, err = l.client.SendTransaction(*txn, solana.SendConfig{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.Commitment,
	})
	if err != nil {
		log.WithError(err).Info("transaction submission failed")
		l.recordSubmission(ctx, sig, "rejected")
		return sig, errors.Wrap(err, "error submitting transaction")
	}

	log.Trace("transaction submitted, awaiting confirmation")

	err = l.awaitConfirmation(ctx, sig, opts.Commitment, opts.LastValidBlockHeight)
	if err != nil {
		log.WithError(err).Info("transaction failed to confirm")
		l.recordSubmission(ctx, sig, "failed")
		return sig, err
	}

	metrics.RecordDuration(ctx, confirmationLatencyMetricName, time.Since(start))
	l.recordSubmission(ctx, sig, "confirmed")

	return sig, nil
}

// RequestAirdrop implements ledger.Airdropper.RequestAirdrop. It blocks until
// the airdrop is confirmed.
func (l *Ledger) RequestAirdrop(ctx context.Context, account ed25519.PublicKey, lamports uint64) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "RequestAirdrop")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	if err := l.limiter.Wait(ctx, "requestAirdrop"); err != nil {
		return sig, errors.Wrap(err, "error waiting for rate limiter")
	}

	sig, err = l.client.RequestAirdrop(account, lamports, solana.CommitmentConfirmed)
	if err != nil {
		return sig, errors.Wrap(err, "error requesting airdrop")
	}

	return sig, l.awaitConfirmation(ctx, sig, solana.CommitmentConfirmed, 0)
}

// awaitConfirmation polls the signature status until it reaches the
// commitment, fails on chain, or lastValidBlockHeight passes without the
// transaction landing. The context bounds the wait in all cases.
func (l *Ledger) awaitConfirmation(ctx context.Context, sig solana.Signature, commitment solana.Commitment, lastValidBlockHeight uint64) error {
	pollInterval := l.conf.confirmationPollInterval.Get(ctx)

	strategies := []retry.Strategy{
		retry.RetriableErrors(errNotConfirmed),
	}
	if maxPolls := l.conf.maxConfirmationPolls.Get(ctx); maxPolls > 0 {
		strategies = append(strategies, retry.Limit(uint(maxPolls)))
	}
	strategies = append(strategies, retry.BackoffWithContext(ctx, backoff.Constant(pollInterval), pollInterval))

	_, err := retry.Retry(func() error {
		return l.pollSignatureStatus(ctx, sig, commitment, lastValidBlockHeight)
	}, strategies...)

	switch {
	case err == nil:
		return nil
	case err == errNotConfirmed && ctx.Err() != nil:
		return errors.Wrap(ctx.Err(), "transaction not confirmed before context was done")
	case err == errNotConfirmed:
		return errPollLimitExceed
	default:
		return err
	}
}

func (l *Ledger) pollSignatureStatus(ctx context.Context, sig solana.Signature, commitment solana.Commitment, lastValidBlockHeight uint64) error {
	if err := l.limiter.Wait(ctx, "getSignatureStatuses"); err != nil {
		return errors.Wrap(err, "error waiting for rate limiter")
	}

	statuses, err := l.client.GetSignatureStatuses([]solana.Signature{sig})
	if err != nil {
		return errors.Wrap(err, "error getting signature status")
	}

	var status *solana.SignatureStatus
	if len(statuses) > 0 {
		status = statuses[0]
	}

	if status == nil {
		if lastValidBlockHeight == 0 {
			return errNotConfirmed
		}

		// Not seen yet, so make sure it's still possible for it to land
		height, err := l.client.GetBlockHeight(commitment)
		if err != nil {
			return errors.Wrap(err, "error getting block height")
		}
		if height > lastValidBlockHeight {
			return errors.Wrapf(ledger.ErrCheckpointExpired, "block height %d exceeds %d", height, lastValidBlockHeight)
		}
		return errNotConfirmed
	}

	if status.ErrorResult != nil {
		return status.ErrorResult
	}

	if !status.Reached(commitment) {
		return errNotConfirmed
	}
	return nil
}

func (l *Ledger) allow(method string) error {
	allowed, err := l.limiter.Allow(method)
	if err != nil {
		return errors.Wrap(err, "error checking rate limiter")
	}
	if !allowed {
		return solana.ErrRateLimited
	}
	return nil
}

func (l *Ledger) readCommitment(ctx context.Context) solana.Commitment {
	commitment, err := solana.CommitmentFromString(l.conf.readCommitment.Get(ctx))
	if err != nil {
		l.log.WithError(err).Warn("invalid read commitment, defaulting to confirmed")
		return solana.CommitmentConfirmed
	}
	return commitment
}

func (l *Ledger) recordSubmission(ctx context.Context, sig solana.Signature, outcome string) {
	metrics.RecordEvent(ctx, submissionEventName, map[string]interface{}{
		"signature": sig.String(),
		"outcome":   outcome,
	})
}
