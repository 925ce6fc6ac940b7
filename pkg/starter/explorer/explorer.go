package explorer

import (
	"crypto/ed25519"
	"fmt"
	"net/url"

	"github.com/mr-tron/base58"

	"github.com/code-payments/solana-starter/pkg/solana"
)

const (
	DefaultHost = "explorer.solana.com"
)

type options struct {
	host string
}

type Option func(*options)

// WithHost links to an explorer other than the default.
func WithHost(host string) Option {
	return func(o *options) {
		o.host = host
	}
}

// TransactionURL links to a transaction on the public explorer, in the form
// https://<host>/tx/<signature>?cluster=<cluster>.
func TransactionURL(sig solana.Signature, cluster solana.Cluster, opts ...Option) string {
	return link("tx", base58.Encode(sig[:]), cluster, opts...)
}

// AccountURL links to an account on the public explorer, in the form
// https://<host>/address/<account>?cluster=<cluster>.
func AccountURL(account ed25519.PublicKey, cluster solana.Cluster, opts ...Option) string {
	return link("address", base58.Encode(account), cluster, opts...)
}

func link(kind, value string, cluster solana.Cluster, opts ...Option) string {
	o := &options{host: DefaultHost}
	for _, opt := range opts {
		opt(o)
	}

	return fmt.Sprintf("https://%s/%s/%s?cluster=%s", o.host, kind, value, url.QueryEscape(string(cluster)))
}
