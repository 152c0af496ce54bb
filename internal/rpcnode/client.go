// Package rpcnode wraps the Bitcoin node's JSON-RPC interface with bounded
// concurrency, retries on transient failures, and a transaction cache, so
// the Enricher can resolve a transaction (and the previous outputs its
// inputs spend) without hammering the node.
package rpcnode

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/p2ms-classifier/internal/clock"
	"github.com/goodnatureofminers/p2ms-classifier/internal/errs"
)

// Metrics is the subset of internal/metrics.NodeClient the Client needs.
type Metrics interface {
	Observe(operation string, err error, started time.Time)
	ObserveRetry(operation string)
	ObserveCacheLookup(hit bool)
}

// Config controls connection, concurrency, and retry behavior. Timeout is
// stored but not applied: the Client sets no per-request timeout on its RPC
// calls.
type Config struct {
	URL               string
	User              string
	Password          string
	Timeout           time.Duration
	RequestsPerSecond int
	MaxInFlight       int
	MaxRetries        int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultConfig returns the spec's suggested defaults, leaving connection
// fields empty for the caller to fill in.
func DefaultConfig() Config {
	return Config{
		Timeout:           60 * time.Second,
		RequestsPerSecond: 20,
		MaxInFlight:       8,
		MaxRetries:        10,
		InitialBackoff:    250 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// NewConnConfig builds an rpcclient.ConnConfig for an HTTP Bitcoin Core-style
// node, the same shape the ingester binaries already construct.
func NewConnConfig(rawURL, user, password string) (*rpcclient.ConnConfig, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}
	return &rpcclient.ConnConfig{
		Host:         parsed.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil
}

// Client retrieves transactions from a Bitcoin node with bounded
// concurrency, retry-with-backoff on transient errors, and a cache to avoid
// refetching a previous output's transaction more than once.
type Client struct {
	rpc     *rpcclient.Client
	metrics Metrics
	cache   *TxCache
	limiter ratelimit.Limiter
	sem     chan struct{}
	cfg     Config
	logger  *zap.Logger
}

// NewClient constructs a Client around an already-dialed rpcclient.Client.
func NewClient(rpc *rpcclient.Client, cfg Config, metrics Metrics, logger *zap.Logger) *Client {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 1
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		rpc:     rpc,
		metrics: metrics,
		cache:   NewTxCache(),
		limiter: ratelimit.New(rps),
		sem:     make(chan struct{}, cfg.MaxInFlight),
		cfg:     cfg,
		logger:  logger,
	}
}

// CacheStats exposes the Client's transaction cache hit/miss counters.
func (c *Client) CacheStats() CacheStats { return c.cache.Stats() }

// GetRawTransaction fetches the verbose transaction for txid, using the
// cache first and only invoking the node (with rate limiting, bounded
// concurrency, and retry) on a miss.
func (c *Client) GetRawTransaction(ctx context.Context, txid string) (*btcjson.TxRawResult, error) {
	if tx, ok := c.cache.Get(txid); ok {
		c.metrics.ObserveCacheLookup(true)
		return tx, nil
	}
	c.metrics.ObserveCacheLookup(false)

	tx, err := c.fetchWithRetry(ctx, "get_raw_transaction", func() (*btcjson.TxRawResult, error) {
		hash, err := chainhash.NewHashFromStr(txid)
		if err != nil {
			return nil, fmt.Errorf("%w: parse txid %q: %v", errs.ErrPermanentNode, txid, err)
		}
		return c.rpc.GetRawTransactionVerbose(hash)
	})
	if err != nil {
		return nil, err
	}
	c.cache.Put(txid, tx)
	return tx, nil
}

// fetchWithRetry runs op under the rate limiter and concurrency semaphore,
// retrying on errors classified as transient up to cfg.MaxRetries times with
// exponential backoff, and records metrics for the operation as a whole.
func (c *Client) fetchWithRetry(ctx context.Context, operation string, op func() (*btcjson.TxRawResult, error)) (res *btcjson.TxRawResult, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe(operation, err, started)
	}()

	backoff := c.cfg.InitialBackoff
	for attempt := 0; ; attempt++ {
		c.limiter.Take()

		select {
		case c.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		res, err = op()
		<-c.sem

		if err == nil {
			return res, nil
		}
		if errors.Is(err, errs.ErrPermanentNode) || !isTransient(err) {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
		if attempt >= c.cfg.MaxRetries {
			return nil, fmt.Errorf("%s: %w: exceeded %d retries: %v", operation, errs.ErrTransientNode, c.cfg.MaxRetries, err)
		}
		c.metrics.ObserveRetry(operation)
		if c.logger != nil {
			c.logger.Warn("retrying node rpc call",
				zap.String("operation", operation),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(err))
		}
		if sleepErr := clock.SleepWithContext(ctx, backoff); sleepErr != nil {
			return nil, sleepErr
		}
		backoff = NextBackoff(backoff, c.cfg.BackoffMultiplier, c.cfg.MaxBackoff)
	}
}

// isTransient classifies an rpcclient error as retryable. RPC errors that
// are not wrapped in a typed sentinel (i.e. network/connection failures
// bubbling up from the underlying HTTP client) are treated as transient by
// default, matching the §7 policy that the node's own reachability
// problems, not malformed input, are what retries exist for.
func isTransient(err error) bool {
	if errors.Is(err, errs.ErrPermanentNode) {
		return false
	}
	return true
}
