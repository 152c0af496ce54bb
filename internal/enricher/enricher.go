// Package enricher implements Stage 2: for every txid that owns at least
// one P2MS output, it fetches the full transaction from the Node Client,
// computes value/fee aggregates, records the first-input txid, scans for
// Exodus/WikiLeaks marker addresses and burn-key pubkeys, and persists the
// result as an EnrichedTransaction row.
package enricher

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/p2ms-classifier/internal/decode"
	"github.com/goodnatureofminers/p2ms-classifier/internal/errs"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
	"github.com/goodnatureofminers/p2ms-classifier/internal/utils"
	"github.com/goodnatureofminers/p2ms-classifier/pkg/workerpool"
)

// ExodusAddress is the canonical Omni Layer marker address. An adjacent
// output paying it marks a transaction as Omni Layer regardless of what its
// P2MS outputs decode to.
const ExodusAddress = "1EXoDusjGwvnjZUyKkxZ4UHEf77z6A5S4P"

// WikiLeaksAddress is the address an adjacent output pays to mark a
// transaction as WikiLeaks Cablegate data storage.
const WikiLeaksAddress = "1HB5XMLmzFVj8ALj6mfBsbifRoD4miY36v"

// Store is the subset of *store.Store the enricher reads and writes through.
type Store interface {
	DistinctMultisigTxIDsSince(ctx context.Context, afterTxID string, limit int) ([]string, error)
	MultisigOutputsForTxID(ctx context.Context, txid string) ([]model.Output, error)
	UpsertEnrichedTransaction(ctx context.Context, tx model.EnrichedTransaction) error
	MarkOutputSpent(ctx context.Context, txid string, vout uint32) error
	SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error
	LoadCheckpoint(ctx context.Context, stage model.Stage) (model.Checkpoint, bool, error)
}

// NodeClient is the subset of *rpcnode.Client the enricher needs.
type NodeClient interface {
	GetRawTransaction(ctx context.Context, txid string) (*btcjson.TxRawResult, error)
}

// Metrics is the subset of internal/metrics the enricher reports against.
type Metrics interface {
	ObserveTxEnriched()
	ObserveTxFailed(reason string)
}

// Config controls concurrency and checkpoint cadence.
type Config struct {
	WorkerCount int
	BatchSize   int
}

// DefaultConfig returns the spec's suggested bounded in-flight request
// count and a modest checkpoint cadence.
func DefaultConfig() Config { return Config{WorkerCount: 8, BatchSize: 500} }

// Run drives Stage 2 to completion: it pages through distinct multisig
// txids starting after resume.LastTxID, enriches each page with a bounded
// worker pool, and checkpoints after every page. A permanent Node Client
// error or a decode failure for one txid is logged and counted, and does
// not abort the run; only a context cancellation or a Store read or write
// failure does.
func Run(ctx context.Context, st Store, node NodeClient, metrics Metrics, resume model.Checkpoint, cfg Config, logger *zap.Logger) error {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultConfig().WorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}

	e := &enricherRun{st: st, node: node, metrics: metrics, logger: logger}

	lastTxID := resume.LastTxID
	batchIndex := resume.BatchIndex

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		txids, err := st.DistinctMultisigTxIDsSince(ctx, lastTxID, cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("list multisig txids after %q: %w", lastTxID, err)
		}
		if len(txids) == 0 {
			return nil
		}

		var writeErr error
		poolErr := workerpool.Process(ctx, cfg.WorkerCount, txids, func(wctx context.Context, txid string) error {
			if err := e.enrichOne(wctx, txid); err != nil {
				writeErr = err
				return err
			}
			return nil
		}, nil)
		if poolErr != nil {
			if writeErr != nil {
				return writeErr
			}
			return poolErr
		}

		batchIndex++
		lastTxID = txids[len(txids)-1]
		if err := st.SaveCheckpoint(ctx, model.Checkpoint{
			Stage:      model.StageEnrich,
			LastTxID:   lastTxID,
			BatchIndex: batchIndex,
		}); err != nil {
			return fmt.Errorf("save enrich checkpoint at %q: %w", lastTxID, err)
		}
	}
}

// enricherRun holds the dependencies shared across a Run invocation's
// concurrent enrichOne calls. It carries no mutable state of its own.
type enricherRun struct {
	st      Store
	node    NodeClient
	metrics Metrics
	logger  *zap.Logger
}

// enrichOne fetches and scores a single txid. A Node Client error fetching
// the transaction itself, or resolving one of its previous outputs, is
// treated as this txid's failure: it is logged, counted, and enrichOne
// returns nil so the pool continues with the next txid. Only a Store read or
// write error (or ctx cancellation, surfaced through the node/store calls)
// is returned, which aborts the whole run.
func (e *enricherRun) enrichOne(ctx context.Context, txid string) error {
	tx, err := e.node.GetRawTransaction(ctx, txid)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		e.logFailure(txid, "fetch_transaction", err)
		return nil
	}

	outputs, err := e.st.MultisigOutputsForTxID(ctx, txid)
	if err != nil {
		return fmt.Errorf("load multisig outputs for %s: %w", txid, err)
	}

	enriched := model.EnrichedTransaction{
		TxID:        txid,
		InputCount:  len(tx.Vin),
		OutputCount: len(tx.Vout),
		FirstInputTxID: firstInputTxID(tx),
	}
	if len(outputs) > 0 {
		enriched.Height = outputs[0].Height
	}

	totalOutput, err := sumVoutValues(tx.Vout)
	if err != nil {
		e.logFailure(txid, "sum_output_values", err)
		return nil
	}
	enriched.TotalOutputValue = totalOutput

	totalInput, senderAddress, spentErr := e.resolveInputValue(ctx, tx)
	if spentErr != nil {
		if errors.Is(spentErr, context.Canceled) || errors.Is(spentErr, context.DeadlineExceeded) {
			return spentErr
		}
		e.logFailure(txid, "resolve_input_value", spentErr)
		return nil
	}
	enriched.TotalInputValue = totalInput
	enriched.TransactionFee = totalInput - totalOutput
	enriched.SenderAddress = senderAddress

	size := txSize(tx)
	enriched.TransactionSize = size
	if size > 0 {
		enriched.FeePerByte = float64(enriched.TransactionFee) / float64(size)
	}

	enriched.HasExodusOutput = voutsPayAddress(tx.Vout, ExodusAddress)
	enriched.HasWikiLeaksOutput = voutsPayAddress(tx.Vout, WikiLeaksAddress)
	enriched.BurnKeyPatterns = burnPatternsForOutputs(outputs)
	enriched.OpReturnHex = firstOpReturnPayload(tx.Vout)

	if err := e.st.UpsertEnrichedTransaction(ctx, enriched); err != nil {
		return fmt.Errorf("upsert enriched transaction %s: %w", txid, err)
	}

	if err := e.markSpentInputs(ctx, tx); err != nil {
		return fmt.Errorf("mark spent outputs for %s: %w", txid, err)
	}

	e.metrics.ObserveTxEnriched()
	return nil
}

func (e *enricherRun) logFailure(txid, reason string, err error) {
	e.metrics.ObserveTxFailed(reason)
	if e.logger != nil {
		e.logger.Warn("enrichment failed for txid, continuing",
			zap.String("txid", txid), zap.String("reason", reason), zap.Error(err))
	}
}

// resolveInputValue sums the BTC value of every non-coinbase input's
// previous output, fetching each distinct previous txid once through the
// Node Client (whose own TxCache deduplicates repeated fetches across
// enrichOne calls). It also returns the address of the previous output with
// the largest value, the "sender address" the Omni Layer detector uses to
// seed its keystream.
func (e *enricherRun) resolveInputValue(ctx context.Context, tx *btcjson.TxRawResult) (total int64, senderAddress string, err error) {
	var largest int64 = -1
	for _, vin := range tx.Vin {
		if vin.IsCoinBase() {
			continue
		}
		prev, ferr := e.node.GetRawTransaction(ctx, vin.Txid)
		if ferr != nil {
			return 0, "", fmt.Errorf("%w: fetch previous tx %s: %v", errs.ErrTransientNode, vin.Txid, ferr)
		}
		if vin.Vout >= uint32(len(prev.Vout)) {
			return 0, "", fmt.Errorf("%w: previous tx %s has no vout %d", errs.ErrPermanentNode, vin.Txid, vin.Vout)
		}
		prevOut := prev.Vout[vin.Vout]
		value, verr := utils.BtcToSatoshis(prevOut.Value)
		if verr != nil {
			return 0, "", fmt.Errorf("previous output %s:%d value: %w", vin.Txid, vin.Vout, verr)
		}
		total += int64(value)
		if int64(value) > largest {
			largest = int64(value)
			if addrs := addressesForVout(prevOut); len(addrs) > 0 {
				senderAddress = addrs[0]
			}
		}
	}
	return total, senderAddress, nil
}

// markSpentInputs marks, for each of tx's non-coinbase inputs, the
// previous (txid, vout) it references as spent. Only a previous output
// that is itself a tracked multisig Output row is affected; MarkOutputSpent
// is a no-op UPDATE against any other txid.
func (e *enricherRun) markSpentInputs(ctx context.Context, tx *btcjson.TxRawResult) error {
	for _, vin := range tx.Vin {
		if vin.IsCoinBase() {
			continue
		}
		if err := e.st.MarkOutputSpent(ctx, vin.Txid, vin.Vout); err != nil {
			return err
		}
	}
	return nil
}

func firstInputTxID(tx *btcjson.TxRawResult) string {
	if len(tx.Vin) == 0 {
		return ""
	}
	if tx.Vin[0].IsCoinBase() {
		return ""
	}
	return tx.Vin[0].Txid
}

func sumVoutValues(vouts []btcjson.Vout) (int64, error) {
	var total int64
	for _, v := range vouts {
		value, err := utils.BtcToSatoshis(v.Value)
		if err != nil {
			return 0, fmt.Errorf("output value: %w", err)
		}
		total += int64(value)
	}
	return total, nil
}

// txSize prefers the node-reported serialized size, falling back to Vsize
// when Size is unset (some node configurations omit it for unconfirmed
// transactions).
func txSize(tx *btcjson.TxRawResult) int64 {
	if tx.Size > 0 {
		return int64(tx.Size)
	}
	return int64(tx.Vsize)
}

// voutsPayAddress reports whether any output of vouts resolves to addr,
// either directly from the node's reported address fields or by decoding
// the scriptPubKey under mainnet parameters.
func voutsPayAddress(vouts []btcjson.Vout, addr string) bool {
	for _, v := range vouts {
		for _, a := range addressesForVout(v) {
			if a == addr {
				return true
			}
		}
	}
	return false
}

// addressesForVout mirrors the teacher ingester's address-decoding
// fallback: trust the node's own Addresses/Address fields when present,
// otherwise derive them from the scriptPubKey.
func addressesForVout(v btcjson.Vout) []string {
	if len(v.ScriptPubKey.Addresses) > 0 {
		return v.ScriptPubKey.Addresses
	}
	if v.ScriptPubKey.Address != "" {
		return []string{v.ScriptPubKey.Address}
	}
	if v.ScriptPubKey.Hex == "" {
		return nil
	}
	scriptBytes, err := hex.DecodeString(v.ScriptPubKey.Hex)
	if err != nil {
		return nil
	}
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(scriptBytes, &chaincfg.MainNetParams)
	if err != nil {
		return nil
	}
	result := make([]string, 0, len(addrs))
	for _, a := range addrs {
		result = append(result, a.EncodeAddress())
	}
	return result
}

// firstOpReturnPayload returns the hex-encoded data pushed by the
// transaction's first OP_RETURN output, or "" if it has none. Only the
// first OP_RETURN output is meaningful to the cascade (§4.3.6, §4.3.8).
func firstOpReturnPayload(vouts []btcjson.Vout) string {
	for _, v := range vouts {
		if v.ScriptPubKey.Type != "nulldata" {
			continue
		}
		scriptBytes, err := hex.DecodeString(v.ScriptPubKey.Hex)
		if err != nil {
			continue
		}
		tok := txscript.MakeScriptTokenizer(0, scriptBytes)
		if !tok.Next() || tok.Opcode() != txscript.OP_RETURN {
			continue
		}
		if !tok.Next() {
			return ""
		}
		return hex.EncodeToString(tok.Data())
	}
	return ""
}

// burnPatternsForOutputs scans every pubkey of every multisig output for a
// known burn-key pattern and returns the distinct pattern names found.
func burnPatternsForOutputs(outputs []model.Output) []string {
	seen := map[decode.BurnPatternType]bool{}
	var patterns []string
	for _, out := range outputs {
		if out.Multisig == nil {
			continue
		}
		for _, pk := range out.Multisig.Pubkeys {
			pattern, ok := decode.ClassifyBurnPattern(hex.EncodeToString(pk))
			if !ok || seen[pattern] {
				continue
			}
			seen[pattern] = true
			patterns = append(patterns, string(pattern))
		}
	}
	return patterns
}
