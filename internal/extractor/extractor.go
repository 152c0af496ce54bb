// Package extractor implements Stage 1: a streaming scan of a CSV UTXO
// dump that selects P2MS outputs and persists them with resumable
// checkpoints.
package extractor

import (
	"context"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/p2ms-classifier/internal/errs"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
	"github.com/goodnatureofminers/p2ms-classifier/internal/script"
	"github.com/goodnatureofminers/p2ms-classifier/pkg/safe"
)

// Store is the subset of *store.Store the extractor writes through.
type Store interface {
	UpsertOutput(ctx context.Context, out model.Output) error
	SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error
	LoadCheckpoint(ctx context.Context, stage model.Stage) (model.Checkpoint, bool, error)
}

// Metrics is the subset of internal/metrics the extractor reports against.
type Metrics interface {
	ObserveRowRejected(reason string)
	ObserveRowAccepted()
}

// Config controls batching.
type Config struct {
	BatchSize int
}

// DefaultConfig returns the suggested checkpoint batch size.
func DefaultConfig() Config { return Config{BatchSize: 5000} }

var requiredColumns = []string{"height", "txid", "vout", "amount", "script_type", "script_hex", "is_coinbase"}

// countingReader tracks the cumulative number of bytes pulled from r, used
// to record an approximate byte-offset checkpoint. Because UpsertOutput is
// an idempotent UPSERT, resuming from a slightly stale offset (re-processing
// a handful of already-seen rows due to internal buffering) is harmless.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Run streams input, selecting rows whose script successfully decodes as a
// P2MS (bare multisig) template, and persists them via st. resume carries
// the last saved Checkpoint (zero value if this is a fresh run). If input
// implements io.Seeker, Run seeks to resume.ByteOffset before scanning.
func Run(ctx context.Context, input io.Reader, st Store, metrics Metrics, resume model.Checkpoint, cfg Config, logger *zap.Logger) error {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}

	if resume.ByteOffset > 0 {
		if seeker, ok := input.(io.Seeker); ok {
			if _, err := seeker.Seek(resume.ByteOffset, io.SeekStart); err != nil {
				return fmt.Errorf("seek to checkpoint offset %d: %w", resume.ByteOffset, err)
			}
		}
	}

	counting := &countingReader{r: input, n: resume.ByteOffset}
	reader := csv.NewReader(counting)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return err
	}

	linesProcessed := resume.LinesProcessed
	batchIndex := resume.BatchIndex
	sinceCheckpoint := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, rerr := reader.Read()
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return fmt.Errorf("read csv record at line %d: %w", linesProcessed+1, rerr)
		}
		linesProcessed++

		out, perr := parseRow(record, cols)
		if perr != nil {
			logger.Debug("rejecting malformed row", zap.Int64("line", linesProcessed), zap.Error(perr))
			metrics.ObserveRowRejected("malformed")
			continue
		}

		ms, perr := script.Parse(out.rawScript)
		if perr != nil {
			var nonStandard *script.ErrNonStandard
			if !errors.As(perr, &nonStandard) {
				logger.Debug("rejecting row with bad script", zap.Int64("line", linesProcessed), zap.Error(perr))
			}
			metrics.ObserveRowRejected("not_p2ms")
			continue
		}

		row := out.toOutput(ms)
		if err := st.UpsertOutput(ctx, row); err != nil {
			return fmt.Errorf("upsert output at line %d: %w", linesProcessed, err)
		}
		metrics.ObserveRowAccepted()

		sinceCheckpoint++
		if sinceCheckpoint >= cfg.BatchSize {
			batchIndex++
			if err := checkpoint(ctx, st, counting.n, linesProcessed, row.TxID, batchIndex); err != nil {
				return err
			}
			sinceCheckpoint = 0
		}
	}

	if sinceCheckpoint > 0 {
		batchIndex++
		if err := checkpoint(ctx, st, counting.n, linesProcessed, "", batchIndex); err != nil {
			return err
		}
	}
	return nil
}

func checkpoint(ctx context.Context, st Store, byteOffset, linesProcessed int64, lastTxID string, batchIndex int64) error {
	return st.SaveCheckpoint(ctx, model.Checkpoint{
		Stage:          model.StageExtract,
		ByteOffset:     byteOffset,
		LinesProcessed: linesProcessed,
		LastTxID:       lastTxID,
		BatchIndex:     batchIndex,
	})
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: csv header missing required column %q", errs.ErrInputFormat, col)
		}
	}
	return idx, nil
}

// rawRow is the parsed-but-not-yet-script-decoded form of a CSV record.
type rawRow struct {
	height     uint64
	txid       string
	vout       uint32
	amount     int64
	rawScript  []byte
	isCoinbase bool
}

func (r rawRow) toOutput(ms *script.Multisig) model.Output {
	pubkeys := make([][]byte, len(ms.Pubkeys))
	for i, pk := range ms.Pubkeys {
		pubkeys[i] = pk.Bytes
	}
	return model.Output{
		TxID:       r.txid,
		Vout:       r.vout,
		Height:     r.height,
		Amount:     r.amount,
		ScriptType: model.ScriptTypeMultisig,
		ScriptHex:  fmt.Sprintf("%x", r.rawScript),
		IsCoinbase: r.isCoinbase,
		Multisig: &model.MultisigInfo{
			RequiredSigs: ms.RequiredSigs,
			TotalPubkeys: ms.TotalPubkeys,
			Pubkeys:      pubkeys,
		},
	}
}

func parseRow(record []string, cols map[string]int) (rawRow, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	height, err := strconv.ParseUint(get("height"), 10, 64)
	if err != nil {
		return rawRow{}, fmt.Errorf("%w: parse height: %v", errs.ErrInputFormat, err)
	}
	txid := get("txid")
	if txid == "" {
		return rawRow{}, fmt.Errorf("%w: empty txid", errs.ErrInputFormat)
	}
	voutValue, err := strconv.ParseUint(get("vout"), 10, 64)
	if err != nil {
		return rawRow{}, fmt.Errorf("%w: parse vout: %v", errs.ErrInputFormat, err)
	}
	vout, err := safe.Uint32(voutValue)
	if err != nil {
		return rawRow{}, fmt.Errorf("%w: vout out of range: %v", errs.ErrInputFormat, err)
	}
	amount, err := strconv.ParseInt(get("amount"), 10, 64)
	if err != nil {
		return rawRow{}, fmt.Errorf("%w: parse amount: %v", errs.ErrInputFormat, err)
	}
	scriptHex := strings.TrimPrefix(get("script_hex"), "0x")
	rawScript, err := hex.DecodeString(scriptHex)
	if err != nil {
		return rawRow{}, fmt.Errorf("%w: decode script_hex: %v", errs.ErrInputFormat, err)
	}
	isCoinbase := parseBool(get("is_coinbase"))

	return rawRow{
		height:     height,
		txid:       txid,
		vout:       vout,
		amount:     amount,
		rawScript:  rawScript,
		isCoinbase: isCoinbase,
	}, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes":
		return true
	default:
		return false
	}
}

