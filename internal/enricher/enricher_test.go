package enricher

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

type fakeStore struct {
	outputsByTxID map[string][]model.Output
	enriched      []model.EnrichedTransaction
	spent         [][2]any
	checkpoints   []model.Checkpoint
	pages         [][]string
}

func (f *fakeStore) DistinctMultisigTxIDsSince(ctx context.Context, afterTxID string, limit int) ([]string, error) {
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeStore) MultisigOutputsForTxID(ctx context.Context, txid string) ([]model.Output, error) {
	return f.outputsByTxID[txid], nil
}

func (f *fakeStore) UpsertEnrichedTransaction(ctx context.Context, tx model.EnrichedTransaction) error {
	f.enriched = append(f.enriched, tx)
	return nil
}

func (f *fakeStore) MarkOutputSpent(ctx context.Context, txid string, vout uint32) error {
	f.spent = append(f.spent, [2]any{txid, vout})
	return nil
}

func (f *fakeStore) SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error {
	f.checkpoints = append(f.checkpoints, cp)
	return nil
}

func (f *fakeStore) LoadCheckpoint(ctx context.Context, stage model.Stage) (model.Checkpoint, bool, error) {
	return model.Checkpoint{}, false, nil
}

type fakeNode struct {
	byTxID map[string]*btcjson.TxRawResult
	errs   map[string]error
}

func (f *fakeNode) GetRawTransaction(ctx context.Context, txid string) (*btcjson.TxRawResult, error) {
	if err, ok := f.errs[txid]; ok {
		return nil, err
	}
	tx, ok := f.byTxID[txid]
	if !ok {
		return nil, errors.New("not found")
	}
	return tx, nil
}

type fakeMetrics struct {
	enrichedCount int
	failures      map[string]int
}

func (f *fakeMetrics) ObserveTxEnriched() { f.enrichedCount++ }
func (f *fakeMetrics) ObserveTxFailed(reason string) {
	if f.failures == nil {
		f.failures = map[string]int{}
	}
	f.failures[reason]++
}

func pubkeyHex(lastByte byte) string {
	b := make([]byte, 33)
	b[0] = 0x02
	b[32] = lastByte
	return hex.EncodeToString(b)
}

func TestRun_ComputesAggregatesAndMarksSpentInputs(t *testing.T) {
	prevTxID := "p" + "0000000000000000000000000000000000000000000000000000000000000"
	txID := "t" + "0000000000000000000000000000000000000000000000000000000000000"

	st := &fakeStore{
		pages: [][]string{{txID}},
		outputsByTxID: map[string][]model.Output{
			txID: {{
				TxID: txID, Vout: 0, Height: 500,
				ScriptType: model.ScriptTypeMultisig,
				Multisig:   &model.MultisigInfo{RequiredSigs: 1, TotalPubkeys: 1, Pubkeys: [][]byte{mustDecodeHex(pubkeyHex(0x01))}},
			}},
		},
	}
	node := &fakeNode{byTxID: map[string]*btcjson.TxRawResult{
		txID: {
			Txid: txID,
			Vin:  []btcjson.Vin{{Txid: prevTxID, Vout: 0}},
			Vout: []btcjson.Vout{{Value: 0.0009, N: 0}},
			Size: 250,
		},
		prevTxID: {
			Txid: prevTxID,
			Vin:  []btcjson.Vin{{Coinbase: "00"}},
			Vout: []btcjson.Vout{{Value: 0.001, N: 0}},
		},
	}}
	metrics := &fakeMetrics{}

	err := Run(context.Background(), st, node, metrics, model.Checkpoint{}, DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	require.Len(t, st.enriched, 1)
	got := st.enriched[0]
	require.Equal(t, int64(90000), got.TotalOutputValue)
	require.Equal(t, int64(100000), got.TotalInputValue)
	require.Equal(t, int64(10000), got.TransactionFee)
	require.Equal(t, prevTxID, got.FirstInputTxID)
	require.Equal(t, 1, metrics.enrichedCount)
	require.Len(t, st.spent, 1)
	require.Equal(t, prevTxID, st.spent[0][0])
}

func TestRun_SkipsTxidOnPermanentNodeErrorAndContinues(t *testing.T) {
	failTxID := "f" + "0000000000000000000000000000000000000000000000000000000000000"
	okTxID := "g" + "0000000000000000000000000000000000000000000000000000000000000"

	st := &fakeStore{
		pages: [][]string{{failTxID, okTxID}},
		outputsByTxID: map[string][]model.Output{
			okTxID: {{TxID: okTxID, Vout: 0, Height: 1, ScriptType: model.ScriptTypeMultisig, Multisig: &model.MultisigInfo{RequiredSigs: 1, TotalPubkeys: 1, Pubkeys: [][]byte{mustDecodeHex(pubkeyHex(0x02))}}}},
		},
	}
	node := &fakeNode{
		byTxID: map[string]*btcjson.TxRawResult{
			okTxID: {Txid: okTxID, Vin: []btcjson.Vin{{Coinbase: "00"}}, Vout: []btcjson.Vout{{Value: 0.0001}}},
		},
		errs: map[string]error{failTxID: errors.New("bad response")},
	}
	metrics := &fakeMetrics{}

	err := Run(context.Background(), st, node, metrics, model.Checkpoint{}, DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	require.Len(t, st.enriched, 1)
	require.Equal(t, okTxID, st.enriched[0].TxID)
	require.Equal(t, 1, metrics.failures["fetch_transaction"])
}

func TestRun_DetectsExodusAddress(t *testing.T) {
	txID := "e" + "0000000000000000000000000000000000000000000000000000000000000"
	st := &fakeStore{
		pages: [][]string{{txID}},
		outputsByTxID: map[string][]model.Output{
			txID: {{TxID: txID, Vout: 1, Height: 1, ScriptType: model.ScriptTypeMultisig, Multisig: &model.MultisigInfo{RequiredSigs: 1, TotalPubkeys: 1, Pubkeys: [][]byte{mustDecodeHex(pubkeyHex(0x03))}}}},
		},
	}
	node := &fakeNode{byTxID: map[string]*btcjson.TxRawResult{
		txID: {
			Txid: txID,
			Vin:  []btcjson.Vin{{Coinbase: "00"}},
			Vout: []btcjson.Vout{
				{Value: 0.00000546, ScriptPubKey: btcjson.ScriptPubKeyResult{Addresses: []string{ExodusAddress}}},
				{Value: 0.00000546},
			},
		},
	}}
	metrics := &fakeMetrics{}

	err := Run(context.Background(), st, node, metrics, model.Checkpoint{}, DefaultConfig(), zap.NewNop())
	require.NoError(t, err)
	require.True(t, st.enriched[0].HasExodusOutput)
}

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
