package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

type noopMetrics struct{}

func (noopMetrics) Observe(string, error, time.Time) {}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, RunMigrations(dbPath, "migrations"))
	s, err := Open(dbPath, noopMetrics{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertOutput_PreservesIsSpentAcrossUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	out := model.Output{
		TxID: "a" + repeatChar("0", 63), Vout: 0, Height: 100, Amount: 546,
		ScriptType: model.ScriptTypeMultisig, ScriptHex: "51",
		Multisig: &model.MultisigInfo{RequiredSigs: 1, TotalPubkeys: 2, Pubkeys: [][]byte{{0x02}, {0x03}}},
	}
	require.NoError(t, s.UpsertOutput(ctx, out))
	require.NoError(t, s.MarkOutputSpent(ctx, out.TxID, out.Vout))

	require.NoError(t, s.UpsertOutput(ctx, out))

	fetched, err := s.MultisigOutputsForTxID(ctx, out.TxID)
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	require.True(t, fetched[0].IsSpent)
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.LoadCheckpoint(ctx, model.StageExtract)
	require.NoError(t, err)
	require.False(t, ok)

	cp := model.Checkpoint{Stage: model.StageExtract, ByteOffset: 4096, LinesProcessed: 12, LastTxID: "deadbeef", BatchIndex: 2}
	require.NoError(t, s.SaveCheckpoint(ctx, cp))

	loaded, ok, err := s.LoadCheckpoint(ctx, model.StageExtract)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cp, loaded)
}

func TestInsertClassification_RejectsNonMultisigOutput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	out := model.Output{
		TxID: "b" + repeatChar("0", 63), Vout: 0, Height: 1, Amount: 1000,
		ScriptType: model.ScriptTypeNonStandard, ScriptHex: "6a",
	}
	require.NoError(t, s.UpsertOutput(ctx, out))
	require.NoError(t, s.UpsertEnrichedTransaction(ctx, model.EnrichedTransaction{TxID: out.TxID, Height: 1, FirstInputTxID: "x"}))

	c := model.Classification{
		Transaction: model.TransactionClassification{TxID: out.TxID, Protocol: model.ProtocolUnknown},
		Outputs:     []model.P2MSOutputClassification{{TxID: out.TxID, Vout: 0, Protocol: model.ProtocolUnknown}},
	}
	require.Error(t, s.InsertClassification(ctx, c))
}

func TestInsertClassification_AcceptsMultisigOutput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	out := model.Output{
		TxID: "c" + repeatChar("0", 63), Vout: 0, Height: 1, Amount: 1000,
		ScriptType: model.ScriptTypeMultisig, ScriptHex: "51",
		Multisig: &model.MultisigInfo{RequiredSigs: 1, TotalPubkeys: 1, Pubkeys: [][]byte{{0x02}}},
	}
	require.NoError(t, s.UpsertOutput(ctx, out))
	require.NoError(t, s.UpsertEnrichedTransaction(ctx, model.EnrichedTransaction{TxID: out.TxID, Height: 1, FirstInputTxID: "x"}))

	spendable := true
	c := model.Classification{
		Transaction: model.TransactionClassification{TxID: out.TxID, Protocol: model.ProtocolUnknown},
		Outputs: []model.P2MSOutputClassification{
			{TxID: out.TxID, Vout: 0, Protocol: model.ProtocolUnknown, IsSpendable: &spendable, RealPubkeyCount: 1},
		},
	}
	require.NoError(t, s.InsertClassification(ctx, c))
}

func repeatChar(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
