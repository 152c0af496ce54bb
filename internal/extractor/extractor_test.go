package extractor

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

type fakeStore struct {
	outputs     []model.Output
	checkpoints []model.Checkpoint
}

func (f *fakeStore) UpsertOutput(ctx context.Context, out model.Output) error {
	f.outputs = append(f.outputs, out)
	return nil
}

func (f *fakeStore) SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error {
	f.checkpoints = append(f.checkpoints, cp)
	return nil
}

func (f *fakeStore) LoadCheckpoint(ctx context.Context, stage model.Stage) (model.Checkpoint, bool, error) {
	if len(f.checkpoints) == 0 {
		return model.Checkpoint{}, false, nil
	}
	return f.checkpoints[len(f.checkpoints)-1], true, nil
}

type fakeMetrics struct {
	accepted int
	rejected map[string]int
}

func (f *fakeMetrics) ObserveRowAccepted() { f.accepted++ }
func (f *fakeMetrics) ObserveRowRejected(reason string) {
	if f.rejected == nil {
		f.rejected = map[string]int{}
	}
	f.rejected[reason]++
}

func multisigScriptHex(t *testing.T, m int, n int) string {
	t.Helper()
	b := txscript.NewScriptBuilder()
	b.AddInt64(int64(m))
	for i := 0; i < n; i++ {
		pk := make([]byte, 33)
		pk[0] = 0x02
		pk[1] = byte(i + 1)
		b.AddData(pk)
	}
	b.AddInt64(int64(n))
	b.AddOp(txscript.OP_CHECKMULTISIG)
	s, err := b.Script()
	require.NoError(t, err)
	return hex.EncodeToString(s)
}

func TestRun_SelectsOnlyP2MSRows(t *testing.T) {
	multisig := multisigScriptHex(t, 1, 2)
	nonStandard := "76a914" + strings.Repeat("00", 20) + "88ac"

	csvData := "height,txid,vout,amount,script_type,script_hex,is_coinbase\n" +
		fmt.Sprintf("100,%s,0,546,multisig,%s,0\n", strings.Repeat("a", 64), multisig) +
		fmt.Sprintf("100,%s,1,1000,p2pkh,%s,0\n", strings.Repeat("b", 64), nonStandard) +
		fmt.Sprintf("101,%s,0,546,multisig,%s,0\n", strings.Repeat("c", 64), multisigScriptHex(t, 2, 3))

	st := &fakeStore{}
	metrics := &fakeMetrics{}
	logger := zap.NewNop()

	err := Run(context.Background(), strings.NewReader(csvData), st, metrics, model.Checkpoint{}, DefaultConfig(), logger)
	require.NoError(t, err)

	require.Len(t, st.outputs, 2)
	require.Equal(t, 2, metrics.accepted)
	require.Equal(t, 1, metrics.rejected["not_p2ms"])
	require.NotEmpty(t, st.checkpoints)
	last := st.checkpoints[len(st.checkpoints)-1]
	require.Equal(t, int64(3), last.LinesProcessed)
}

func TestRun_RejectsMalformedRow(t *testing.T) {
	csvData := "height,txid,vout,amount,script_type,script_hex,is_coinbase\n" +
		"notanumber,txid,0,546,multisig,51,0\n"

	st := &fakeStore{}
	metrics := &fakeMetrics{}
	err := Run(context.Background(), strings.NewReader(csvData), st, metrics, model.Checkpoint{}, DefaultConfig(), zap.NewNop())
	require.NoError(t, err)
	require.Empty(t, st.outputs)
	require.Equal(t, 1, metrics.rejected["malformed"])
}

func TestRun_MissingRequiredColumn(t *testing.T) {
	csvData := "height,txid,vout,amount,script_hex,is_coinbase\n100,deadbeef,0,546,51,0\n"

	st := &fakeStore{}
	metrics := &fakeMetrics{}
	err := Run(context.Background(), strings.NewReader(csvData), st, metrics, model.Checkpoint{}, DefaultConfig(), zap.NewNop())
	require.Error(t, err)
}
