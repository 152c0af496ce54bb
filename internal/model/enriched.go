package model

// EnrichedTransaction is the Stage 2 output: one row per txid that owns at
// least one P2MS output.
type EnrichedTransaction struct {
	TxID            string
	Height          uint64
	InputCount      int
	OutputCount     int
	TotalInputValue int64
	TotalOutputValue int64
	TransactionFee  int64
	FeePerByte      float64
	TransactionSize int64
	FirstInputTxID  string

	HasExodusOutput    bool
	HasWikiLeaksOutput bool
	BurnKeyPatterns    []string

	// OpReturnHex is the hex-encoded data payload of the transaction's
	// first OP_RETURN output (empty if it has none), used by the
	// OpReturnSignalled and PPk detectors.
	OpReturnHex string

	// SenderAddress is the address of the previous output spent by this
	// transaction's largest-value input, used as the Omni Layer keystream
	// seed (§4.3.1).
	SenderAddress string
}
