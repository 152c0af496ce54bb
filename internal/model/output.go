package model

// Output is a single UTXO-set entry selected by Stage 1.
type Output struct {
	TxID       string
	Vout       uint32
	Height     uint64
	Amount     int64
	ScriptType ScriptType
	ScriptHex  string
	IsCoinbase bool
	IsSpent    bool
	Multisig   *MultisigInfo
}
