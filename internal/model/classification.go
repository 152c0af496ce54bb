package model

// Protocol is the top-level classification a transaction's P2MS outputs are
// assigned to by the Classifier Core cascade.
type Protocol string

const (
	ProtocolOmniLayer               Protocol = "OmniLayer"
	ProtocolChancecoin              Protocol = "Chancecoin"
	ProtocolBitcoinStamps           Protocol = "BitcoinStamps"
	ProtocolCounterparty            Protocol = "Counterparty"
	ProtocolAsciiIdentifier         Protocol = "AsciiIdentifier"
	ProtocolPPk                     Protocol = "PPk"
	ProtocolOpReturnSignalled       Protocol = "OpReturnSignalled"
	ProtocolDataStorage             Protocol = "DataStorage"
	ProtocolLikelyDataStorage       Protocol = "LikelyDataStorage"
	ProtocolLikelyLegitimateMultisig Protocol = "LikelyLegitimateMultisig"
	ProtocolUnknown                 Protocol = "Unknown"
)

// Transport distinguishes Stamps payloads carried directly versus embedded
// inside a Counterparty envelope.
type Transport string

const (
	TransportPure        Transport = "Pure"
	TransportCounterparty Transport = "Counterparty"
)

// SpendabilityReason is a short tag explaining an is_spendable verdict.
type SpendabilityReason string

const (
	ReasonSufficientRealKeys    SpendabilityReason = "sufficient_real_keys"
	ReasonBurnKeysBlockThreshold SpendabilityReason = "burn_keys_block_threshold"
	ReasonInvalidECPoint        SpendabilityReason = "invalid_ec_point"
	ReasonNullKeysOnly          SpendabilityReason = "null_keys_only"
	ReasonInsufficientRealKeys  SpendabilityReason = "insufficient_real_keys"
)

// TransactionClassification is the Stage 3 per-txid verdict.
type TransactionClassification struct {
	TxID                   string
	Protocol               Protocol
	Variant                string
	ContentType            string
	TransportProtocol      Transport
	ProtocolSignatureFound bool
	AdditionalMetadataJSON string
}

// P2MSOutputClassification is the Stage 3 per-(txid,vout) verdict.
type P2MSOutputClassification struct {
	TxID             string
	Vout             uint32
	Protocol         Protocol
	Variant          string
	ContentType      string
	IsSpendable      *bool
	SpendabilityReason SpendabilityReason
	RealPubkeyCount  int
	BurnKeyCount     int
	DataKeyCount     int
}

// Classification is the cascade's unit of work: one transaction-level
// verdict plus the per-output verdicts it implies.
type Classification struct {
	Transaction TransactionClassification
	Outputs     []P2MSOutputClassification
}
