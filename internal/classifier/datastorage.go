package classifier

import (
	"strings"

	"github.com/goodnatureofminers/p2ms-classifier/internal/decode"
	"github.com/goodnatureofminers/p2ms-classifier/internal/model"
)

// DataStorageDetector recognizes data embedded directly in the concatenated
// P2MS pubkey payload: known binary file magics, proof-of-burn padding,
// file metadata, generic printable text, or all-zero padding (§4.3.9).
type DataStorageDetector struct{}

func (DataStorageDetector) Name() string { return "data_storage" }

func (DataStorageDetector) Detect(tx model.EnrichedTransaction, outputs []model.Output) *model.Classification {
	combined := concatenatedPubkeySlots(outputs)
	if len(combined) == 0 {
		return nil
	}

	variant, contentType, ok := dataStorageVariant(combined)
	if !ok {
		return nil
	}

	outs := make([]model.P2MSOutputClassification, 0, len(outputs))
	for _, out := range outputs {
		outs = append(outs, buildOutputClassification(out, model.ProtocolDataStorage, variant, contentType))
	}
	return &model.Classification{
		Transaction: model.TransactionClassification{
			TxID:                   tx.TxID,
			Protocol:               model.ProtocolDataStorage,
			Variant:                variant,
			ContentType:            contentType,
			TransportProtocol:      model.TransportPure,
			ProtocolSignatureFound: true,
		},
		Outputs: outs,
	}
}

func dataStorageVariant(combined []byte) (variant, contentType string, ok bool) {
	if magic, found := decode.DetectBinaryFileMagic(combined); found {
		return "EmbeddedData", string(magic), true
	}
	if decode.IsProofOfBurn(combined) {
		return "ProofOfBurn", "application/octet-stream", true
	}
	if isFileMetadata(combined) {
		return "FileMetadata", "text/plain", true
	}
	if decode.IsLikelyText(combined, 0.50, 4) {
		return "Generic", "text/plain", true
	}
	if decode.IsAllZero(combined) {
		return "NullData", "application/octet-stream", true
	}
	return "", "", false
}

var fileMetadataMarkers = []string{"http://", "https://", ".jpg", ".png", ".pdf", ".txt", ".zip", ".com", ".org"}

func isFileMetadata(data []byte) bool {
	if !decode.IsLikelyText(data, 0.50, 4) {
		return false
	}
	lower := strings.ToLower(string(data))
	for _, m := range fileMetadataMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
