// Package decode holds the shared, stateless decoders the Classifier Core's
// detectors borrow: ARC4, Omni's SHA-256 sequence deobfuscation, and
// content-sniffing (magic bytes, JSON protocol fields, HTML heuristics,
// printable-text ratios).
package decode

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ImageFormat is a sniffed image container.
type ImageFormat string

const (
	ImagePNG  ImageFormat = "image/png"
	ImageGIF  ImageFormat = "image/gif"
	ImageJPEG ImageFormat = "image/jpeg"
	ImageWebP ImageFormat = "image/webp"
	ImageBMP  ImageFormat = "image/bmp"
	ImageSVG  ImageFormat = "image/svg+xml"
)

// DetectImageFormat sniffs a binary or text image container by magic bytes.
func DetectImageFormat(data []byte) (ImageFormat, bool) {
	switch {
	case len(data) >= 6 && (bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a"))):
		return ImageGIF, true
	case len(data) >= 2 && bytes.HasPrefix(data, []byte("BM")):
		return ImageBMP, true
	case bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return ImagePNG, true
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return ImageJPEG, true
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return ImageWebP, true
	}
	if text := asText(data); text != "" {
		trimmed := strings.TrimLeft(strings.TrimPrefix(text, "\uFEFF"), " \t\r\n")
		if strings.HasPrefix(trimmed, "<svg") || (strings.HasPrefix(trimmed, "<?xml") && strings.Contains(trimmed, "<svg")) {
			return ImageSVG, true
		}
	}
	return "", false
}

// DetectCompressionFormat recognizes ZLIB (at offsets 0, 5, 7 — accounting
// for a possible signature prefix still present at decode time) or GZIP (at
// offset 0 only).
func DetectCompressionFormat(data []byte) (string, bool) {
	if zlibAtAnyOffset(data, 0, 5, 7) {
		return "application/zlib", true
	}
	if len(data) >= 4 && data[0] == 0x1F && data[1] == 0x8B {
		return "application/gzip", true
	}
	return "", false
}

func zlibAtAnyOffset(data []byte, offsets ...int) bool {
	for _, off := range offsets {
		if off+2 > len(data) {
			continue
		}
		cmf, flg := data[off], data[off+1]
		if cmf&0x0F != 0x08 {
			continue
		}
		if (int(cmf)*256+int(flg))%31 == 0 {
			return true
		}
	}
	return false
}

// BinaryFileMagic is a DataStorage-cascade magic-byte match (§4.3.9).
type BinaryFileMagic string

const (
	MagicPDF   BinaryFileMagic = "application/pdf"
	MagicPNG   BinaryFileMagic = "image/png"
	MagicJPEG  BinaryFileMagic = "image/jpeg"
	MagicGIF   BinaryFileMagic = "image/gif"
	MagicZIP   BinaryFileMagic = "application/zip"
	MagicRAR   BinaryFileMagic = "application/x-rar-compressed"
	Magic7Z    BinaryFileMagic = "application/x-7z-compressed"
	MagicGZIP  BinaryFileMagic = "application/gzip"
	MagicBZIP2 BinaryFileMagic = "application/x-bzip2"
	MagicZLIB  BinaryFileMagic = "application/zlib"
	MagicTAR   BinaryFileMagic = "application/x-tar"
)

// DetectBinaryFileMagic matches the file-magic set DataStorage sniffs for,
// beyond the image/compression checks already covered above.
func DetectBinaryFileMagic(data []byte) (BinaryFileMagic, bool) {
	if containsPDFHeader(data) {
		return MagicPDF, true
	}
	if fmt, ok := DetectImageFormat(data); ok {
		switch fmt {
		case ImagePNG:
			return MagicPNG, true
		case ImageJPEG:
			return MagicJPEG, true
		case ImageGIF:
			return MagicGIF, true
		}
	}
	switch {
	case bytes.HasPrefix(data, []byte{0x50, 0x4B, 0x03, 0x04}):
		return MagicZIP, true
	case bytes.HasPrefix(data, []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07}):
		return MagicRAR, true
	case bytes.HasPrefix(data, []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}):
		return Magic7Z, true
	case len(data) >= 2 && data[0] == 0x1F && data[1] == 0x8B:
		return MagicGZIP, true
	case len(data) >= 3 && data[0] == 0x42 && data[1] == 0x5A && data[2] == 0x68:
		return MagicBZIP2, true
	case zlibAtAnyOffset(data, 0):
		return MagicZLIB, true
	case len(data) >= 262 && bytes.Equal(data[257:262], []byte("ustar")):
		return MagicTAR, true
	}
	return "", false
}

func containsPDFHeader(data []byte) bool {
	searchLen := len(data)
	if searchLen > 1024 {
		searchLen = 1024
	}
	return bytes.Contains(data[:searchLen], []byte("%PDF"))
}

// DetectJSONProtocolField inspects a JSON object's top-level "p" field for
// the SRC-20/721/101 protocol markers; ok=false for non-JSON or JSON
// lacking a recognized "p" value (still valid JSON — caller falls back to
// generic application/json).
func DetectJSONProtocolField(data []byte) (variant string, isJSON bool) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", false
	}
	p, _ := obj["p"].(string)
	switch strings.ToLower(p) {
	case "src-20", "src20":
		return "SRC20", true
	case "src-721", "src721", "src-721r", "src721r":
		return "SRC721", true
	case "src-101", "src101":
		return "SRC101", true
	default:
		return "", true
	}
}

// htmlEarlyMarkers lists the doctype markers that score 2 when found in the
// first 200 bytes; DetectHTML matches the same strings inline.
var htmlEarlyMarkers = []string{"<!doctype html", "<!doctype"}

// DetectHTML implements the score-based heuristic: doctype markers score 2,
// other head-region markers score 1 each, body/script markers (scanned over
// a deeper window) score 1 each; a total score ≥2 is HTML.
func DetectHTML(data []byte) bool {
	text := asText(data)
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)

	scanStart := min(len(lower), 200)
	scanDeep := min(len(lower), 1000)
	head := lower[:scanStart]
	deep := lower[:scanDeep]

	score := 0
	if strings.Contains(head, "<!doctype html") || strings.Contains(head, "<!doctype") {
		score += 2
	}
	if strings.Contains(head, "<html") {
		score++
	}
	if strings.Contains(head, "<head") {
		score++
	}
	if strings.Contains(head, "<meta ") || strings.Contains(head, "<meta>") {
		score++
	}
	if strings.Contains(head, "<style") {
		score++
	}
	if strings.Contains(deep, "<body") {
		score++
	}
	if strings.Contains(deep, "<script") && strings.Contains(lower, "</script") {
		score++
	}
	return score >= 2
}

// DetectXML recognizes a bare XML/RSS document that is not HTML or SVG.
func DetectXML(data []byte) bool {
	text := asText(data)
	if text == "" {
		return false
	}
	trimmed := strings.TrimLeft(text, " \t\r\n")
	return strings.HasPrefix(trimmed, "<?xml") || strings.HasPrefix(trimmed, "<rss")
}

// PrintableASCIIRatio returns the fraction of bytes that are printable ASCII
// (graphic or whitespace).
func PrintableASCIIRatio(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	count := 0
	for _, b := range data {
		r := rune(b)
		if unicode.IsPrint(r) && r < unicode.MaxASCII || b == '\t' || b == '\n' || b == '\r' {
			count++
		}
	}
	return float64(count) / float64(len(data))
}

// IsLikelyText reports whether data is ≥ ratio printable ASCII over at
// least minLen bytes — the generic text-sniffing rule shared by the Stamps
// and DataStorage cascades (with different ratio/minLen thresholds).
func IsLikelyText(data []byte, ratio float64, minLen int) bool {
	if len(data) < minLen {
		return false
	}
	return PrintableASCIIRatio(data) >= ratio
}

// IsAllZero reports whether every byte in data is 0x00.
func IsAllZero(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// IsProofOfBurn reports whether data is entirely 0xFF over one of the
// canonical lengths (32, 33, 65 bytes) burn patterns use.
func IsProofOfBurn(data []byte) bool {
	switch len(data) {
	case 32, 33, 65:
	default:
		return false
	}
	for _, b := range data {
		if b != 0xFF {
			return false
		}
	}
	return true
}

func asText(data []byte) string {
	if len(data) == 0 || !utf8.Valid(data) {
		return ""
	}
	return string(data)
}
