package decode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectImageFormat_PNG(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}
	fmt, ok := DetectImageFormat(png)
	require.True(t, ok)
	require.Equal(t, ImagePNG, fmt)
}

func TestDetectJSONProtocolField_SRC20(t *testing.T) {
	variant, isJSON := DetectJSONProtocolField([]byte(`{"p":"src-20","op":"deploy"}`))
	require.True(t, isJSON)
	require.Equal(t, "SRC20", variant)
}

func TestDetectJSONProtocolField_GenericJSON(t *testing.T) {
	variant, isJSON := DetectJSONProtocolField([]byte(`{"foo":"bar"}`))
	require.True(t, isJSON)
	require.Equal(t, "", variant)
}

func TestDetectJSONProtocolField_NotJSON(t *testing.T) {
	_, isJSON := DetectJSONProtocolField([]byte("not json at all"))
	require.False(t, isJSON)
}

func TestDetectHTML_ScoresAboveThreshold(t *testing.T) {
	html := []byte("<!DOCTYPE html><html><head><meta charset=\"utf-8\"></head><body>hi</body></html>")
	require.True(t, DetectHTML(html))
}

func TestDetectHTML_BelowThreshold(t *testing.T) {
	require.False(t, DetectHTML([]byte("<html>just this</html>")))
	// <html> plus <head> scores exactly the threshold of 2, so it is HTML.
	require.True(t, DetectHTML([]byte("<html><head></head></html>")))
	require.False(t, DetectHTML([]byte("plain text, no markup at all")))
}

func TestIsProofOfBurn(t *testing.T) {
	burn := make([]byte, 33)
	for i := range burn {
		burn[i] = 0xFF
	}
	require.True(t, IsProofOfBurn(burn))

	burn[0] = 0x00
	require.False(t, IsProofOfBurn(burn))
}

func TestDetectCompressionFormat_GZIP(t *testing.T) {
	gz := []byte{0x1F, 0x8B, 0x08, 0x00}
	format, ok := DetectCompressionFormat(gz)
	require.True(t, ok)
	require.Equal(t, "application/gzip", format)
}
