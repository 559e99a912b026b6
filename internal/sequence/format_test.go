package sequence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatDocumentNumber(t *testing.T) {
	require.Equal(t, "INV00000042", FormatDocumentNumber("INV", 42, 8))
	require.Equal(t, "PAY00000001", FormatDocumentNumber("PAY", 1, 8))
	require.Equal(t, "JE0007", FormatDocumentNumber("JE", 7, 4))
	// Ids wider than the pad width keep all digits.
	require.Equal(t, "RCP123456789", FormatDocumentNumber("RCP", 123456789, 6))
}
