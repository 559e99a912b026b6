package sequence

import "fmt"

// FormatDocumentNumber renders a human-readable document number with a fixed
// prefix and zero-padded id, e.g. ("INV", 42, 8) -> "INV00000042". Ids wider
// than width are not truncated.
func FormatDocumentNumber(prefix string, id int64, width int) string {
	return fmt.Sprintf("%s%0*d", prefix, width, id)
}
