package card

import (
	"fmt"
	"strconv"
	"strings"

	"glyphline/internal/errors"
)

// FormatID renders a card id in its zero-padded display form ("007").
func FormatID(id int64) string {
	return fmt.Sprintf("%03d", id)
}

// ParseID accepts a card id in plain ("7") or zero-padded ("007") form.
func ParseID(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, errors.NewInvalidRequest("card id is required")
	}
	id, err := strconv.ParseInt(strings.TrimLeft(trimmed, "0"), 10, 64)
	if err != nil {
		// all-zeros input trims to empty
		if strings.Trim(trimmed, "0") == "" && trimmed != "" {
			return 0, errors.NewInvalidRequest("card id must be positive")
		}
		return 0, errors.NewInvalidRequest(fmt.Sprintf("invalid card id %q", s))
	}
	if id <= 0 {
		return 0, errors.NewInvalidRequest("card id must be positive")
	}
	return id, nil
}
