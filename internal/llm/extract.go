package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notex/internal/apperr"
)

const fence = "```"

// ExtractJSON strips an optional markdown code fence from a model reply.
// The body runs from the end of the opening fence line to the last closing
// fence, so fences nested inside the payload survive. Anything it cannot make
// sense of is returned trimmed and left for the JSON decoder to reject.
func ExtractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, fence) {
		return trimmed
	}
	nl := strings.IndexByte(trimmed, '\n')
	if nl < 0 {
		return trimmed
	}
	rest := trimmed[nl+1:]
	end := strings.LastIndex(rest, fence)
	if end < 0 {
		return trimmed
	}
	return strings.TrimSpace(rest[:end])
}

// DecodeJSON extracts the JSON payload from raw, decodes it into target and
// validates it when target implements validation.Validatable. Failures wrap
// apperr.ErrParse.
func DecodeJSON(raw string, target any) error {
	payload := ExtractJSON(raw)
	if err := json.Unmarshal([]byte(payload), target); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrParse, err)
	}
	if v, ok := target.(validation.Validatable); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrParse, err)
		}
	}
	return nil
}
