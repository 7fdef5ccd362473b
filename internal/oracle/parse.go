package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripFences removes markdown code-fence wrapping that models sometimes add
// around JSON output.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// Wire structs use pointers so a missing field is distinguishable from a
// zero value, and missing means malformed.

type classificationWire struct {
	WasteType  *string  `json:"wasteType"`
	Quantity   *string  `json:"quantity"`
	Confidence *float64 `json:"confidence"`
}

func parseClassification(text string) (*Classification, error) {
	var w classificationWire
	if err := json.Unmarshal([]byte(stripFences(text)), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.WasteType == nil || *w.WasteType == "" || w.Quantity == nil || *w.Quantity == "" || w.Confidence == nil {
		return nil, fmt.Errorf("%w: missing required field", ErrMalformed)
	}
	if *w.Confidence < 0 || *w.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v out of range", ErrMalformed, *w.Confidence)
	}
	return &Classification{
		WasteType:  *w.WasteType,
		Quantity:   *w.Quantity,
		Confidence: *w.Confidence,
	}, nil
}

type comparisonWire struct {
	SameWaste     *bool    `json:"sameWaste"`
	QuantityMatch *bool    `json:"quantityMatch"`
	Confidence    *float64 `json:"confidence"`
}

func parseComparison(text string) (*Comparison, error) {
	var w comparisonWire
	if err := json.Unmarshal([]byte(stripFences(text)), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.SameWaste == nil || w.QuantityMatch == nil || w.Confidence == nil {
		return nil, fmt.Errorf("%w: missing required field", ErrMalformed)
	}
	if *w.Confidence < 0 || *w.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v out of range", ErrMalformed, *w.Confidence)
	}
	return &Comparison{
		SameWaste:     *w.SameWaste,
		QuantityMatch: *w.QuantityMatch,
		Confidence:    *w.Confidence,
	}, nil
}
