package grading

import (
	"encoding/json"
	"strconv"

	"github.com/classrecord/classrecord-api/internal/models"
)

// WeightTriple is the canonical percentage contribution per category.
type WeightTriple struct {
	WW float64 `json:"ww"`
	PT float64 `json:"pt"`
	QE float64 `json:"qe"`
}

// DefaultWeights applies when a class has no weight configuration at all.
func DefaultWeights() WeightTriple {
	return WeightTriple{WW: 40, PT: 30, QE: 30}
}

// ForCategory returns the weight for a canonical category code.
func (w WeightTriple) ForCategory(category string) float64 {
	switch category {
	case CategoryWrittenWork:
		return w.WW
	case CategoryPerformanceTask:
		return w.PT
	case CategoryQuarterlyExam:
		return w.QE
	default:
		return 0
	}
}

// ResolveWeights normalizes the stored weight configuration into a canonical
// triple. Two legacy shapes coexist in stored data: an object with ww/pt/qe
// fields, where absent fields keep their defaults, and an array of
// {category,percentage} pairs, where categories absent from the array resolve
// to 0. Malformed documents and non-numeric fields never fail; they coerce to
// the defaults and 0 respectively. The triple's sum is not validated here or
// anywhere below the presentation layer.
func ResolveWeights(raw models.RawWeights) WeightTriple {
	weights := DefaultWeights()
	if len(raw) == 0 {
		return weights
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return weights
	}

	switch shaped := doc.(type) {
	case map[string]interface{}:
		// A JSON null counts as absent, keeping the default.
		if v, ok := shaped["ww"]; ok && v != nil {
			weights.WW = coerceNumber(v)
		}
		if v, ok := shaped["pt"]; ok && v != nil {
			weights.PT = coerceNumber(v)
		}
		if v, ok := shaped["qe"]; ok && v != nil {
			weights.QE = coerceNumber(v)
		}
	case []interface{}:
		weights = WeightTriple{}
		for _, item := range shaped {
			pair, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			category, _ := pair["category"].(string)
			pct := coerceNumber(pair["percentage"])
			switch NormalizeCategory(category) {
			case CategoryWrittenWork:
				weights.WW = pct
			case CategoryPerformanceTask:
				weights.PT = pct
			case CategoryQuarterlyExam:
				weights.QE = pct
			}
		}
	}

	return weights
}

func coerceNumber(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
