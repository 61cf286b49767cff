package provider

import (
	"encoding/json"
	"fmt"

	"github.com/yapmint/yapmint/internal/domain/model"
)

// scorePayload mirrors the provider response. The raw-score field may sit at
// the top level or one level down under "data"; both shapes are accepted.
type scorePayload struct {
	YapsL24h *float64      `json:"yaps_l24h"`
	Rank     *float64      `json:"rank"`
	Score    *float64      `json:"score"`
	Data     *scorePayload `json:"data"`
}

// parsePayload applies the acceptance rule: a payload is valid if it carries
// a numeric yaps_l24h either at the top level or nested under data. Optional
// rank and normalized-score fields are copied through when numeric.
func parsePayload(body []byte) (model.ScoreRecord, error) {
	var p scorePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return model.ScoreRecord{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	src := &p
	if p.YapsL24h == nil && p.Data != nil {
		src = p.Data
	}
	if src.YapsL24h == nil {
		return model.ScoreRecord{}, fmt.Errorf("%w: missing yaps_l24h", ErrMalformedPayload)
	}
	if *src.YapsL24h < 0 {
		return model.ScoreRecord{}, fmt.Errorf("%w: negative yaps_l24h", ErrMalformedPayload)
	}

	record := model.ScoreRecord{RawScore: uint64(*src.YapsL24h)}
	if src.Rank != nil && *src.Rank > 0 {
		rank := uint64(*src.Rank)
		record.Rank = &rank
	}
	if src.Score != nil && *src.Score >= 0 {
		normalized := *src.Score
		record.Normalized = &normalized
	}
	return record, nil
}
