package printer

import (
	"encoding/json"
	"fmt"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/stats"
)

type jsonResult struct {
	ID     string         `json:"id,omitempty"`
	Desc   string         `json:"desc"`
	Status check.Verdict  `json:"status"`
	Info   map[string]any `json:"info"`
	Remedy string         `json:"remedy,omitempty"`
}

// JSONRenderer writes one JSON document per line.
type JSONRenderer struct {
	encoder *json.Encoder
}

func newJSONRenderer(opts Options) *JSONRenderer {
	encoder := json.NewEncoder(opts.out())
	encoder.SetEscapeHTML(false)

	return &JSONRenderer{encoder: encoder}
}

func (r *JSONRenderer) RenderResult(result *check.Result) error {
	out := jsonResult{
		ID:     result.CheckID,
		Desc:   result.Description,
		Status: result.Verdict,
		Info:   result.Details,
	}

	if out.Info == nil {
		out.Info = map[string]any{}
	}

	if result.Verdict == check.VerdictFailed {
		out.Remedy = result.Remedy
	}

	if err := r.encoder.Encode(out); err != nil {
		return fmt.Errorf("encoding result of %s: %w", result.CheckID, err)
	}

	return nil
}

func (r *JSONRenderer) RenderStats(s stats.Stats) error {
	if err := r.encoder.Encode(newSummary(s)); err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}

	return nil
}
