package printer

import (
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/stats"
)

type yamlReport struct {
	Results []*check.Result `json:"results"`
	Summary summary         `json:"summary"`
}

// YAMLRenderer collects the results and writes a single document with the stats.
type YAMLRenderer struct {
	out     io.Writer
	results []*check.Result
}

func newYAMLRenderer(opts Options) *YAMLRenderer {
	return &YAMLRenderer{out: opts.out()}
}

func (r *YAMLRenderer) RenderResult(result *check.Result) error {
	r.results = append(r.results, result)

	return nil
}

func (r *YAMLRenderer) RenderStats(s stats.Stats) error {
	results := r.results
	if results == nil {
		results = []*check.Result{}
	}

	data, err := yaml.Marshal(yamlReport{
		Results: results,
		Summary: newSummary(s),
	})
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	if _, err := r.out.Write(data); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	return nil
}
