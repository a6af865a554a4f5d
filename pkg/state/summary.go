package state

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/webhunt/pkg/engine"
)

//go:embed summary_schema.json
var summarySchemaJSON []byte

const summarySchemaResource = "webhunt/v1/run-summary.json"

// RunSummary is the human-inspectable export of a finished or
// interrupted run: metadata about the run, not the full results set,
// meant for a status line or a saved companion file next to the state
// database.
type RunSummary struct {
	RunID        string `yaml:"run_id" json:"run_id"`
	BaseURL      string `yaml:"base_url" json:"base_url"`
	Mode         string `yaml:"mode" json:"mode"`
	GeneratedAt  string `yaml:"generated_at" json:"generated_at"`
	Duration     string `yaml:"duration,omitempty" json:"duration,omitempty"`
	Totals       Totals `yaml:"totals" json:"totals"`
	ResultsBytes string `yaml:"results_bytes,omitempty" json:"results_bytes,omitempty"`
}

// Totals mirrors engine.RunStatsSnapshot in the human-summary's own
// field names so the exported file's schema is independent of the
// engine package's internal layout.
type Totals struct {
	Requests int64 `yaml:"requests" json:"requests"`
	Retries  int64 `yaml:"retries" json:"retries"`
	Dropped  int64 `yaml:"dropped" json:"dropped"`
	Results  int64 `yaml:"results" json:"results"`
}

// BuildRunSummary assembles a RunSummary from a run's identity,
// accumulated stats, and total response-body bytes across its results,
// with the byte count formatted for an operator.
func BuildRunSummary(runID, baseURL string, mode engine.Mode, stats engine.RunStatsSnapshot, elapsed time.Duration, resultBytes int64) RunSummary {
	now := time.Now().UTC()
	return RunSummary{
		RunID:       runID,
		BaseURL:     baseURL,
		Mode:        mode.String(),
		GeneratedAt: now.Format(time.RFC3339Nano),
		Duration:    elapsed.Round(time.Millisecond).String(),
		Totals: Totals{
			Requests: stats.TotalRequests,
			Retries:  stats.TotalRetries,
			Dropped:  stats.TotalDroppedAfterExhaustion,
			Results:  stats.TotalResults,
		},
		ResultsBytes: humanize.Bytes(uint64(resultBytes)),
	}
}

// ToYAML validates the summary against the embedded schema and then
// returns its YAML encoding; an invalid summary never reaches disk.
func (r RunSummary) ToYAML() ([]byte, error) {
	jsonData, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("state: marshal run summary: %w", err)
	}
	if err := validateSummary(jsonData); err != nil {
		return nil, err
	}

	out, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("state: encode run summary: %w", err)
	}
	return out, nil
}

var (
	summaryValidatorOnce sync.Once
	summaryValidator     *jsonschema.Schema
	summaryValidatorErr  error
)

func validateSummary(jsonData []byte) error {
	v, err := getSummaryValidator()
	if err != nil {
		return err
	}

	var doc interface{}
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("state: decode run summary for validation: %w", err)
	}
	if err := v.Validate(doc); err != nil {
		return fmt.Errorf("state: run summary failed schema validation: %w", err)
	}
	return nil
}

func getSummaryValidator() (*jsonschema.Schema, error) {
	summaryValidatorOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(summarySchemaResource, strings.NewReader(string(summarySchemaJSON))); err != nil {
			summaryValidatorErr = fmt.Errorf("state: load embedded run-summary schema: %w", err)
			return
		}
		summaryValidator, summaryValidatorErr = compiler.Compile(summarySchemaResource)
		if summaryValidatorErr != nil {
			summaryValidatorErr = fmt.Errorf("state: compile run-summary schema: %w", summaryValidatorErr)
		}
	})
	return summaryValidator, summaryValidatorErr
}
