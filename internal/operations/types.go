package operations

import "time"

// Step identifiers
const (
	StepIDConvert   = "convert"
	StepIDAggregate = "aggregate"
	StepIDExport    = "export"
	StepIDPersist   = "persist"
)

// Step names
const (
	StepNameConvert   = "Workbook Conversion"
	StepNameAggregate = "ST Aggregation"
	StepNameExport    = "Report Export"
	StepNamePersist   = "Report Persistence"
)

// Context keys for values passed between steps
const (
	ContextKeyInputs  = "inputs"
	ContextKeyResult  = "result"
	ContextKeyReports = "reports"
	ContextKeyRunID   = "run_id"
)

// DefaultStepTimeout bounds a single step.
const DefaultStepTimeout = 30 * time.Minute

// OperationRequest describes one pipeline run.
type OperationRequest struct {
	ID string `json:"id"`
	// Inputs are explicit export files; Dir is searched for .csv and .xlsx
	// files when Inputs is empty.
	Inputs []string `json:"inputs,omitempty"`
	Dir    string   `json:"dir,omitempty"`
	OutDir string   `json:"out_dir,omitempty"`
	// Since drops files in Dir modified before it.
	Since time.Time `json:"since,omitempty"`
	// Encoding overrides the configured input encoding when set.
	Encoding string `json:"encoding,omitempty"`
	Strict   *bool  `json:"strict,omitempty"`
}

// OperationResponse represents the response from a operation execution
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
}
