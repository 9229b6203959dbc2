package worker

type IngestTaskPayload struct {
	RunID    string `json:"run_id"`
	InputDir string `json:"input_dir"`
	Limit    int    `json:"limit"`

	CorrelationID string `json:"correlation_id"`
}
