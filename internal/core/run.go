package core

import "time"

// RunManifest records one invocation of a workflow template: the minted
// run id, the template it was resolved from, and the ordered set of job
// ids it produced (spec.md §3).
type RunManifest struct {
	RunID            string            `json:"run_id"`
	TemplateID       string            `json:"template_id"`
	TemplateVersion  string            `json:"template_version"`
	Selector         string            `json:"selector"`
	JobIDs           []string          `json:"job_ids"`
	NodeIDToJobID    map[string]string `json:"node_id_to_job_id"`
	EnqueuedAt       time.Time         `json:"enqueued_at"`
}
