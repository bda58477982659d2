package messagequeue

import (
	"encoding/json"
	"fmt"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch subject {
	case SubjectWorkflowCompleted:
		var p WorkflowCompletedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.WorkflowID == "" || p.Status == "" {
			return fmt.Errorf("schema validation failed for %s: workflow_id and status are required", subject)
		}
	case SubjectWorkflowHandoff:
		var p WorkflowHandoffPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.From == "" || p.To == "" {
			return fmt.Errorf("schema validation failed for %s: from and to are required", subject)
		}
	}
	return nil
}
