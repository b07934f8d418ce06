// internal/workers/communication/send-status-notification/validation.go
package sendstatusnotification

import (
	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/validation"
)

var inputSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"kind", "applicantId"},
	"properties": map[string]interface{}{
		"kind": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{"status_changed", "admin_approved"},
		},
		"applicantId": map[string]interface{}{"type": "string", "minLength": 1},
		"email":       map[string]interface{}{"type": "string", "format": "email"},
		"phoneNumber": map[string]interface{}{"type": "string", "pattern": `^\+[1-9][0-9]{6,14}$`},
		"newStatus":   map[string]interface{}{"type": "string"},
	},
}

func validateInput(input *Input) error {
	result, err := validation.Validate(inputSchema, input)
	if err != nil {
		return errors.NewPayloadInvalidError(TaskType, []string{err.Error()})
	}
	if !result.Valid {
		return errors.NewPayloadInvalidError(TaskType, result.Messages())
	}
	return nil
}
