package lifecycle

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	apperrors "leaseflow/internal/common/errors"
	"leaseflow/internal/models"
)

// submissionSchema is the structural contract an application payload must
// meet before it may enter submitted. Scoring stays tolerant of sparse
// data; this gate only rejects payloads the review flow cannot work with.
const submissionSchema = `{
	"type": "object",
	"required": ["monthlyIncome"],
	"properties": {
		"monthlyIncome": {"type": "number", "minimum": 0},
		"employmentStatus": {"type": "string"},
		"employmentDuration": {"type": "string"},
		"rentalHistoryDuration": {"type": "string"},
		"hasEviction": {"type": "boolean"},
		"ssn": {"type": "string"},
		"documents": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["kind", "status"],
				"properties": {
					"kind": {
						"type": "string",
						"enum": ["identity", "proof_of_income", "employment_verification"]
					},
					"status": {
						"type": "string",
						"enum": ["uploaded", "verified"]
					}
				}
			}
		}
	}
}`

var submissionSchemaLoader = gojsonschema.NewStringLoader(submissionSchema)

// ValidateSubmission checks the application payload against the
// submission schema and returns a VALIDATION_FAILED error listing every
// violated field.
func ValidateSubmission(data models.ApplicationData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return apperrors.NewValidationFailedError(fmt.Sprintf("marshal application data: %v", err), nil)
	}

	result, err := gojsonschema.Validate(submissionSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return apperrors.NewValidationFailedError(fmt.Sprintf("schema validation: %v", err), nil)
	}

	if result.Valid() {
		return nil
	}

	fieldErrors := make([]string, 0, len(result.Errors()))
	for _, resErr := range result.Errors() {
		fieldErrors = append(fieldErrors, resErr.String())
	}
	return apperrors.NewValidationFailedError("application data does not meet the submission schema", fieldErrors)
}
