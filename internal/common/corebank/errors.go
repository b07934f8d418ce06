package corebank

import (
	"onboarding-workers/internal/common/errors"
	commonhttp "onboarding-workers/internal/common/http"
	"onboarding-workers/internal/models"
)

// decodeError reports a 2xx reply the client could not understand. It is not
// retryable: the remote side already applied the call.
func decodeError(op models.SyncOperation, resp *commonhttp.Response, err error) error {
	e := errors.NewRemoteAPIError(string(op), resp.StatusCode, string(resp.Body), err)
	e.Retryable = false
	return e
}
