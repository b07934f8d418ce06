// internal/workers/billing/extend-paid-upto/models.go
package extendpaidupto

import "time"

type Input struct {
	ApplicantID    string `json:"applicantId"`
	SubscriptionID string `json:"subscriptionId"`
	AdminApproved  bool   `json:"adminApproved"`
}

type Output struct {
	SubscriptionID string     `json:"subscriptionId"`
	PaidUpto       *time.Time `json:"paidUpto,omitempty"`
}
