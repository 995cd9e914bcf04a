// internal/models/notification.go
package models

type RoyaltyNotice struct {
	ID          string                 `json:"id"`
	FranchiseID string                 `json:"franchiseId"`
	NoticeType  string                 `json:"noticeType"` // "calculation_ready", "payment_due", "payment_overdue", "dispute_update"
	Channel     string                 `json:"channel"`    // "email", "sms"
	Status      string                 `json:"status"`     // "sent", "failed", "disabled"
	Payload     map[string]interface{} `json:"payload"`
	SentAt      string                 `json:"sentAt"`
}
