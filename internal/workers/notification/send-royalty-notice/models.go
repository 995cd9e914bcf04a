// internal/workers/notification/send-royalty-notice/models.go
package sendroyaltynotice

type Input struct {
	FranchiseID string            `json:"franchiseId"`
	NoticeType  string            `json:"noticeType"`
	Priority    string            `json:"priority,omitempty"` // high or urgent also sends SMS
	Data        map[string]string `json:"data,omitempty"`     // template variables
}

type Output struct {
	FranchiseID string `json:"franchiseId"`
	NoticeType  string `json:"noticeType"`
	EmailStatus string `json:"emailStatus"` // sent, failed or disabled
	SMSStatus   string `json:"smsStatus"`   // sent, failed, disabled or skipped
	SentAt      string `json:"sentAt"`
}
