package dto

import "github.com/inboxkit/mailsort/internal/enum"

type ThreadLabeled struct {
	UserID       string          `json:"userId"`
	UserEmail    string          `json:"userEmail"`
	ThreadID     string          `json:"threadId"`
	MessageID    string          `json:"messageId"`
	Label        enum.EmailLabel `json:"label"`
	RemoteLabel  string          `json:"remoteLabel"`
	Subject      string          `json:"subject"`
	MessageCount int             `json:"messageCount"`
	LabeledAt    string          `json:"labeledAt"`
}
