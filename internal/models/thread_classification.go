package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/inboxkit/mailsort/internal/enum"
	"github.com/inboxkit/mailsort/internal/utils"
)

// ThreadClassification records one labeling outcome. Rows are inserted in the
// same transaction that advances the owning user's cursor, so the audit trail
// and the cursor never diverge.
type ThreadClassification struct {
	ID           string          `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	UserID       string          `gorm:"column:user_id;type:uuid;index;not null" json:"userId"`
	ThreadID     string          `gorm:"column:thread_id;type:varchar(100);index;not null" json:"threadId"`
	MessageID    string          `gorm:"column:message_id;type:varchar(100);not null" json:"messageId"`
	Label        enum.EmailLabel `gorm:"column:label;type:varchar(20);index;not null" json:"label"`
	RemoteLabel  string          `gorm:"column:remote_label;type:varchar(50)" json:"remoteLabel"`
	Subject      string          `gorm:"column:subject;type:varchar(1000)" json:"subject"`
	Participants pq.StringArray  `gorm:"column:participants;type:text[]" json:"participants"`
	MessageCount int             `gorm:"column:message_count;default:0" json:"messageCount"`
	CreatedAt    time.Time       `gorm:"column:created_at;type:timestamp" json:"createdAt"`
}

func (ThreadClassification) TableName() string {
	return "thread_classifications"
}

func (t *ThreadClassification) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = utils.GenerateNanoIDWithPrefix("cls", 16)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.Now()
	}
	return nil
}
