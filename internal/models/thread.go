package models

// Wire types produced by the mailbox provider. These are never persisted;
// the scheduler consumes them and keeps only ThreadClassification rows.

// EmailThread is one reconstructed conversation. MainMessage is the first
// message of the full thread retrieval and represents the thread for
// classification and labeling.
type EmailThread struct {
	ID          string          `json:"threadId"`
	HistoryID   uint64          `json:"historyId"`
	MainMessage *EmailMessage   `json:"mainEmail"`
	Messages    []*EmailMessage `json:"threadMessages"`
}

// EmailMessage is a single message with its extracted content. IsThreadReply
// is determined solely by the cardinality of the owning thread: every message
// of a multi-message thread carries it, including the first one.
type EmailMessage struct {
	ID            string            `json:"id"`
	ThreadID      string            `json:"threadId"`
	Date          string            `json:"date"`
	From          string            `json:"from"`
	To            string            `json:"to"`
	Subject       string            `json:"subject"`
	Snippet       string            `json:"snippet"`
	Body          string            `json:"body"`
	Attachments   []EmailAttachment `json:"attachments"`
	IsThreadReply bool              `json:"isThreadReply"`
}

// EmailAttachment is attachment metadata only; the payload is never fetched.
type EmailAttachment struct {
	Filename     string `json:"filename"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	AttachmentID string `json:"attachmentId"`
}

// ThreadBatch is one page of reconstructed threads. An empty NextPageToken
// means the mailbox has been paged through completely.
type ThreadBatch struct {
	NextPageToken string         `json:"nextPointer"`
	Threads       []*EmailThread `json:"threads"`
}

// MailboxLabel is a provider label reference.
type MailboxLabel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
