package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"
)

func encodeBody(s string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}

func plainPart(body string) *gmailapi.MessagePart {
	return &gmailapi.MessagePart{
		MimeType: "text/plain",
		Body:     &gmailapi.MessagePartBody{Data: encodeBody(body)},
	}
}

func htmlPart(body string) *gmailapi.MessagePart {
	return &gmailapi.MessagePart{
		MimeType: "text/html",
		Body:     &gmailapi.MessagePartBody{Data: encodeBody(body)},
	}
}

func TestExtractBody(t *testing.T) {
	tests := []struct {
		name  string
		parts []*gmailapi.MessagePart
		want  string
	}{
		{
			name:  "empty input",
			parts: nil,
			want:  "",
		},
		{
			name:  "plain text only",
			parts: []*gmailapi.MessagePart{plainPart("hello")},
			want:  "hello",
		},
		{
			name:  "html only falls back",
			parts: []*gmailapi.MessagePart{htmlPart("<p>hello</p>")},
			want:  "<p>hello</p>",
		},
		{
			name:  "plain text wins over earlier html sibling",
			parts: []*gmailapi.MessagePart{htmlPart("<p>html</p>"), plainPart("plain")},
			want:  "plain",
		},
		{
			name:  "plain text wins over later html sibling",
			parts: []*gmailapi.MessagePart{plainPart("plain"), htmlPart("<p>html</p>")},
			want:  "plain",
		},
		{
			name: "nested plain text beats top level html",
			parts: []*gmailapi.MessagePart{
				htmlPart("<p>html</p>"),
				{
					MimeType: "multipart/alternative",
					Parts: []*gmailapi.MessagePart{
						{
							MimeType: "multipart/related",
							Parts:    []*gmailapi.MessagePart{plainPart("deep plain")},
						},
					},
				},
			},
			want: "deep plain",
		},
		{
			name: "nested html does not shadow a later plain sibling",
			parts: []*gmailapi.MessagePart{
				{
					MimeType: "multipart/related",
					Parts:    []*gmailapi.MessagePart{htmlPart("<p>nested html</p>")},
				},
				plainPart("late plain"),
			},
			want: "late plain",
		},
		{
			name: "first html fallback wins when no plain text exists",
			parts: []*gmailapi.MessagePart{
				htmlPart("<p>first</p>"),
				htmlPart("<p>second</p>"),
			},
			want: "<p>first</p>",
		},
		{
			name: "malformed plain text payload decodes to empty",
			parts: []*gmailapi.MessagePart{
				{
					MimeType: "text/plain",
					Body:     &gmailapi.MessagePartBody{Data: "!!!not-base64!!!"},
				},
			},
			want: "",
		},
		{
			name: "malformed plain text still allows html fallback",
			parts: []*gmailapi.MessagePart{
				{
					MimeType: "text/plain",
					Body:     &gmailapi.MessagePartBody{Data: "!!!not-base64!!!"},
				},
				htmlPart("<p>fallback</p>"),
			},
			want: "<p>fallback</p>",
		},
		{
			name: "parts without body data are skipped",
			parts: []*gmailapi.MessagePart{
				{MimeType: "text/plain"},
				{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{}},
				plainPart("actual"),
			},
			want: "actual",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractBody(tt.parts))
		})
	}
}

func TestExtractAttachments(t *testing.T) {
	parts := []*gmailapi.MessagePart{
		{
			MimeType: "application/pdf",
			Filename: "contract.pdf",
			Body:     &gmailapi.MessagePartBody{AttachmentId: "att-1", Size: 2048},
		},
		{
			// No attachment id, inline image data. Not an attachment.
			MimeType: "image/png",
			Filename: "inline.png",
			Body:     &gmailapi.MessagePartBody{Data: encodeBody("png-bytes")},
		},
		{
			// No filename. Not an attachment.
			MimeType: "application/octet-stream",
			Body:     &gmailapi.MessagePartBody{AttachmentId: "att-2", Size: 10},
		},
		{
			MimeType: "multipart/mixed",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "image/jpeg",
					Filename: "photo.jpg",
					Body:     &gmailapi.MessagePartBody{AttachmentId: "att-3", Size: 512},
				},
			},
		},
	}

	attachments := extractAttachments(parts)

	require.Len(t, attachments, 2)
	assert.Equal(t, "contract.pdf", attachments[0].Filename)
	assert.Equal(t, "application/pdf", attachments[0].MimeType)
	assert.Equal(t, int64(2048), attachments[0].Size)
	assert.Equal(t, "att-1", attachments[0].AttachmentID)
	assert.Equal(t, "photo.jpg", attachments[1].Filename)
	assert.Equal(t, "att-3", attachments[1].AttachmentID)
}

func TestExtractAttachmentsEmpty(t *testing.T) {
	assert.Empty(t, extractAttachments(nil))
	assert.Empty(t, extractAttachments([]*gmailapi.MessagePart{plainPart("no attachments here")}))
}

func TestFindHeader(t *testing.T) {
	headers := []*gmailapi.MessagePartHeader{
		{Name: "From", Value: "alice@example.com"},
		{Name: "subject", Value: "Quarterly report"},
	}

	assert.Equal(t, "alice@example.com", findHeader(headers, "from"))
	assert.Equal(t, "Quarterly report", findHeader(headers, "Subject"))
	assert.Equal(t, "", findHeader(headers, "To"))
	assert.Equal(t, "", findHeader(nil, "From"))
}

func TestBuildMessage(t *testing.T) {
	msg := &gmailapi.Message{
		Id:       "msg-1",
		ThreadId: "thread-1",
		Snippet:  "Please sign the attached form",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Date", Value: "Mon, 02 Jan 2006 15:04:05 -0700"},
				{Name: "From", Value: "alice@example.com"},
				{Name: "To", Value: "bob@example.com"},
				{Name: "Subject", Value: "Signature needed"},
			},
			Parts: []*gmailapi.MessagePart{
				plainPart("Please sign the attached form by Friday"),
				{
					MimeType: "application/pdf",
					Filename: "form.pdf",
					Body:     &gmailapi.MessagePartBody{AttachmentId: "att-1", Size: 4096},
				},
			},
		},
	}

	built := buildMessage(msg, true)

	require.NotNil(t, built)
	assert.Equal(t, "msg-1", built.ID)
	assert.Equal(t, "thread-1", built.ThreadID)
	assert.Equal(t, "alice@example.com", built.From)
	assert.Equal(t, "bob@example.com", built.To)
	assert.Equal(t, "Signature needed", built.Subject)
	assert.Equal(t, "Please sign the attached form", built.Snippet)
	assert.Equal(t, "Please sign the attached form by Friday", built.Body)
	assert.True(t, built.IsThreadReply)
	require.Len(t, built.Attachments, 1)
	assert.Equal(t, "form.pdf", built.Attachments[0].Filename)
}

func TestBuildMessageWithoutPayload(t *testing.T) {
	assert.Nil(t, buildMessage(nil, false))
	assert.Nil(t, buildMessage(&gmailapi.Message{Id: "msg-1"}, false))
}

func TestBuildMessageSinglePartBody(t *testing.T) {
	// Messages without a part list carry their body directly on the payload.
	msg := &gmailapi.Message{
		Id:       "msg-2",
		ThreadId: "thread-2",
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Subject", Value: "Short note"},
			},
			Body: &gmailapi.MessagePartBody{Data: encodeBody("just one part")},
		},
	}

	built := buildMessage(msg, false)

	require.NotNil(t, built)
	assert.Equal(t, "just one part", built.Body)
	assert.False(t, built.IsThreadReply)
	assert.Empty(t, built.Attachments)
}
