package gmail

import (
	"encoding/base64"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/inboxkit/mailsort/internal/models"
)

const (
	mimeTypeTextPlain = "text/plain"
	mimeTypeTextHTML  = "text/html"
)

// buildMessage converts a Gmail API message into the internal representation.
// Messages without a payload are not reconstructable and map to nil.
func buildMessage(msg *gmailapi.Message, isThreadReply bool) *models.EmailMessage {
	if msg == nil || msg.Payload == nil {
		return nil
	}

	headers := msg.Payload.Headers
	return &models.EmailMessage{
		ID:            msg.Id,
		ThreadID:      msg.ThreadId,
		Date:          findHeader(headers, "Date"),
		From:          findHeader(headers, "From"),
		To:            findHeader(headers, "To"),
		Subject:       findHeader(headers, "Subject"),
		Snippet:       msg.Snippet,
		Body:          extractMessageBody(msg.Payload),
		Attachments:   extractAttachments(msg.Payload.Parts),
		IsThreadReply: isThreadReply,
	}
}

// findHeader performs a case-insensitive lookup for a header value.
func findHeader(headers []*gmailapi.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func extractMessageBody(payload *gmailapi.MessagePart) string {
	if len(payload.Parts) > 0 {
		return extractBody(payload.Parts)
	}
	if payload.Body != nil {
		return decodeBase64URL(payload.Body.Data)
	}
	return ""
}

type partFrame struct {
	part     *gmailapi.MessagePart
	leafOnly bool
}

// extractBody walks a part tree looking for a plain text body. A container's
// children are examined before the container's own payload. The first plain
// text part that decodes to something non-empty wins immediately; the first
// html part is remembered as a fallback for trees that never yield plain
// text, so a plain text part at any depth beats html regardless of sibling
// order.
func extractBody(parts []*gmailapi.MessagePart) string {
	stack := make([]partFrame, 0, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		stack = append(stack, partFrame{part: parts[i]})
	}

	fallback := ""
	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		part := frame.part
		if part == nil {
			continue
		}

		if !frame.leafOnly && len(part.Parts) > 0 {
			stack = append(stack, partFrame{part: part, leafOnly: true})
			for i := len(part.Parts) - 1; i >= 0; i-- {
				stack = append(stack, partFrame{part: part.Parts[i]})
			}
			continue
		}

		if part.Body == nil || part.Body.Data == "" {
			continue
		}

		switch part.MimeType {
		case mimeTypeTextPlain:
			if text := decodeBase64URL(part.Body.Data); text != "" {
				return text
			}
		case mimeTypeTextHTML:
			if fallback == "" {
				fallback = decodeBase64URL(part.Body.Data)
			}
		}
	}

	return fallback
}

// extractAttachments flattens nested part lists and collects metadata for
// every part carrying both a filename and a remote attachment id. Bodies are
// never fetched, only referenced.
func extractAttachments(parts []*gmailapi.MessagePart) []models.EmailAttachment {
	var attachments []models.EmailAttachment

	stack := make([]*gmailapi.MessagePart, 0, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		stack = append(stack, parts[i])
	}

	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if part == nil {
			continue
		}

		if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
			attachments = append(attachments, models.EmailAttachment{
				Filename:     part.Filename,
				MimeType:     part.MimeType,
				Size:         part.Body.Size,
				AttachmentID: part.Body.AttachmentId,
			})
		}

		for i := len(part.Parts) - 1; i >= 0; i-- {
			stack = append(stack, part.Parts[i])
		}
	}

	return attachments
}

// decodeBase64URL decodes Gmail's URL-safe base64 encoded strings (without
// padding). Malformed payloads decode to an empty string rather than failing.
func decodeBase64URL(s string) string {
	if s == "" {
		return ""
	}
	data, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s)
	if err != nil {
		return ""
	}
	return string(data)
}
