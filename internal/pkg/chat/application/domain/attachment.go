package chat

import "strings"

// AttachmentType is the coarse classification of an attachment, derived from
// its mime type.
type AttachmentType string

const (
	AttachmentTypeFile  AttachmentType = "FILE"
	AttachmentTypeImage AttachmentType = "IMAGE"
	AttachmentTypeVideo AttachmentType = "VIDEO"
)

// Attachment belongs to exactly one message. FileKey points at the blob in
// external storage; upload itself happens outside this pipeline.
type Attachment struct {
	ID        string         `db:"id"`
	MessageID string         `db:"message_id"`
	FileKey   string         `db:"file_key"`
	MimeType  string         `db:"mime_type"`
	Size      int64          `db:"size"`
	Type      AttachmentType `db:"attachment_type"`
}

// AttachmentTypeFromMime maps a mime type onto the coarse attachment type.
func AttachmentTypeFromMime(mimeType string) AttachmentType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return AttachmentTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return AttachmentTypeVideo
	default:
		return AttachmentTypeFile
	}
}
