package models

// MediaKind identifies the attachment variant of an inbound message.
type MediaKind string

const (
	MediaDocument  MediaKind = "document"
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaAudio     MediaKind = "audio"
	MediaVoice     MediaKind = "voice"
	MediaVideoNote MediaKind = "video_note"
)

// MediaDescriptor is the normalized metadata record for an inbound attachment.
type MediaDescriptor struct {
	Kind        MediaKind `json:"kind"`
	SourceID    string    `json:"source_id"`
	DisplayName string    `json:"display_name,omitempty"`
	SizeBytes   *int64    `json:"size_bytes,omitempty"`
	MimeType    string    `json:"mime_type,omitempty"`
}

// HasSize reports whether the platform supplied a file size.
func (d MediaDescriptor) HasSize() bool {
	return d.SizeBytes != nil
}
