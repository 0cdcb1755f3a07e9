// Package media normalizes inbound attachments into MediaDescriptors.
package media

import "github.com/elmariachi111/llm-tg-bot/internal/models"

// Default display names and MIME types applied when the platform omits them.
const (
	DefaultPhotoName     = "photo.jpg"
	DefaultPhotoMime     = "image/jpeg"
	DefaultVideoName     = "video.mp4"
	DefaultAudioName     = "audio.mp3"
	DefaultVoiceName     = "voice_message.ogg"
	DefaultVoiceMime     = "audio/ogg"
	DefaultVideoNoteName = "video_note.mp4"
	DefaultVideoNoteMime = "video/mp4"
)

// Attachment is a single file-like attachment tagged by its kind.
// Only the fields meaningful for Kind are read.
type Attachment struct {
	Kind     models.MediaKind
	FileID   string
	FileName string // document
	Title    string // audio
	MimeType string // document, video, audio
	FileSize int64
}

// Describe maps an attachment to its descriptor, filling kind-specific
// defaults. SizeBytes is only set when the platform reported a positive size.
func Describe(a Attachment) models.MediaDescriptor {
	d := models.MediaDescriptor{
		Kind:     a.Kind,
		SourceID: a.FileID,
	}
	if a.FileSize > 0 {
		size := a.FileSize
		d.SizeBytes = &size
	}

	switch a.Kind {
	case models.MediaDocument:
		d.DisplayName = a.FileName
		d.MimeType = a.MimeType
	case models.MediaPhoto:
		d.DisplayName = DefaultPhotoName
		d.MimeType = DefaultPhotoMime
	case models.MediaVideo:
		d.DisplayName = DefaultVideoName
		d.MimeType = a.MimeType
	case models.MediaAudio:
		d.DisplayName = a.Title
		if d.DisplayName == "" {
			d.DisplayName = DefaultAudioName
		}
		d.MimeType = a.MimeType
	case models.MediaVoice:
		d.DisplayName = DefaultVoiceName
		d.MimeType = DefaultVoiceMime
	case models.MediaVideoNote:
		d.DisplayName = DefaultVideoNoteName
		d.MimeType = DefaultVideoNoteMime
	}
	return d
}
