package media_test

import (
	"testing"

	"github.com/elmariachi111/llm-tg-bot/internal/media"
	"github.com/elmariachi111/llm-tg-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeDocument(t *testing.T) {
	d := media.Describe(media.Attachment{
		Kind:     models.MediaDocument,
		FileID:   "f1",
		FileName: "report.pdf",
		FileSize: 2048,
		MimeType: "application/pdf",
	})

	assert.Equal(t, "f1", d.SourceID)
	assert.Equal(t, "report.pdf", d.DisplayName)
	assert.Equal(t, "application/pdf", d.MimeType)
	require.NotNil(t, d.SizeBytes)
	assert.Equal(t, int64(2048), *d.SizeBytes)
}

func TestDescribeVoiceWithoutSize(t *testing.T) {
	d := media.Describe(media.Attachment{Kind: models.MediaVoice, FileID: "v1"})

	assert.Equal(t, "v1", d.SourceID)
	assert.Equal(t, "voice_message.ogg", d.DisplayName)
	assert.Equal(t, "audio/ogg", d.MimeType)
	assert.Nil(t, d.SizeBytes, "size should stay unset when the platform omitted it")
	assert.False(t, d.HasSize())
}

func TestDescribeDefaults(t *testing.T) {
	tests := []struct {
		name     string
		in       media.Attachment
		wantName string
		wantMime string
	}{
		{"photo", media.Attachment{Kind: models.MediaPhoto, FileID: "p"}, "photo.jpg", "image/jpeg"},
		{"video keeps platform mime", media.Attachment{Kind: models.MediaVideo, FileID: "v", MimeType: "video/webm"}, "video.mp4", "video/webm"},
		{"video without mime", media.Attachment{Kind: models.MediaVideo, FileID: "v"}, "video.mp4", ""},
		{"audio with title", media.Attachment{Kind: models.MediaAudio, FileID: "a", Title: "Song", MimeType: "audio/mpeg"}, "Song", "audio/mpeg"},
		{"audio without title", media.Attachment{Kind: models.MediaAudio, FileID: "a"}, "audio.mp3", ""},
		{"video note", media.Attachment{Kind: models.MediaVideoNote, FileID: "n"}, "video_note.mp4", "video/mp4"},
		{"document without name", media.Attachment{Kind: models.MediaDocument, FileID: "d"}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := media.Describe(tt.in)
			assert.Equal(t, tt.in.Kind, d.Kind)
			assert.Equal(t, tt.wantName, d.DisplayName)
			assert.Equal(t, tt.wantMime, d.MimeType)
		})
	}
}

func TestDescribeIgnoresNonPositiveSize(t *testing.T) {
	d := media.Describe(media.Attachment{Kind: models.MediaPhoto, FileID: "p", FileSize: 0})
	assert.Nil(t, d.SizeBytes)
}
