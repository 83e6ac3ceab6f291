package genie

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"meingenie/internal/domain"
)

type transcriptionResponse struct {
	Text string `json:"text"`
}

func audioFilename(mimeType string) string {
	switch mimeType {
	case "audio/webm":
		return "recording.webm"
	case "audio/ogg":
		return "recording.ogg"
	case "audio/mpeg":
		return "recording.mp3"
	default:
		return "recording.wav"
	}
}

// Transcribe uploads a clip as multipart form data and returns the transcript.
func (c *Client) Transcribe(ctx context.Context, clip domain.AudioClip, language string) (string, error) {
	if len(clip.Data) == 0 {
		return "", errors.New("genie: audio clip is empty")
	}
	mimeType := clip.MIMEType
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="%s"`, audioFilename(mimeType)))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("genie: create audio part: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return "", fmt.Errorf("genie: write audio part: %w", err)
	}
	if err := w.WriteField("language", language); err != nil {
		return "", fmt.Errorf("genie: write language field: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("genie: close multipart body: %w", err)
	}

	target := c.endpoint("/voice/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &body)
	if err != nil {
		return "", fmt.Errorf("genie: create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.authorize(req)

	raw, err := c.do(req, target)
	if err != nil {
		return "", err
	}
	var out transcriptionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("genie: decode transcription: %w", err)
	}
	return out.Text, nil
}
