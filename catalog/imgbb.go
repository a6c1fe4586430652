package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"memeverse/config"

	"github.com/sirupsen/logrus"
)

// Uploader pushes image files to the imgbb host and hands back a public
// URL. A failed upload degrades to the configured placeholder URL so the
// flow that created the meme record can still complete.
type Uploader struct {
	baseURL     string
	key         string
	placeholder string
	http        *http.Client
}

// NewUploader builds an image uploader from configuration.
func NewUploader(cfg config.ImgbbConfig) *Uploader {
	return &Uploader{
		baseURL:     cfg.BaseURL,
		key:         cfg.Key,
		placeholder: cfg.PlaceholderURL,
		http:        &http.Client{Timeout: 60 * time.Second},
	}
}

type uploadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Upload posts the image as a multipart form. When the host rejects the
// upload or is unreachable, the placeholder URL is returned instead of an
// error; only a missing placeholder makes the failure fatal.
func (u *Uploader) Upload(ctx context.Context, filename string, image io.Reader) (string, error) {
	url, err := u.upload(ctx, filename, image)
	if err == nil {
		return url, nil
	}

	logrus.WithError(err).WithField("filename", filename).Warn("image upload failed")
	if u.placeholder == "" {
		return "", err
	}
	return u.placeholder, nil
}

func (u *Uploader) upload(ctx context.Context, filename string, image io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, image); err != nil {
		return "", fmt.Errorf("failed to buffer image: %w", err)
	}
	if err := writer.WriteField("key", u.key); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach image host: %w", err)
	}
	defer resp.Body.Close()

	var payload uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if !payload.Success || payload.Data.URL == "" {
		return "", fmt.Errorf("image host rejected upload (status %d)", resp.StatusCode)
	}
	return payload.Data.URL, nil
}
