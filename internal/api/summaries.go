package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"time"
)

// Summary is one image-summarization exchange as the backend records it.
type Summary struct {
	ID        string    `json:"id"`
	ImageName string    `json:"image_name"`
	Prompt    string    `json:"prompt"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// SummarizeRequest carries one image upload.
type SummarizeRequest struct {
	ImageName   string
	ContentType string
	Image       []byte
	Prompt      string
}

// Summarize uploads an image for AI summarization and returns the result.
// The multipart body is fully buffered so the transport can replay the
// request after a token refresh.
func (c *Client) Summarize(ctx context.Context, req SummarizeRequest) (*Summary, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="image"; filename=%q`, req.ImageName))
	header.Set("Content-Type", req.ContentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	if req.Prompt != "" {
		if err := writer.WriteField("prompt", req.Prompt); err != nil {
			return nil, fmt.Errorf("failed to build upload: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	data, err := c.do(ctx, "POST", PathSummaries, buf.Bytes(), writer.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var summary Summary
	if err := unwrapJSON(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &summary, nil
}

// ListSummaries fetches the server-side summary listing.
func (c *Client) ListSummaries(ctx context.Context) ([]Summary, error) {
	data, err := c.Get(ctx, PathSummaries)
	if err != nil {
		return nil, err
	}

	var summaries []Summary
	if err := json.Unmarshal(data, &summaries); err == nil {
		return summaries, nil
	}
	if err := unwrapJSON(data, &summaries); err != nil {
		return nil, fmt.Errorf("failed to parse summaries: %w", err)
	}
	return summaries, nil
}
