package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

type textResp struct {
	Text string `json:"text"`
}

// TextConverter sends the document to the text extraction / OCR service and
// returns the plain text it answers with.
type TextConverter struct {
	URL    string
	client *http.Client
	log    *zap.Logger
}

func NewTextConverter(url string, client *http.Client, log *zap.Logger) *TextConverter {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TextConverter{URL: url, client: client, log: log}
}

func (c *TextConverter) Convert(ctx context.Context, data []byte, src Format, _ Kind) ([]byte, error) {
	log := c.log.With(zap.String("url", c.URL), zap.String("source", string(src)))
	log.Debug("[text.conv] sending", zap.Int("bytes", len(data)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Source-Format", string(src))

	// ---- HTTP ----
	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn("[text.conv] http error", zap.Error(err))
		return nil, fmt.Errorf("text service error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read text service response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn("[text.conv] bad status", zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return nil, fmt.Errorf("text service bad status %d", resp.StatusCode)
	}

	// ---- PARSE JSON ----
	var out textResp
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("text service json: %w", err)
	}

	log.Debug("[text.conv] received", zap.Int("text_len", len(out.Text)))
	return []byte(out.Text), nil
}
