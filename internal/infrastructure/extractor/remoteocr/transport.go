package remoteocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type ocrResponse struct {
	Text       string  `json:"text"`
	Backend    string  `json:"backend"`
	Confidence float64 `json:"confidence"`
}

func (c *Client) recognize(ctx context.Context, raw []byte) (ocrResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/ocr", bytes.NewReader(raw))
	if err != nil {
		return ocrResponse{}, fmt.Errorf("create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ocrResponse{}, fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return ocrResponse{}, &HTTPStatusError{
			Operation:  "recognize",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var out ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ocrResponse{}, fmt.Errorf("decode ocr response: %w", err)
	}
	return out, nil
}
