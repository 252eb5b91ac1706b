// Package mailer posts rendered billing documents to the external delivery
// service that emails them to customers.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client delivers one document per call. The delivery service deduplicates on
// the document id and answers HTTP 409 when the document was already sent;
// that counts as success here so retries stay harmless.
type Client struct {
	url    string
	apiKey string
	client *http.Client
}

type sendRequest struct {
	DocumentID string `json:"document_id"`
	Recipient  string `json:"recipient"`
	Subject    string `json:"subject"`
	Filename   string `json:"filename"`
	// PDF is base64 in transit.
	PDF string `json:"pdf"`
}

func NewClient(url, apiKey string) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether a delivery endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// SendDocument posts the rendered PDF to the delivery endpoint.
func (c *Client) SendDocument(ctx context.Context, documentID, recipient, subject, filename string, pdf []byte) error {
	if !c.Enabled() {
		return fmt.Errorf("document delivery is not configured")
	}
	if recipient == "" {
		return fmt.Errorf("document %s: customer has no email address", documentID)
	}

	body, err := json.Marshal(sendRequest{
		DocumentID: documentID,
		Recipient:  recipient,
		Subject:    subject,
		Filename:   filename,
		PDF:        base64.StdEncoding.EncodeToString(pdf),
	})
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post document %s: %w", documentID, err)
	}
	defer resp.Body.Close()

	// 409 means the service already sent this document.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("delivery service returned %d for document %s", resp.StatusCode, documentID)
	}
	return nil
}
