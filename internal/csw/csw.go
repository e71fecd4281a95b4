// Package csw removes metadata records from the catalogue service.
package csw

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client posts CSW-T transactions.
type Client struct {
	url  string
	http *http.Client
}

// New returns a client for the CSW endpoint.
func New(url string, timeout time.Duration) *Client {
	return &Client{url: url, http: &http.Client{Timeout: timeout}}
}

const deleteTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<csw:Transaction xmlns:csw="http://www.opengis.net/cat/csw/2.0.2" xmlns:ogc="http://www.opengis.net/ogc"
  xmlns:dc="http://purl.org/dc/elements/1.1/" service="CSW" version="2.0.2">
  <csw:Delete>
    <csw:Constraint version="1.1.0">
      <ogc:Filter>
        <ogc:PropertyIsEqualTo>
          <ogc:PropertyName>dc:identifier</ogc:PropertyName>
          <ogc:Literal>%s</ogc:Literal>
        </ogc:PropertyIsEqualTo>
      </ogc:Filter>
    </csw:Constraint>
  </csw:Delete>
</csw:Transaction>`

type transactionResponse struct {
	TotalDeleted int `xml:"TransactionSummary>totalDeleted"`
}

// RemoveRecord deletes the record with the identifier uuid. A record that is
// already gone is not an error.
func (c *Client) RemoveRecord(ctx context.Context, uuid string) error {
	var id bytes.Buffer
	_ = xml.EscapeText(&id, []byte(uuid))
	body := fmt.Sprintf(deleteTemplate, id.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/xml")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("csw delete %s: status %d", uuid, resp.StatusCode)
	}
	var tr transactionResponse
	if err := xml.Unmarshal(payload, &tr); err != nil {
		return fmt.Errorf("csw delete %s: %w", uuid, err)
	}
	return nil
}
