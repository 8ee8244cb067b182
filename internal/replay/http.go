package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// probeTimeout bounds the empty POST sent by Open when probing.
const probeTimeout = time.Second

// HTTPSender POSTs SDN payloads to a receiver URL.
type HTTPSender struct {
	cfg    SDNConfig
	client *http.Client
}

// NewHTTPSender creates a sender for cfg.
func NewHTTPSender(cfg SDNConfig) *HTTPSender {
	return &HTTPSender{cfg: cfg}
}

func (s *HTTPSender) String() string {
	return s.cfg.String()
}

// Open creates the HTTP client. With probing enabled it POSTs an empty body
// and requires 200 OK.
func (s *HTTPSender) Open(ctx context.Context) error {
	if s.client != nil {
		return nil
	}
	client := &http.Client{Timeout: s.cfg.Timeout()}

	if s.cfg.Probe {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		status, err := post(pctx, client, s.cfg.Receiver, nil)
		if err != nil {
			return fmt.Errorf("probe: %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("probe: receiver answered %d", status)
		}
	}

	s.client = client
	return nil
}

// Send POSTs payload as application/xml. Any non-2xx answer is an error.
func (s *HTTPSender) Send(ctx context.Context, payload []byte) error {
	if s.client == nil {
		return errors.New("sender is not open")
	}
	status, err := post(ctx, s.client, s.cfg.Receiver, payload)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("receiver answered %d %s", status, http.StatusText(status))
	}
	return nil
}

// Close drops idle connections. It is safe to call more than once.
func (s *HTTPSender) Close() error {
	if s.client != nil {
		s.client.CloseIdleConnections()
		s.client = nil
	}
	return nil
}

func post(ctx context.Context, client *http.Client, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
