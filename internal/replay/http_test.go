package replay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sfbtools/internal/message"
	"github.com/roach88/sfbtools/internal/testutil"
)

type capture struct {
	mu           sync.Mutex
	bodies       []string
	contentTypes []string
	status       int
}

func (c *capture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.bodies = append(c.bodies, string(body))
	c.contentTypes = append(c.contentTypes, r.Header.Get("Content-Type"))
	status := c.status
	c.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func TestHTTPSender_Send(t *testing.T) {
	rcv := &capture{}
	srv := httptest.NewServer(rcv)
	defer srv.Close()

	s := NewHTTPSender(SDNConfig{Receiver: srv.URL, Version: SDNVersion211})
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Send(context.Background(), []byte("<LyncDiagnostics/>")))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, []string{"<LyncDiagnostics/>"}, rcv.bodies)
	assert.Equal(t, []string{"application/xml"}, rcv.contentTypes)
}

func TestHTTPSender_Probe(t *testing.T) {
	rcv := &capture{}
	srv := httptest.NewServer(rcv)
	defer srv.Close()

	s := NewHTTPSender(SDNConfig{Receiver: srv.URL, Probe: true})
	require.NoError(t, s.Open(context.Background()))
	assert.Equal(t, []string{""}, rcv.bodies)

	rcv.status = http.StatusServiceUnavailable
	s2 := NewHTTPSender(SDNConfig{Receiver: srv.URL, Probe: true})
	assert.Error(t, s2.Open(context.Background()))
}

func TestHTTPSender_Non2xx(t *testing.T) {
	srv := httptest.NewServer(&capture{status: http.StatusInternalServerError})
	defer srv.Close()

	s := NewHTTPSender(SDNConfig{Receiver: srv.URL})
	require.NoError(t, s.Open(context.Background()))
	err := s.Send(context.Background(), []byte("<x/>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestHTTPSender_NotOpen(t *testing.T) {
	s := NewHTTPSender(SDNConfig{Receiver: "http://127.0.0.1:1"})
	assert.Error(t, s.Send(context.Background(), nil))
}

func TestHTTPSender_ReplayEndToEnd(t *testing.T) {
	rcv := &capture{}
	srv := httptest.NewServer(rcv)
	defer srv.Close()

	sc := loadMessages(t, "<RealTime>true</RealTime>",
		testutil.SDN("ABC", "", "2015-08-04T09:11:10Z"),
		testutil.SDN("DEF", "", "2015-08-04T09:11:12Z"),
	)
	senders, err := BuildSenders(map[string]any{"receiver": srv.URL}, nil)
	require.NoError(t, err)

	opts := append(SenderOptions(senders), WithClock(testutil.NewFakeClock(epoch)))
	res, err := NewScheduler(sc.Config, opts...).Run(context.Background(), sc.Messages)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)

	require.Len(t, rcv.bodies, 2)
	assert.Contains(t, rcv.bodies[0], "<CallId>ABC</CallId>")
	assert.NotContains(t, rcv.bodies[0], "xmlns")
	assert.IsType(t, &HTTPSender{}, senders[message.KindSDN])
}

func TestHTTPSender_ServerDownAbortsReplay(t *testing.T) {
	srv := httptest.NewServer(&capture{})
	url := srv.URL
	srv.Close()

	sc := loadMessages(t, "", testutil.SDN("ABC", "", "2015-08-04T09:11:10Z"))
	s := NewScheduler(sc.Config,
		WithSender(message.KindSDN, NewHTTPSender(SDNConfig{Receiver: url})),
		WithClock(testutil.NewFakeClock(epoch)),
	)
	_, err := s.Run(context.Background(), sc.Messages)
	assert.True(t, IsTransportError(err))
	assert.Equal(t, Aborted, s.State())
}
