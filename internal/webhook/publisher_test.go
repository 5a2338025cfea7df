package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corebill/corebill/internal/config"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/httpclient"
	"github.com/corebill/corebill/internal/logger"
	"github.com/corebill/corebill/internal/types"
)

func TestPublisherDisabled(t *testing.T) {
	p := NewPublisher(httpclient.NewDefaultClient(), config.WebhookConfig{Enabled: false}, logger.NewNopLogger())
	assert.Nil(t, p)

	p = NewPublisher(httpclient.NewDefaultClient(), config.WebhookConfig{Enabled: true, URL: ""}, logger.NewNopLogger())
	assert.Nil(t, p)
}

func TestPublisherDeliversEnvelope(t *testing.T) {
	var gotBody []byte
	var gotEventHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotEventHeader = r.Header.Get("X-Webhook-Event")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPublisher(
		httpclient.NewDefaultClient(),
		config.WebhookConfig{Enabled: true, URL: srv.URL},
		logger.NewNopLogger(),
	)
	require.NotNil(t, p)

	ctx := types.SetOrgID(context.Background(), "org_test")
	err := p.Publish(ctx, EventInvoicePaid, map[string]string{"invoice_id": "inv_1"})
	require.NoError(t, err)

	assert.Equal(t, EventInvoicePaid, gotEventHeader)

	var event Event
	require.NoError(t, json.Unmarshal(gotBody, &event))
	assert.Equal(t, EventInvoicePaid, event.EventName)
	assert.Equal(t, "org_test", event.OrgID)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())

	payload, ok := event.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "inv_1", payload["invoice_id"])
}

func TestPublisherRejectedByEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewPublisher(
		httpclient.NewDefaultClient(),
		config.WebhookConfig{Enabled: true, URL: srv.URL},
		logger.NewNopLogger(),
	)

	err := p.Publish(context.Background(), EventInvoiceSent, map[string]string{"invoice_id": "inv_1"})
	require.Error(t, err)
	assert.True(t, ierr.IsExternalService(err))
}
