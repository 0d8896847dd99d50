package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/archivist-go/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *SalesforceClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewSalesforceClient(SalesforceOptions{
		InstanceURL:   srv.URL,
		APIVersion:    "59.0",
		AccessToken:   "token",
		RetryAttempts: 2,
		RetryBackoff:  time.Millisecond,
	}, nil)
}

func TestSalesforceClient_FetchVersionData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/v59.0/sobjects/ContentVersion/068A/VersionData", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.Header().Set("Sforce-Limit-Info", "api-usage=25/100")
		w.Write([]byte("pdf-bytes"))
	})

	body, err := client.FetchObject(context.Background(), &domain.VersionedFile{ID: "068A"})
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))

	usage, err := client.GetUsage(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Used: 25, Total: 100}, usage)
}

func TestSalesforceClient_FetchAttachmentBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/v59.0/sobjects/Attachment/00P1/body", r.URL.Path)
		w.Write([]byte("test"))
	})

	body, err := client.FetchObject(context.Background(), &domain.Attachment{ID: "00P1"})
	require.NoError(t, err)
	defer body.Close()
	data, _ := io.ReadAll(body)
	assert.Equal(t, "test", string(data))
}

func TestSalesforceClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	body, err := client.FetchObject(context.Background(), &domain.Attachment{ID: "00P1"})
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSalesforceClient_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchObject(context.Background(), &domain.Attachment{ID: "00P1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransientFetch)
	assert.ErrorIs(t, err, ErrServerError)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "00P1", fetchErr.ObjectID)
	assert.Equal(t, http.StatusBadGateway, fetchErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSalesforceClient_NotFoundIsNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchObject(context.Background(), &domain.VersionedFile{ID: "068A"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSalesforceClient_GetUsage(t *testing.T) {
	var limitsCalls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/v59.0/limits", r.URL.Path)
		n := atomic.AddInt32(&limitsCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			w.Write([]byte(`{"DailyApiRequests":{"Max":1000,"Remaining":900}}`))
			return
		}
		w.Write([]byte(`{"DailyApiRequests":{"Max":1000,"Remaining":500}}`))
	})

	usage, err := client.GetUsage(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Used: 100, Total: 1000}, usage)
	assert.Equal(t, 10.0, usage.Percent())

	usage, err = client.GetUsage(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(100), usage.Used)
	assert.Equal(t, int32(1), atomic.LoadInt32(&limitsCalls))

	usage, err = client.GetUsage(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, int64(500), usage.Used)
	assert.Equal(t, int32(2), atomic.LoadInt32(&limitsCalls))
}

func TestParseLimitInfo(t *testing.T) {
	u, ok := parseLimitInfo("api-usage=18/5000")
	require.True(t, ok)
	assert.Equal(t, domain.Usage{Used: 18, Total: 5000}, u)

	u, ok = parseLimitInfo("per-app-api-usage=1/10(appName=x), api-usage=7/70")
	require.True(t, ok)
	assert.Equal(t, int64(7), u.Used)

	_, ok = parseLimitInfo("")
	assert.False(t, ok)
	_, ok = parseLimitInfo("api-usage=x/y")
	assert.False(t, ok)
}
