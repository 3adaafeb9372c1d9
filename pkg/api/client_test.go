package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/statbank/internal/testutil"
	"github.com/leapstack-labs/statbank/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, opts ...Option) (*Client, *testutil.Portal) {
	t.Helper()
	portal := testutil.NewPortal(t)
	opts = append([]Option{
		WithBaseURL(portal.BaseURL()),
		WithLogger(testutil.NewTestLogger(t)),
	}, opts...)
	return NewClient(opts...), portal
}

func TestClient_Subjects(t *testing.T) {
	client, portal := newTestClient(t)

	subjects, err := client.Subjects(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, subjects)
	assert.Equal(t, "People", subjects[0].Description)

	calls := portal.CallsTo(EndpointSubjects)
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"recursive": true, "includeTables": true, "format": "JSON"}, calls[0].Body)
	assert.NotEmpty(t, calls[0].ID, "every call carries a request id")
	assert.Empty(t, calls[0].Lang)
}

func TestClient_Catalog(t *testing.T) {
	client, _ := newTestClient(t, WithLanguage("en"))

	cat, err := client.Catalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, cat.Categories, 6)
	assert.Equal(t, []string{"FOLK1A", "FOLK3", "AKU100"}, cat.TableIDs())
	assert.Len(t, cat.Variables, 9)
}

func TestClient_TableInfo(t *testing.T) {
	client, portal := newTestClient(t, WithLanguage("en"))

	info, err := client.TableInfo(context.Background(), "FOLK1A")
	require.NoError(t, err)
	assert.Equal(t, "FOLK1A", info.ID)
	require.Len(t, info.Variables, 4)
	assert.Equal(t, "1", info.Variables[1].Values[1].ID)

	calls := portal.CallsTo(EndpointTableInfo)
	require.Len(t, calls, 1)
	assert.Equal(t, "en", calls[0].Lang)
	assert.Equal(t, map[string]any{"table": "FOLK1A", "format": "JSON"}, calls[0].Body)

	_, err = client.TableInfo(context.Background(), "")
	require.Error(t, err)
}

func TestClient_RemoteFailure(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.TableInfo(context.Background(), "NOPE")
	require.Error(t, err)

	var remote *RemoteRequestFailedError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, EndpointTableInfo, remote.Endpoint)
	assert.Equal(t, http.StatusBadRequest, remote.StatusCode)
	assert.Contains(t, remote.Body, "TABLE_NOT_FOUND")
	assert.Contains(t, err.Error(), "status 400")
	assert.True(t, IsRemoteFailure(err))
	assert.False(t, IsRemoteFailure(errors.New("other")))
}

func TestClient_RemoteFailureBody(t *testing.T) {
	tests := []struct {
		name          string
		size          int
		wantTruncated bool
	}{
		{name: "short body kept whole", size: 100},
		{name: "body at the limit kept whole", size: maxErrorBody},
		{name: "long body cut and flagged", size: maxErrorBody + 500, wantTruncated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := strings.Repeat("x", tt.size)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(body))
			}))
			t.Cleanup(srv.Close)

			client := NewClient(WithBaseURL(srv.URL), WithLogger(testutil.NewTestLogger(t)))
			_, err := client.TableInfo(context.Background(), "FOLK1A")

			var remote *RemoteRequestFailedError
			require.True(t, errors.As(err, &remote))
			assert.Equal(t, tt.wantTruncated, remote.Truncated)
			assert.Equal(t, body[:min(tt.size, maxErrorBody)], remote.Body)
			assert.Equal(t, tt.wantTruncated, strings.HasSuffix(err.Error(), "(truncated)"))
		})
	}
}

func TestClient_NewBuilderAndData(t *testing.T) {
	client, portal := newTestClient(t)
	ctx := context.Background()

	b, err := client.NewBuilder(ctx, "FOLK1A")
	require.NoError(t, err)
	require.NoError(t, b.Set("OMRÅDE", query.Many("000", "101")))
	require.NoError(t, b.Set("Tid", query.All()))

	req, err := b.BuildRequest(ctx)
	require.NoError(t, err)

	f, err := client.Data(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"OMRÅDE", "KØN", "TID", "INDHOLD"}, f.Columns)
	assert.Equal(t, 4, f.Len())

	calls := portal.CallsTo(EndpointData)
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{
		"table":  "FOLK1A",
		"format": "CSV",
		"variables": []any{
			map[string]any{"code": "OMRÅDE", "values": []any{"000", "101"}},
			map[string]any{"code": "Tid", "values": []any{"2024K1", "2024K2"}},
		},
	}, calls[0].Body)
}

func TestClient_DataTo(t *testing.T) {
	client, _ := newTestClient(t)

	req := &query.Request{Table: "FOLK1A", Format: query.FormatXLSX, Variables: []query.Fragment{}}

	_, err := client.Data(context.Background(), req)
	require.Error(t, err, "non-tabular formats cannot be parsed")

	var buf bytes.Buffer
	n, err := client.DataTo(context.Background(), req, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Contains(t, buf.String(), "Copenhagen")

	_, err = client.DataTo(context.Background(), nil, &buf)
	require.Error(t, err)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := client.TableInfo(context.Background(), "FOLK1A")
	require.Error(t, err)
	assert.False(t, IsRemoteFailure(err), "transport errors are not remote failures")
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		lang string
		want string
	}{
		{name: "default", base: DefaultBaseURL, want: "https://api.statbank.dk/v1/data"},
		{name: "trailing slash", base: "http://localhost:8080/v1/", want: "http://localhost:8080/v1/data"},
		{name: "language", base: DefaultBaseURL, lang: "en", want: "https://api.statbank.dk/v1/data?lang=en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(WithBaseURL(tt.base), WithLanguage(tt.lang))
			got, err := c.endpointURL(EndpointData)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
