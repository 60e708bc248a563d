package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func TestFetch(t *testing.T) {
	xml := loadFixture(t, "testdata/sample.xml")
	sportsXML := loadFixture(t, "testdata/sports.xml")

	tests := []struct {
		name      string
		transport *mockTransport
		wantTitle string
		wantItems int
		wantErr   bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: xml, statusCode: 200},
			wantTitle: "Daily Current",
			wantItems: 5,
		},
		{
			name:      "sports feed",
			transport: &mockTransport{body: sportsXML, statusCode: 200},
			wantTitle: "Daily Current Sport",
			wantItems: 2,
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			wantErr:   true,
		},
		{
			name:      "invalid xml",
			transport: &mockTransport{body: "not xml at all", statusCode: 200},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.transport)
			feed, err := f.Fetch(context.Background(), "https://news.example.com/rss")

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tt.wantTitle, feed.Title); diff != "" {
				t.Errorf("title mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantItems, len(feed.Items)); diff != "" {
				t.Errorf("item count mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchSetsUserAgent(t *testing.T) {
	var gotUA string
	xml := loadFixture(t, "testdata/sample.xml")
	client := captureClient{body: xml, ua: &gotUA}

	f := New(client)
	if _, err := f.Fetch(context.Background(), "https://news.example.com/rss"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff("newswatch/1.0", gotUA); diff != "" {
		t.Errorf("user agent mismatch (-want +got):\n%s", diff)
	}
}

type captureClient struct {
	body string
	ua   *string
}

func (c captureClient) Do(req *http.Request) (*http.Response, error) {
	*c.ua = req.Header.Get("User-Agent")
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBufferString(c.body)),
	}, nil
}
