package holiday

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	"metargb/transfusion-service/internal/eligibility"
)

// maxPayloadBytes bounds a single holiday feed.
const maxPayloadBytes = 1 << 20

// HTTPSource fetches a JSON holiday feed over HTTP.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a source for url with a per-request timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{url: url, client: newHTTPClient(timeout)}
}

// NewHTTPSources creates one source per URL. The sources share a client so
// feeds on the same host reuse connections.
func NewHTTPSources(urls []string, timeout time.Duration) []Source {
	client := newHTTPClient(timeout)
	sources := make([]Source, 0, len(urls))
	for _, u := range urls {
		sources = append(sources, &HTTPSource{url: u, client: client})
	}
	return sources
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Name returns the feed file name, e.g. "1404.json".
func (s *HTTPSource) Name() string {
	return path.Base(s.url)
}

func (s *HTTPSource) FetchAll(ctx context.Context) ([]eligibility.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch %s: HTTP status %d", s.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.url, err)
	}
	if len(body) > maxPayloadBytes {
		return nil, fmt.Errorf("fetch %s: payload too large (over %d bytes)", s.url, maxPayloadBytes)
	}

	return eligibility.DecodeRecords(body)
}

// FileSource reads a holiday feed from a local JSON file.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return path.Base(s.path)
}

func (s *FileSource) FetchAll(ctx context.Context) ([]eligibility.Record, error) {
	body, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return eligibility.DecodeRecords(body)
}
