// Package source fetches the raw answers document over HTTP or from disk.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"saa-question-importer/internal/domain"
)

const (
	// DefaultBaseURL is the raw-content root of the upstream dump repository.
	DefaultBaseURL = "https://raw.githubusercontent.com/Iamrushabhshahh/AWS-Certified-Solutions-Architect-Associate-SAA-C03-Exam-Dump-With-Solution/main"
	// DefaultAnswersFile is the answers document inside that repository.
	DefaultAnswersFile = "AWS SAA-03 Solution.txt"

	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 32 << 20
)

// ErrTooLarge marks a document over the fetch size limit.
var ErrTooLarge = errors.New("document too large")

// Fetcher is implemented by every source in this package.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// HTTPSource downloads the answers document with a GET request.
type HTTPSource struct {
	baseURL string
	file    string
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithBaseURL sets the repository root (for testing or mirrors).
func WithBaseURL(u string) HTTPOption {
	return func(s *HTTPSource) {
		s.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

// WithTimeout bounds a single fetch. Zero disables the bound.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		s.timeout = d
	}
}

// WithMaxBytes caps the document size. Larger documents fail with ErrTooLarge.
func WithMaxBytes(n int64) HTTPOption {
	return func(s *HTTPSource) {
		s.maxBytes = n
	}
}

func NewHTTPSource(file string, opts ...HTTPOption) *HTTPSource {
	if file == "" {
		file = DefaultAnswersFile
	}
	s := &HTTPSource{
		baseURL: DefaultBaseURL,
		file:    file,
		client:   http.DefaultClient,
		timeout:  defaultTimeout,
		maxBytes: maxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the address that Fetch requests.
func (s *HTTPSource) URL() string {
	return s.baseURL + "/" + url.PathEscape(s.file)
}

func (s *HTTPSource) Fetch(ctx context.Context) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", domain.ErrSourceUnavailable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: send request: %w", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: GET %s: status %d", domain.ErrSourceUnavailable, s.URL(), resp.StatusCode)
	}

	// one byte past the limit tells a full-size document from a truncated one
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", domain.ErrSourceUnavailable, err)
	}
	if int64(len(body)) > s.maxBytes {
		return "", fmt.Errorf("%w: GET %s: %w: over %d bytes", domain.ErrSourceUnavailable, s.URL(), ErrTooLarge, s.maxBytes)
	}
	return string(body), nil
}

// FileSource reads the answers document from a local path.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Fetch(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	return string(data), nil
}

// New picks a source for location: http(s) URLs are fetched whole, anything else is
// treated as a local file path.
func New(location string, opts ...HTTPOption) Fetcher {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		i := strings.LastIndex(location, "/")
		file, err := url.PathUnescape(location[i+1:])
		if err != nil {
			file = location[i+1:]
		}
		return NewHTTPSource(file, append([]HTTPOption{WithBaseURL(location[:i])}, opts...)...)
	}
	return NewFileSource(location)
}
