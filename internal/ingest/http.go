package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
)

// HTTPSource downloads a GeoJSON FeatureCollection. The body is capped at
// MaxBytes; a larger document fails the source.
type HTTPSource struct {
	URL      string
	Client   *http.Client
	MaxBytes int64
}

func (s *HTTPSource) Name() string { return s.URL }

func (s *HTTPSource) Features(ctx context.Context) ([]RawFeature, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, apperrors.ValidationError("invalid source url %q: %v", s.URL, err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, s.networkErr(fmt.Errorf("fetch %s: %w", s.URL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.networkErr(fmt.Errorf("fetch %s: unexpected status %s", s.URL, resp.Status))
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = 256 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, s.networkErr(fmt.Errorf("read %s: %w", s.URL, err))
	}
	if int64(len(data)) > limit {
		return nil, s.networkErr(fmt.Errorf("fetch %s: body exceeds %d bytes", s.URL, limit))
	}

	return ParseFeatureCollection(data)
}

func (s *HTTPSource) networkErr(err error) error {
	return apperrors.New(err).
		Category(apperrors.CategoryNetwork).
		Context("url", s.URL).
		Build()
}
