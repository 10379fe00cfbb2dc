// Package access handles user-reported accessibility issues on walking routes.
package access

import (
	"context"
	"strings"
	"time"

	"github.com/paulmach/orb"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
	"github.com/accessmaps/parks-api/internal/geo"
	"github.com/accessmaps/parks-api/internal/logger"
	"github.com/accessmaps/parks-api/internal/metrics"
	"github.com/accessmaps/parks-api/internal/spatial"
	"github.com/accessmaps/parks-api/internal/store"
)

const (
	DefaultIssueType    = "issue"
	DefaultNearRadiusM  = 500.0
	issuesNearCap       = 200
	maxIssueTypeLen     = 64
	maxDescriptionBytes = 4000
)

// Store is the persistence the issue service needs.
type Store interface {
	CreateIssue(ctx context.Context, in store.NewIssue) (store.CreatedIssue, error)
	GetIssue(ctx context.Context, id int64) (store.Issue, error)
	DeleteIssue(ctx context.Context, id int64) error
	IssuesNear(ctx context.Context, rq store.RadiusQuery) ([]store.Issue, error)
}

// Report is an unvalidated issue submission.
type Report struct {
	RouteID     int64
	IssueType   string
	Description string
	Lat         float64
	Lng         float64
}

type Service struct {
	store      Store
	maxRadiusM float64
}

func NewService(s Store, maxRadiusM float64) *Service {
	return &Service{store: s, maxRadiusM: maxRadiusM}
}

// Create validates and stores a report. A route that does not exist, or that
// a reload removed in the meantime, is a validation error.
func (s *Service) Create(ctx context.Context, r Report) (created store.CreatedIssue, err error) {
	defer func(start time.Time) { metrics.ObserveQuery("issue_create", start, err) }(time.Now())

	in, err := r.normalize()
	if err != nil {
		return store.CreatedIssue{}, err
	}
	created, err = s.store.CreateIssue(ctx, in)
	if apperrors.IsNotFound(err) {
		return store.CreatedIssue{}, apperrors.ValidationError("route not found")
	}
	if err != nil {
		return store.CreatedIssue{}, err
	}

	logger.Module("access").Info("issue reported",
		"id", created.ID,
		"route_id", in.RouteID,
		"issue_type", in.IssueType,
	)
	return created, nil
}

func (r Report) normalize() (store.NewIssue, error) {
	if r.RouteID <= 0 {
		return store.NewIssue{}, apperrors.ValidationError("route not found")
	}
	if !geo.ValidLonLat(orb.Point{r.Lng, r.Lat}) {
		return store.NewIssue{}, apperrors.ValidationError("lat must be within [-90, 90] and lng within [-180, 180]")
	}

	issueType := strings.TrimSpace(r.IssueType)
	if issueType == "" {
		issueType = DefaultIssueType
	}
	if len(issueType) > maxIssueTypeLen {
		return store.NewIssue{}, apperrors.ValidationError("issue_type must be at most %d characters", maxIssueTypeLen)
	}
	if len(r.Description) > maxDescriptionBytes {
		return store.NewIssue{}, apperrors.ValidationError("description must be at most %d bytes", maxDescriptionBytes)
	}

	return store.NewIssue{
		RouteID:     r.RouteID,
		IssueType:   issueType,
		Description: r.Description,
		Lat:         r.Lat,
		Lng:         r.Lng,
	}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (store.Issue, error) {
	return s.store.GetIssue(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteIssue(ctx, id); err != nil {
		return err
	}
	logger.Module("access").Info("issue deleted", "id", id)
	return nil
}

// Near lists issues within radiusM of center, newest first.
func (s *Service) Near(ctx context.Context, center orb.Point, radiusM float64) (issues []store.Issue, err error) {
	defer func(start time.Time) { metrics.ObserveQuery("issues_near", start, err) }(time.Now())
	if err := spatial.ValidateRadius(center, radiusM, s.maxRadiusM); err != nil {
		return nil, err
	}
	return s.store.IssuesNear(ctx, store.RadiusQuery{Center: center, RadiusM: radiusM, Limit: issuesNearCap})
}
