package store

import "time"

// Park is a polygonal green space. Geom is written and read through raw PostGIS SQL only.
type Park struct {
	ID       int64    `gorm:"primaryKey" json:"id"`
	Name     string   `gorm:"not null" json:"name"`
	Category *string  `json:"category"`
	AreaHa   *float64 `gorm:"column:area_ha" json:"area_ha"`
	Geom     string   `gorm:"type:geometry(MultiPolygon,4326);not null" json:"-"`
}

func (Park) TableName() string { return "parks" }

type Playground struct {
	ID     int64  `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"not null" json:"name"`
	Source string `gorm:"not null" json:"source"`
	Geom   string `gorm:"type:geometry(Point,4326);not null" json:"-"`
}

func (Playground) TableName() string { return "playgrounds" }

// WalkingRoute is a footway segment. IsAccessible is NULL when neither surface
// nor smoothness is known.
type WalkingRoute struct {
	ID           int64   `gorm:"primaryKey" json:"id"`
	Name         string  `gorm:"not null" json:"name"`
	Source       string  `gorm:"not null" json:"source"`
	Surface      *string `json:"surface"`
	Smoothness   *string `json:"smoothness"`
	IsAccessible *bool   `json:"is_accessible"`
	Geom         string  `gorm:"type:geometry(LineString,4326);not null" json:"-"`
}

func (WalkingRoute) TableName() string { return "walking_routes" }

// AccessIssue is a user report pinned to a route. The route_id foreign key
// cascades on delete; it is added by Migrate.
type AccessIssue struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	RouteID     int64     `gorm:"not null;index" json:"route_id"`
	IssueType   string    `gorm:"not null;default:issue" json:"issue_type"`
	Description string    `gorm:"not null;default:''" json:"description"`
	Lat         float64   `gorm:"not null" json:"lat"`
	Lng         float64   `gorm:"not null" json:"lng"`
	CreatedAt   time.Time `gorm:"not null;default:now();index" json:"created_at"`
	Geom        string    `gorm:"type:geometry(Point,4326);not null" json:"-"`
}

func (AccessIssue) TableName() string { return "access_issues" }
