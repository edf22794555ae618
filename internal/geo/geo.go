// Package geo provides distance and bounding-box primitives for
// station queries.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// kmPerDegree is the approximate surface distance of one degree of
// latitude (and of longitude at the equator).
const kmPerDegree = 111.0

// maxBBoxLat bounds the latitude used in the longitude-delta cosine so
// the delta stays finite near the poles. The radius-to-box conversion is
// a planar approximation and makes no geodesic claim beyond that.
const maxBBoxLat = 85.0

// Validation errors.
var (
	ErrInvalidLatitude    = errors.New("latitude out of range [-90, 90]")
	ErrInvalidLongitude   = errors.New("longitude out of range [-180, 180]")
	ErrInvalidBoundingBox = errors.New("bounding box requires north > south and east > west")
)

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the point lies within valid coordinate ranges.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 || math.IsNaN(p.Lat) {
		return fmt.Errorf("%w: %v", ErrInvalidLatitude, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 || math.IsNaN(p.Lng) {
		return fmt.Errorf("%w: %v", ErrInvalidLongitude, p.Lng)
	}
	return nil
}

// BoundingBox is a rectangular lat/lng window in degrees.
// Boxes crossing the antimeridian (east < west across ±180°) are not
// supported and fail validation.
type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Validate checks coordinate ranges and edge ordering.
func (b BoundingBox) Validate() error {
	if err := (Point{Lat: b.North, Lng: b.East}).Validate(); err != nil {
		return err
	}
	if err := (Point{Lat: b.South, Lng: b.West}).Validate(); err != nil {
		return err
	}
	if b.North <= b.South || b.East <= b.West {
		return ErrInvalidBoundingBox
	}
	return nil
}

// Center returns the centroid of the box.
func (b BoundingBox) Center() Point {
	return Point{
		Lat: (b.North + b.South) / 2,
		Lng: (b.East + b.West) / 2,
	}
}

// Contains reports whether the point lies inside the box (inclusive).
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.South && p.Lat <= b.North &&
		p.Lng >= b.West && p.Lng <= b.East
}

// CoveringRadiusKm returns the approximate radius of a circle covering
// the box, measured from its centroid to a corner.
func (b BoundingBox) CoveringRadiusKm() float64 {
	return HaversineKm(b.Center(), Point{Lat: b.North, Lng: b.East})
}

// HaversineKm returns the great-circle distance between two points in
// kilometers. It is symmetric and zero for identical points.
func HaversineKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// BoundingBoxFromRadius returns a rectangular superset of the circle of
// radiusKm around center, using the flat-Earth degree approximation
// (1° ≈ 111 km). Callers doing circular queries must post-filter with
// HaversineKm; the box deliberately over-covers.
func BoundingBoxFromRadius(center Point, radiusKm float64) BoundingBox {
	latDelta := radiusKm / kmPerDegree

	clampedLat := center.Lat
	if clampedLat > maxBBoxLat {
		clampedLat = maxBBoxLat
	} else if clampedLat < -maxBBoxLat {
		clampedLat = -maxBBoxLat
	}
	lngDelta := radiusKm / (kmPerDegree * math.Cos(clampedLat*math.Pi/180))

	return BoundingBox{
		North: center.Lat + latDelta,
		South: center.Lat - latDelta,
		East:  center.Lng + lngDelta,
		West:  center.Lng - lngDelta,
	}
}
