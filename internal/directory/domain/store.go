package domain

import (
	"strings"
	"time"
)

// PointType is the only GeoJSON geometry stores are indexed with.
const PointType = "Point"

// Store is a listing in the directory.
type Store struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Tags        []string
	CreatedAt   time.Time
	Location    Location
	Photo       string
	AuthorID    string
}

// Location is a GeoJSON point plus the human readable address it was geocoded from.
// Coordinates are stored as [lng, lat].
type Location struct {
	Type        string
	Coordinates [2]float64
	Address     string
}

// Lng returns the longitude component.
func (l Location) Lng() float64 { return l.Coordinates[0] }

// Lat returns the latitude component.
func (l Location) Lat() float64 { return l.Coordinates[1] }

// NewLocation validates that the coordinates and the address are supplied together.
func NewLocation(lng, lat *float64, address string) (Location, error) {
	var msgs []string
	if lng == nil || lat == nil {
		msgs = append(msgs, "You must supply coordinates!")
	} else {
		if *lng < -180 || *lng > 180 {
			msgs = append(msgs, "Longitude must be between -180 and 180.")
		}
		if *lat < -90 || *lat > 90 {
			msgs = append(msgs, "Latitude must be between -90 and 90.")
		}
	}
	address = strings.TrimSpace(address)
	if address == "" {
		msgs = append(msgs, "You must supply an address!")
	}
	if len(msgs) > 0 {
		return Location{}, NewValidationError(msgs...)
	}
	return Location{Type: PointType, Coordinates: [2]float64{*lng, *lat}, Address: address}, nil
}

// OwnedBy reports whether userID authored the store.
func (s Store) OwnedBy(userID string) bool {
	return userID != "" && s.AuthorID == userID
}

// NormalizeTags trims, drops empties and removes duplicates while keeping the submitted order.
func NormalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}

// TagCount is one row of the tag aggregation.
type TagCount struct {
	Tag   string
	Count int
}

// RankedStore is a store decorated with its review statistics.
type RankedStore struct {
	Store
	AverageRating float64
	ReviewCount   int
}
