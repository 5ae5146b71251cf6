// Package geo computes distances from tank locations to a site boundary
// polygon. Distances are reported in feet.
package geo

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

const (
	earthRadiusMeters = 6371008.8
	metersToFeet      = 3.28084
)

// BoundaryResult describes a point's relation to the boundary polygon.
type BoundaryResult struct {
	DistanceFeet float64
	Inside       bool
	ClosestPoint types.Coordinates
}

// LoadPolygon reads a boundary polygon from the line-based text format:
// one "lon,lat" pair per line, comments and blank lines ignored.
func LoadPolygon(path string) ([]types.Coordinates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open polygon file: %w", err)
	}
	defer f.Close()

	var vertices []types.Coordinates
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("polygon line %d: expected \"lon,lat\", got %q", lineNo, line)
		}
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errLon != nil || errLat != nil {
			return nil, fmt.Errorf("polygon line %d: invalid coordinate %q", lineNo, line)
		}
		vertices = append(vertices, types.Coordinates{Latitude: lat, Longitude: lon})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read polygon file: %w", err)
	}
	if len(vertices) < 3 {
		return nil, fmt.Errorf("polygon needs at least 3 vertices, got %d", len(vertices))
	}
	return vertices, nil
}

// DistanceToBoundary computes the minimum distance from a point to the
// polygon's boundary, whether the point lies inside, and the closest boundary
// point. Coordinates are projected onto a local tangent plane centered on the
// polygon, which is accurate at the site scales this pipeline deals with.
func DistanceToBoundary(point types.Coordinates, polygon []types.Coordinates) (BoundaryResult, error) {
	if len(polygon) < 3 {
		return BoundaryResult{}, fmt.Errorf("polygon needs at least 3 vertices, got %d", len(polygon))
	}

	origin := centroid(polygon)
	px, py := project(point, origin)

	minDist := math.MaxFloat64
	var closestX, closestY float64

	n := len(polygon)
	for i := 0; i < n; i++ {
		a := polygon[i]
		b := polygon[(i+1)%n]
		ax, ay := project(a, origin)
		bx, by := project(b, origin)

		cx, cy := closestOnSegment(px, py, ax, ay, bx, by)
		d := math.Hypot(px-cx, py-cy)
		if d < minDist {
			minDist, closestX, closestY = d, cx, cy
		}
	}

	return BoundaryResult{
		DistanceFeet: minDist * metersToFeet,
		Inside:       pointInPolygon(point, polygon),
		ClosestPoint: unproject(closestX, closestY, origin),
	}, nil
}

func centroid(polygon []types.Coordinates) types.Coordinates {
	var lat, lon float64
	for _, v := range polygon {
		lat += v.Latitude
		lon += v.Longitude
	}
	n := float64(len(polygon))
	return types.Coordinates{Latitude: lat / n, Longitude: lon / n}
}

// project maps a WGS84 coordinate to local planar meters around origin.
func project(c, origin types.Coordinates) (x, y float64) {
	latRad := origin.Latitude * math.Pi / 180
	x = (c.Longitude - origin.Longitude) * math.Pi / 180 * earthRadiusMeters * math.Cos(latRad)
	y = (c.Latitude - origin.Latitude) * math.Pi / 180 * earthRadiusMeters
	return x, y
}

func unproject(x, y float64, origin types.Coordinates) types.Coordinates {
	latRad := origin.Latitude * math.Pi / 180
	return types.Coordinates{
		Latitude:  origin.Latitude + y/earthRadiusMeters*180/math.Pi,
		Longitude: origin.Longitude + x/(earthRadiusMeters*math.Cos(latRad))*180/math.Pi,
	}
}

func closestOnSegment(px, py, ax, ay, bx, by float64) (float64, float64) {
	dx, dy := bx-ax, by-ay
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return ax, ay
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lengthSq
	t = math.Max(0, math.Min(1, t))
	return ax + t*dx, ay + t*dy
}

// pointInPolygon is a standard ray cast over lon/lat space.
func pointInPolygon(p types.Coordinates, polygon []types.Coordinates) bool {
	inside := false
	n := len(polygon)
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := polygon[i], polygon[j]
		if (a.Latitude > p.Latitude) != (b.Latitude > p.Latitude) {
			crossLon := (b.Longitude-a.Longitude)*(p.Latitude-a.Latitude)/(b.Latitude-a.Latitude) + a.Longitude
			if p.Longitude < crossLon {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
