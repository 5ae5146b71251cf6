// Package kmz extracts tank placemarks and boundary polygons from KMZ/KML
// geographic archives.
package kmz

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

// Placemark is a named point feature, typically one tank location.
type Placemark struct {
	Name        string
	Coordinates *types.Coordinates
}

// Site is the parsed content of a geographic archive.
type Site struct {
	Placemarks []Placemark
	// Polygons holds the outer boundary of every polygon found, in document
	// order. The first polygon is treated as the site boundary.
	Polygons [][]types.Coordinates
}

// BoundaryPolygon returns the site boundary, or nil when the archive carried
// no polygon.
func (s *Site) BoundaryPolygon() []types.Coordinates {
	if len(s.Polygons) == 0 {
		return nil
	}
	return s.Polygons[0]
}

// Parse reads a .kmz or .kml file.
func Parse(path string) (*Site, error) {
	var content []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".kmz":
		content, err = readKMZ(path)
	case ".kml":
		content, err = os.ReadFile(path)
	default:
		return nil, fmt.Errorf("unsupported geographic archive %q", path)
	}
	if err != nil {
		return nil, err
	}

	return parseKML(content)
}

// readKMZ unzips the archive and returns the first KML document inside.
func readKMZ(path string) ([]byte, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open kmz %s: %w", path, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if !strings.HasSuffix(strings.ToLower(file.Name), ".kml") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s inside kmz: %w", file.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s inside kmz: %w", file.Name, err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("no kml document found inside %s", path)
}

// KML containers (Document, Folder) nest arbitrarily; the node type recurses.
type kmlRoot struct {
	Node kmlNode `xml:"Document"`
	// Placemarks directly under <kml> (rare but valid).
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlNode struct {
	Placemarks []kmlPlacemark `xml:"Placemark"`
	Folders    []kmlNode      `xml:"Folder"`
	Documents  []kmlNode      `xml:"Document"`
}

type kmlPlacemark struct {
	Name    string      `xml:"name"`
	Point   *kmlPoint   `xml:"Point"`
	Polygon *kmlPolygon `xml:"Polygon"`
	Multi   *kmlMulti   `xml:"MultiGeometry"`
}

type kmlMulti struct {
	Points   []kmlPoint   `xml:"Point"`
	Polygons []kmlPolygon `xml:"Polygon"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	Outer struct {
		Ring struct {
			Coordinates string `xml:"coordinates"`
		} `xml:"LinearRing"`
	} `xml:"outerBoundaryIs"`
}

func parseKML(content []byte) (*Site, error) {
	var root kmlRoot
	if err := xml.Unmarshal(content, &root); err != nil {
		return nil, fmt.Errorf("failed to parse kml: %w", err)
	}

	site := &Site{}
	collect(site, root.Placemarks)
	walk(site, root.Node)

	if len(site.Placemarks) == 0 && len(site.Polygons) == 0 {
		return nil, fmt.Errorf("kml document contains no placemarks or polygons")
	}
	return site, nil
}

func walk(site *Site, node kmlNode) {
	collect(site, node.Placemarks)
	for _, f := range node.Folders {
		walk(site, f)
	}
	for _, d := range node.Documents {
		walk(site, d)
	}
}

func collect(site *Site, placemarks []kmlPlacemark) {
	for _, pm := range placemarks {
		name := strings.TrimSpace(pm.Name)

		points := []kmlPoint{}
		polygons := []kmlPolygon{}
		if pm.Point != nil {
			points = append(points, *pm.Point)
		}
		if pm.Polygon != nil {
			polygons = append(polygons, *pm.Polygon)
		}
		if pm.Multi != nil {
			points = append(points, pm.Multi.Points...)
			polygons = append(polygons, pm.Multi.Polygons...)
		}

		if len(points) == 0 {
			// Polygon-only placemarks still appear as named features so the
			// template keeps one row per surveyed feature.
			site.Placemarks = append(site.Placemarks, Placemark{Name: name})
		}
		for _, pt := range points {
			coords := parseCoordinateList(pt.Coordinates)
			placemark := Placemark{Name: name}
			if len(coords) > 0 {
				placemark.Coordinates = &coords[0]
			}
			site.Placemarks = append(site.Placemarks, placemark)
		}
		for _, poly := range polygons {
			ring := parseCoordinateList(poly.Outer.Ring.Coordinates)
			if len(ring) >= 3 {
				site.Polygons = append(site.Polygons, ring)
			}
		}
	}
}

// parseCoordinateList parses the KML coordinate format:
// "lon,lat[,alt] lon,lat[,alt] ...".
func parseCoordinateList(text string) []types.Coordinates {
	var coords []types.Coordinates
	for _, token := range strings.Fields(text) {
		parts := strings.Split(token, ",")
		if len(parts) < 2 {
			continue
		}
		lon, errLon := strconv.ParseFloat(parts[0], 64)
		lat, errLat := strconv.ParseFloat(parts[1], 64)
		if errLon != nil || errLat != nil {
			continue
		}
		coords = append(coords, types.Coordinates{Latitude: lat, Longitude: lon})
	}
	return coords
}

// WritePolygon writes a boundary polygon in the line-based text format the
// distance step consumes: one "lon,lat" per line.
func WritePolygon(path string, polygon []types.Coordinates) error {
	var sb strings.Builder
	for _, v := range polygon {
		fmt.Fprintf(&sb, "%.8f,%.8f\n", v.Longitude, v.Latitude)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write polygon file %s: %w", path, err)
	}
	return nil
}
