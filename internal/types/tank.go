// Package types defines the shared data structures passed between pipeline stages.
package types

// VolumeSource records how a tank's authoritative volume was determined.
type VolumeSource string

const (
	// VolumeProvided means a capacity value with a recognizable unit was parsed directly.
	VolumeProvided VolumeSource = "provided"
	// VolumeFromDimensions means the volume was computed from parsed tank dimensions.
	VolumeFromDimensions VolumeSource = "computed_from_dimensions"
	// VolumeFromCapacityString means a bare numeric capacity was accepted as gallons.
	VolumeFromCapacityString VolumeSource = "computed_from_capacity_string"
	// VolumeUnresolved means neither capacity nor dimensions could be interpreted.
	VolumeUnresolved VolumeSource = "unresolved"
)

// TankShape identifies the geometric model used for volume computation.
type TankShape string

const (
	ShapeRectangular TankShape = "rectangular"
	ShapeCylinder    TankShape = "cylinder"
	ShapeOval        TankShape = "oval"
)

// Dimensions holds parsed tank measurements. For rectangular and oval tanks
// Length, Width and Height are set; for cylinders Diameter and Length are set.
type Dimensions struct {
	Shape    TankShape `json:"shape"`
	Length   float64   `json:"length,omitempty"`
	Width    float64   `json:"width,omitempty"`
	Height   float64   `json:"height,omitempty"`
	Diameter float64   `json:"diameter,omitempty"`
	Unit     string    `json:"unit"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ASDResult holds the acceptable-separation-distance values read from the HUD
// calculator, plus the screenshot captured as audit evidence. Field names
// mirror the calculator's result fields: People/Buildings, Protected/Unprotected,
// and the non-pressurized diked variants.
type ASDResult struct {
	ASDPPUFeet  *float64 `json:"asdppu_feet,omitempty"`
	ASDBPUFeet  *float64 `json:"asdbpu_feet,omitempty"`
	ASDPNPDFeet *float64 `json:"asdpnpd_feet,omitempty"`
	ASDBNPDFeet *float64 `json:"asdbnpd_feet,omitempty"`

	ScreenshotPath string `json:"screenshot_path"`
}

// RequiredFeet returns the governing separation distance for a tank.
// Diked tanks are governed by the diked result fields when the calculator
// produced them; otherwise the maximum of all available values applies.
func (r *ASDResult) RequiredFeet(hasDike bool) *float64 {
	if r == nil {
		return nil
	}
	preferred := []*float64{r.ASDPPUFeet, r.ASDBPUFeet}
	if hasDike {
		preferred = []*float64{r.ASDPNPDFeet, r.ASDBNPDFeet}
	}
	if v := maxOf(preferred); v != nil {
		return v
	}
	return maxOf([]*float64{r.ASDPPUFeet, r.ASDBPUFeet, r.ASDPNPDFeet, r.ASDBNPDFeet})
}

func maxOf(values []*float64) *float64 {
	var max *float64
	for _, v := range values {
		if v == nil {
			continue
		}
		if max == nil || *v > *max {
			value := *v
			max = &value
		}
	}
	return max
}

// Verdict is the per-tank compliance outcome.
type Verdict string

const (
	VerdictCompliant     Verdict = "Compliant"
	VerdictNonCompliant  Verdict = "NonCompliant"
	VerdictIndeterminate Verdict = "Indeterminate"
)

// Tank is one physical storage vessel. It is created by the record normalizer
// from one source row and enriched in place by later steps; tanks are never
// added or removed after normalization completes.
type Tank struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	RawCapacity     string `json:"raw_capacity,omitempty"`
	RawMeasurements string `json:"raw_measurements,omitempty"`

	VolumeGallons *float64     `json:"volume_gallons,omitempty"`
	VolumeSource  VolumeSource `json:"volume_source"`
	Dimensions    *Dimensions  `json:"dimensions,omitempty"`

	ProductType string `json:"product_type,omitempty"`
	Pressurized bool   `json:"pressurized"`
	HasDike     bool   `json:"has_dike"`

	DikeLengthFeet *float64 `json:"dike_length_feet,omitempty"`
	DikeWidthFeet  *float64 `json:"dike_width_feet,omitempty"`

	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Notes       string       `json:"notes,omitempty"`

	// Enrichment from the external-calculator step.
	ASD        *ASDResult `json:"asd,omitempty"`
	QueryError string     `json:"query_error,omitempty"`

	// Enrichment from the boundary-distance step.
	ActualDistanceFeet *float64     `json:"actual_distance_feet,omitempty"`
	InsideBoundary     bool         `json:"inside_boundary,omitempty"`
	ClosestPoint       *Coordinates `json:"closest_point,omitempty"`

	// Enrichment from the compliance step.
	Verdict    Verdict  `json:"verdict,omitempty"`
	MarginFeet *float64 `json:"margin_feet,omitempty"`
}

// Resolved reports whether the tank carries an authoritative volume.
func (t *Tank) Resolved() bool {
	return t.VolumeGallons != nil && t.VolumeSource != VolumeUnresolved
}

// RequiredDistanceFeet returns the governing ASD value for this tank, or nil
// when the calculator has not produced results for it.
func (t *Tank) RequiredDistanceFeet() *float64 {
	return t.ASD.RequiredFeet(t.HasDike)
}

// Float64Ptr returns a pointer to v. Convenience for optional numeric fields.
func Float64Ptr(v float64) *float64 { return &v }
