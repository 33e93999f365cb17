package model

// Mosaic class modes.
const (
	MosaicModePolygon = "polygon"
	MosaicModeLine    = "line"
)

// Line trace behaviors.
const (
	LineBehaviorCentroid = "centroid_path" // polyline through visited hex centroids
	LineBehaviorEdge     = "edge_path"     // union of shared edges between visited hexes
)

// TagMatcher matches one source-feature tag against accepted values. An
// empty Values list accepts any value for the key.
type TagMatcher struct {
	Key    string   `json:"key"`
	Values []string `json:"values,omitempty"`
}

// MosaicClass defines how source vector data is reduced onto the hex
// lattice for one gameplay category ("forest", "road_primary", ...).
type MosaicClass struct {
	ClassID      string       `json:"class_id"`
	TargetLayer  string       `json:"target_layer"`
	Mode         string       `json:"mode"` // polygon or line
	Priority     int          `json:"priority"`
	Matchers     []TagMatcher `json:"matchers,omitempty"`
	LineBehavior string       `json:"line_behavior,omitempty"`
}

// Matches reports whether a tag set satisfies any matcher of the class.
func (c MosaicClass) Matches(tags map[string]string) bool {
	for _, m := range c.Matchers {
		value, ok := tags[m.Key]
		if !ok {
			continue
		}
		if len(m.Values) == 0 {
			return true
		}
		for _, accepted := range m.Values {
			if value == accepted {
				return true
			}
		}
	}
	return false
}

// Defaults applied when class state does not specify extra parameters.
const (
	DefaultAreaThreshold = 0.0
	DefaultLineBufferM   = 30.0
	DefaultLineStepM     = 200.0
)

// MosaicClassState is the mutable runtime state for one class: which source
// layers feed it and the tracing distances. It is an explicit value passed
// into the classifier, not ambient UI state.
type MosaicClassState struct {
	PolygonSources []string
	LineSources    []string
	AreaThreshold  float64
	LineBufferM    float64
	LineStepM      float64
}

// NewMosaicClassState returns state primed with the package defaults.
func NewMosaicClassState() MosaicClassState {
	return MosaicClassState{
		AreaThreshold: DefaultAreaThreshold,
		LineBufferM:   DefaultLineBufferM,
		LineStepM:     DefaultLineStepM,
	}
}
