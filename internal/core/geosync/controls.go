package geosync

const (
	toggleLabel = "Search as I move the map"
	redoLabel   = "Redo search here"
	clearLabel  = "Clear the map refinement"
)

// ToggleControl is the "search as I move the map" checkbox.
type ToggleControl struct {
	Visible bool   `json:"visible"`
	Checked bool   `json:"checked"`
	Label   string `json:"label"`
}

// RedoControl is the manual "redo search here" button.
type RedoControl struct {
	Visible  bool   `json:"visible"`
	Disabled bool   `json:"disabled"`
	Label    string `json:"label"`
}

// ClearControl removes the map refinement.
type ClearControl struct {
	Visible bool   `json:"visible"`
	Label   string `json:"label"`
}

// Controls is the render model of the three map controls. The controls hold
// no state of their own; clicks go to Controller.ToggleRefineOnMapMove,
// Controller.RefineWithViewport and Controller.Clear.
type Controls struct {
	Toggle ToggleControl `json:"toggle"`
	Redo   RedoControl   `json:"redo"`
	Clear  ClearControl  `json:"clear"`
}

// ControlsFor derives the controls from a state snapshot.
func ControlsFor(s RefinementState) Controls {
	redoNeeded := s.HasMovedSinceLastRefine && !s.IsRefineOnMapMove
	return Controls{
		Toggle: ToggleControl{
			Visible: !redoNeeded,
			Checked: s.IsRefineOnMapMove,
			Label:   toggleLabel,
		},
		Redo: RedoControl{
			Visible:  redoNeeded,
			Disabled: !s.HasMovedSinceLastRefine,
			Label:    redoLabel,
		},
		Clear: ClearControl{
			Visible: s.IsRefinedWithMap,
			Label:   clearLabel,
		},
	}
}

// RefinementItem describes the active map refinement for a
// current-refinements list.
type RefinementItem struct {
	Attribute string `json:"attribute"`
	Label     string `json:"label"`
	Value     string `json:"value"`
}

const boundingBoxAttribute = "boundingBox"
