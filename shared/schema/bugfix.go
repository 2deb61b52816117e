package schema

// FixRequest is the input to bug-fix suggestion.
type FixRequest struct {
	Code             string   `json:"code"`
	ErrorDescription string   `json:"error_description"`
	ErrorTraceback   string   `json:"error_traceback,omitempty"`
	Language         Language `json:"language"`
	Context          string   `json:"context,omitempty"`
}

// FixResult carries corrected code plus a rationale.
type FixResult struct {
	Success        bool     `json:"success"`
	FixedCode      string   `json:"fixed_code"`
	Explanation    string   `json:"explanation"`
	ChangesMade    []string `json:"changes_made,omitempty"`
	PreventionTips []string `json:"prevention_tips,omitempty"`
	Source         Source   `json:"source"`
	ProcessingTime float64  `json:"processing_time"`
}
