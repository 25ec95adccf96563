package domain

import (
	"strconv"
	"strings"
	"time"
)

// RepoRecord is the persisted analysis/state entry for one repository.
type RepoRecord struct {
	RepoName    string           `json:"repo_name"`
	ProjectPath string           `json:"project_path"`
	Structure   string           `json:"structure"`
	AIAnalysis  string           `json:"ai_analysis"`
	Analysis    *ProjectAnalysis `json:"analysis,omitempty"`
	Model       string           `json:"bedrock_model"`
	ErrorIn     string           `json:"error_in"`
	ErrorMsg    string           `json:"errormsg"`
	LatestError string           `json:"latest_error,omitempty"`
	ImageName   string           `json:"imagename"`
	Version     int64            `json:"version"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ProjectAnalysis is the structured form of the oracle's repository analysis.
type ProjectAnalysis struct {
	ProjectType         string   `json:"project_type"`
	MainFiles           []string `json:"main_files,omitempty"`
	Dependencies        []string `json:"dependencies,omitempty"`
	RecommendedPort     Port     `json:"recommended_port,omitempty"`
	BuildInstructions   string   `json:"build_instructions,omitempty"`
	RuntimeRequirements string   `json:"runtime_requirements,omitempty"`
}

// Port accepts 8080, "8080" and "8080/tcp" when decoding model output.
// Anything without leading digits decodes to 0.
type Port int

func (p *Port) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		*p = 0
		return nil
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return err
	}
	*p = Port(n)
	return nil
}

// SetError records the stage and message of the latest pipeline failure.
func (r *RepoRecord) SetError(stage string, err error) {
	if err == nil {
		return
	}
	r.ErrorIn = stage
	r.ErrorMsg = err.Error()
	r.LatestError = err.Error()
}

// ClearError resets the failure fields after a successful run.
func (r *RepoRecord) ClearError() {
	r.ErrorIn = ""
	r.ErrorMsg = ""
	r.LatestError = ""
}
