package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency cutagent relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Path        string `json:"path,omitempty"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckBinaries resolves each requirement's command and reports whether it
// can be executed. Path holds the resolved location when found.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			found, err := exec.LookPath(cmd)
			if err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
				break
			}
			status.Path = found
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}
