package catalog

import "strings"

const (
	DescConnectivityDefault = "Connectivity Test (Default)"
	DescConnectivity        = "Connectivity Test"
	DescSystemInfo          = "System Information & Health Check"
	DescWorkspace           = "Create Development Workspace"
	DescCustom              = "Custom Playbook"
)

// descriptionRule pairs a predicate over the lower-cased path with its label.
type descriptionRule struct {
	match func(lowerPath string) bool
	label string
}

// descriptionRules is evaluated in order; the first match wins.
var descriptionRules = []descriptionRule{
	{
		match: func(p string) bool { return strings.Contains(p, "default") && strings.Contains(p, "ping") },
		label: DescConnectivityDefault,
	},
	{
		match: func(p string) bool { return strings.Contains(p, "ping") },
		label: DescConnectivity,
	},
	{
		match: func(p string) bool { return strings.Contains(p, "system_info") || strings.Contains(p, "system-info") },
		label: DescSystemInfo,
	},
	{
		match: func(p string) bool { return strings.Contains(p, "workspace") },
		label: DescWorkspace,
	},
}

// Describe returns the human-readable description for a playbook path.
func Describe(path string) string {
	lower := strings.ToLower(path)
	for _, rule := range descriptionRules {
		if rule.match(lower) {
			return rule.label
		}
	}
	return DescCustom
}

// excludedNames are basenames that live next to playbooks but are not playbooks.
var excludedNames = map[string]struct{}{
	"docker-compose.yml": {},
	"requirements.yml":   {},
}

func isExcluded(name string) bool {
	_, ok := excludedNames[strings.ToLower(name)]
	return ok
}
