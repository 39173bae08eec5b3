package ansible

import (
	"strings"

	model "ansible-webui/datamodel/service-model"
)

const (
	// DefaultBinary is the playbook runner invoked when none is configured.
	DefaultBinary = "ansible-playbook"
	// DefaultPlaybook is run when the form leaves the playbook empty.
	DefaultPlaybook = "default_ping.yml"

	localhost       = "localhost"
	inlineLocalhost = "localhost,"
	connectionLocal = "--connection=local"
	autoInterpreter = "ansible_python_interpreter=auto"
)

// Invocation is a run request after default substitution.
type Invocation struct {
	// Hosts is passed to -i. A trailing comma makes it an inline host list.
	Hosts            string
	InventoryDisplay string
	// Direct is set when the request targets only the local machine.
	Direct          bool
	Playbook        string
	PlaybookDisplay string
}

// Resolve applies the host and playbook defaulting rules to raw form input.
func Resolve(req model.ExecutionRequest) Invocation {
	var inv Invocation

	hosts := strings.TrimSpace(req.TargetHosts)
	if hosts == "" || strings.ToLower(hosts) == localhost {
		inv.Hosts = inlineLocalhost
		inv.InventoryDisplay = "localhost (default)"
		inv.Direct = true
	} else {
		inv.Hosts = hosts
		inv.InventoryDisplay = hosts
	}

	playbook := strings.TrimSpace(req.PlaybookPath)
	if playbook == "" {
		inv.Playbook = DefaultPlaybook
		inv.PlaybookDisplay = DefaultPlaybook + " (default)"
	} else {
		inv.Playbook = playbook
		inv.PlaybookDisplay = playbook
	}

	return inv
}

// Args builds the argument vector for bin. The vector is executed directly,
// never through a shell.
func (inv Invocation) Args(bin string) []string {
	if inv.Direct {
		return []string{
			bin,
			"-i", inlineLocalhost,
			connectionLocal,
			"-e", autoInterpreter,
			inv.Playbook,
		}
	}

	args := []string{bin, "-i", inv.Hosts}
	if isLocalhostList(inv.Hosts) {
		args = append(args, connectionLocal)
	}
	return append(args, inv.Playbook)
}

// Remote reports whether the run reaches hosts other than the local machine.
func (inv Invocation) Remote() bool {
	return !inv.Direct && !isLocalhostList(inv.Hosts)
}

// isLocalhostList reports whether hosts names only localhost, e.g. "localhost,".
func isLocalhostList(hosts string) bool {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(hosts), ",")) == localhost
}
