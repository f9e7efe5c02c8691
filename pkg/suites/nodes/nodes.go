// Package nodes checks configuration, status and usage of every cluster node.
package nodes

import (
	"github.com/re-tools/re-healthcheck/pkg/api"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/rex"
)

const Name = "nodes"

// Suite checks every node of the cluster.
type Suite struct {
	check.BaseSuite

	api *api.Client
	rex *rex.Runner
}

// New creates the nodes suite.
func New(c *api.Client, r *rex.Runner) *Suite {
	s := &Suite{
		api: c,
		rex: r,
	}

	both := check.RequiresAPI | check.RequiresRemote

	s.BaseSuite = check.BaseSuite{
		SuiteName:        Name,
		SuiteDescription: "Check configuration, status and usage of all nodes",
		SuiteChecks: []check.Check{
			newCheck("NC-001", "Log file path", "Check if log file path is not on root filesystem",
				"Move the log file path to a mounted filesystem.", both, s.logFilePath),
			newCheck("NC-002", "Ephemeral storage path", "Check if ephemeral storage path is not on root filesystem",
				"Move the ephemeral storage path to a mounted filesystem.", both, s.ephemeralStoragePath),
			newCheck("NC-003", "Persistent storage path", "Check if persistent storage path is not on root filesystem",
				"Move the persistent storage path to a mounted filesystem.", both, s.persistentStoragePath),
			newCheck("NC-004", "Swappiness", "Check if swapping is disabled on each node",
				"Turn off swapping in your OS.", both, s.swappiness),
			newCheck("NC-005", "Transparent huge pages", "Check if THP is disabled on each node",
				"Turn off Transparent Huge Pages in your OS.", both, s.transparentHugePages),
			newCheck("NS-001", "OS version", "Get OS version of each node",
				"", both, s.osVersion),
			newCheck("NS-002", "RS version", "Get RS version of each node",
				"", check.RequiresAPI, s.rsVersion),
			newCheck("NS-003", "rlcheck", "Check if rlcheck has errors",
				"Follow the instructions of the rlcheck output.", both, s.rlcheck),
			newCheck("NS-004", "cnm_ctl status", "Check if cnm_ctl status has errors",
				"Restart services that are not running with `cnm_ctl start <SERVICE>`.", both, s.cnmStatus),
			newCheck("NS-005", "supervisorctl status", "Check if supervisorctl status has errors",
				"Restart services that are not running with `supervisorctl start <SERVICE>`.", both, s.supervisorStatus),
			newCheck("NS-006", "install.log", "Check if install.log has errors",
				"Investigate install.log.", both, s.installLog),
			newCheck("NS-007", "Network latency", "Get round trip times between nodes (min/avg/max/dev)",
				"", both, s.networkLatency),
			newCheck("NS-008", "Open TCP ports", "Check if the cluster ports of each node are reachable from the other nodes",
				"Investigate the network connection between nodes, e.g. firewall rules.", both, s.openPorts),
			newCheck("NU-001", "CPU usage", "Check CPU usage of each node (min/avg/max/dev)",
				"Increase CPU power on nodes.", check.RequiresAPI, s.cpuUsage),
			newCheck("NU-002", "RAM usage", "Check RAM usage of each node (min/avg/max/dev)",
				"Increase RAM on nodes.", check.RequiresAPI, s.ramUsage),
			newCheck("NU-003", "Ephemeral storage usage", "Get ephemeral storage usage of each node (min/avg/max/dev)",
				"", check.RequiresAPI, s.ephemeralStorageUsage),
			newCheck("NU-004", "Persistent storage usage", "Get persistent storage usage of each node (min/avg/max/dev)",
				"", check.RequiresAPI, s.persistentStorageUsage),
		},
	}

	return s
}

func newCheck(id, name, desc, remedy string, req check.Requirement, run check.RunFunc) check.Check {
	return check.New(check.BaseCheck{
		CheckSuite:       Name,
		CheckID:          id,
		CheckName:        name,
		CheckDescription: desc,
		CheckRemedy:      remedy,
		Requirements:     req,
	}, run)
}
