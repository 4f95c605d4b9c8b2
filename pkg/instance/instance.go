// Package instance names the running process in logs.
package instance

import "os"

var idEnvVars = []string{"TOMBAMENTO_INSTANCE_ID", "DYNO", "HOSTNAME"}

// GetID returns the first instance identifier found in the environment or
// "local" when none is set.
func GetID() string {
	for _, name := range idEnvVars {
		if id := os.Getenv(name); id != "" {
			return id
		}
	}
	return "local"
}
