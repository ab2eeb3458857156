package util

import (
	"os"
	"strings"
)

// GetEnvironmentVariables returns every variable starting with prefix, with
// surrounding whitespace stripped from the values.
func GetEnvironmentVariables(prefix string) map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		name, value, _ := strings.Cut(variable, "=")
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		environmentVariables[name] = strings.TrimSpace(value)
	}

	return environmentVariables
}
