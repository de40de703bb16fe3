package session

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadProfile reads launch options from a YAML file. Keys are the same
// as the flag names; values must be scalars. Unknown keys are not
// rejected here; they flow into Resolve and fail there the same way
// unknown flags do.
func LoadProfile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}

	opts := make(Options, len(raw))
	for key, value := range raw {
		switch value.(type) {
		case string, int, int64, float64, bool:
			opts[key] = fmt.Sprintf("%v", value)
		case nil:
			opts[key] = ""
		default:
			return nil, fmt.Errorf("profile %s: option %q must be a scalar", path, key)
		}
	}

	return opts, nil
}
