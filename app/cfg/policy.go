package cfg

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultExtensions is the media allow-list used when no policy file is configured.
var DefaultExtensions = []string{".mkv", ".mp4"}

// Policy controls which finished downloads are delivered.
type Policy struct {
	Extensions    []string `yaml:"extensions"`
	MaxUploadSize int64    `yaml:"max_upload_size"` // bytes, 0 means unlimited
}

func DefaultPolicy() *Policy {
	return &Policy{
		Extensions: append([]string(nil), DefaultExtensions...),
	}
}

// LoadPolicy reads a YAML policy file. An empty path yields DefaultPolicy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	return parsePolicy(data)
}

func parsePolicy(data []byte) (*Policy, error) {
	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(policy.Extensions) == 0 {
		policy.Extensions = append([]string(nil), DefaultExtensions...)
	}

	if err := validatePolicy(&policy); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	return &policy, nil
}

func validatePolicy(policy *Policy) error {
	for i, ext := range policy.Extensions {
		ext = strings.TrimSpace(ext)
		if len(ext) < 2 || !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension at index %d must start with a dot: %q", i, ext)
		}
		policy.Extensions[i] = ext
	}

	if policy.MaxUploadSize < 0 {
		return fmt.Errorf("max upload size must be non-negative")
	}

	return nil
}
