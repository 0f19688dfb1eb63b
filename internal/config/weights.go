package config

import (
	"fmt"
	"os"

	"alpha-squeeze/internal/domain"

	"gopkg.in/yaml.v3"
)

// LoadWeightsFile reads a YAML weight config. Fields absent from the file keep their
// defaults; the result is not validated here.
func LoadWeightsFile(path string) (domain.WeightConfig, error) {
	w := domain.DefaultWeightConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("read weights file: %w", err)
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("parse weights file %s: %w", path, err)
	}
	return w, nil
}
