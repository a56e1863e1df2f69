package feeders

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YamlFeeder is a feeder that reads YAML files into a configuration structure.
type YamlFeeder struct {
	Path string
}

// NewYamlFeeder creates a new YamlFeeder that reads from the specified YAML file.
func NewYamlFeeder(filePath string) *YamlFeeder {
	return &YamlFeeder{Path: filePath}
}

// Feed reads the YAML file and unmarshals it into the provided structure.
func (y *YamlFeeder) Feed(structure interface{}) error {
	content, err := os.ReadFile(y.Path)
	if err != nil {
		return fmt.Errorf("failed to read yaml file: %w", err)
	}
	if err := yaml.Unmarshal(content, structure); err != nil {
		return fmt.Errorf("failed to unmarshal yaml data: %w", err)
	}
	return nil
}

// FeedKey reads the YAML file and extracts a single top-level key into target.
func (y *YamlFeeder) FeedKey(key string, target interface{}) error {
	var allData map[string]interface{}
	if err := y.Feed(&allData); err != nil {
		return err
	}

	value, exists := allData[key]
	if !exists {
		return nil
	}

	valueBytes, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := yaml.Unmarshal(valueBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal value to target: %w", err)
	}
	return nil
}
