package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/baiguoname/qust-sub001/internal/config"
)

type target struct {
	name   string
	schema any
	sample any
}

var targets = []target{
	{name: "backtest-config", schema: &config.BacktestConfig{}, sample: config.SampleBacktest()},
	{name: "live-config", schema: &config.LiveConfig{}, sample: config.SampleLive()},
}

func validatePaths(schemaPath, sampleConfigPath string) error {
	if schemaPath == "" {
		return fmt.Errorf("schema path cannot be empty")
	}

	if sampleConfigPath == "" {
		return fmt.Errorf("sample config path cannot be empty")
	}

	return nil
}

func validateSchemaName(name string) error {
	if name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	if !strings.HasSuffix(name, ".json") {
		return fmt.Errorf("schema name %q must have .json extension", name)
	}

	return nil
}

func getSchemaReference(schemaName string) string {
	return "# yaml-language-server: $schema=" + schemaName + "\n"
}

func generateSchemaFile(title string, v any, schemaPath string) error {
	schemaJSON, err := config.GenerateSchemaJSON(title, v)
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(schemaPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	return nil
}

// generateSampleConfig writes sample to samplePath unless the file exists.
func generateSampleConfig(sample any, samplePath, schemaName string) error {
	if _, err := os.Stat(samplePath); !os.IsNotExist(err) {
		return nil
	}

	yamlBytes, err := yaml.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	yamlBytes = append([]byte(getSchemaReference(schemaName)), yamlBytes...)

	if err := os.WriteFile(samplePath, yamlBytes, 0644); err != nil {
		return fmt.Errorf("failed to write sample config to file: %w", err)
	}

	return nil
}

func generate(dir string) error {
	for _, t := range targets {
		schemaName := t.name + ".json"
		schemaPath := filepath.Join(dir, schemaName)
		samplePath := filepath.Join(dir, t.name+".yaml")

		if err := validateSchemaName(schemaName); err != nil {
			return err
		}

		if err := validatePaths(schemaPath, samplePath); err != nil {
			return err
		}

		if err := generateSchemaFile(t.name, t.schema, schemaPath); err != nil {
			return err
		}

		if err := generateSampleConfig(t.sample, samplePath, schemaName); err != nil {
			return err
		}

		log.Printf("Schema successfully generated at %s", schemaPath)
	}

	return nil
}

func main() {
	if err := generate("./config"); err != nil {
		log.Fatal(err)
	}
}
