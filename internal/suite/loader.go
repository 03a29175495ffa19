// Package suite loads Suite definitions from YAML files on disk. Suites
// are read-only once loaded; no part of the core mutates one.
package suite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/llm-bench/engine/internal/logging"
	"github.com/llm-bench/engine/pkg/models"
)

type suiteFile struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Scenarios   []scenarioFile `yaml:"scenarios"`
}

type scenarioFile struct {
	Name                 string `yaml:"name"`
	Prompt               string `yaml:"prompt"`
	MaxTokens            int    `yaml:"max_tokens"`
	ExpectedOutputLength int    `yaml:"expected_output_length"`
}

// Load parses a single suite YAML file.
func Load(path string) (models.Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Suite{}, fmt.Errorf("failed to read suite file %s: %w", path, err)
	}

	var parsed suiteFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return models.Suite{}, fmt.Errorf("failed to parse suite file %s: %w", path, err)
	}

	scenarios := make([]models.Scenario, 0, len(parsed.Scenarios))
	for _, s := range parsed.Scenarios {
		maxTokens := s.MaxTokens
		if maxTokens == 0 {
			maxTokens = models.DefaultMaxTokens
		}
		scenarios = append(scenarios, models.Scenario{
			Name:                 s.Name,
			Prompt:               s.Prompt,
			MaxTokens:            maxTokens,
			ExpectedOutputLength: s.ExpectedOutputLength,
		})
	}

	return models.Suite{
		Name:        parsed.Name,
		Description: parsed.Description,
		Scenarios:   scenarios,
	}, nil
}

// LoadAll loads every *.yaml/*.yml file in dir. A file that fails to
// parse is skipped with a warning rather than failing the whole catalog,
// mirroring the Resource Sampler's best-effort degrade philosophy.
func LoadAll(ctx context.Context, dir string) ([]models.Suite, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read suites directory %s: %w", dir, err)
	}

	var suites []models.Suite
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		s, err := Load(path)
		if err != nil {
			logging.Warn(ctx, "suite loader: skipping unparseable suite file", "path", path, "error", err)
			continue
		}
		suites = append(suites, s)
	}

	return suites, nil
}
