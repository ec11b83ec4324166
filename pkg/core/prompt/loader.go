package prompt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"subsea_intel/pkg/logger"
)

// LoadFromDirectory registers every prompt and schema found under baseDir,
// overriding built-ins with the same ID. Expected layout:
//
//	baseDir/
//	  prompts/
//	    extraction/
//	      contracts.json      -> extraction.contracts
//	    agent/
//	      plan.json           -> agent.plan
//	  schemas/
//	    plan.json
func LoadFromDirectory(r *Registry, baseDir string, log *logger.Logger) error {
	log = logger.OrNop(log)

	promptDir := filepath.Join(baseDir, "prompts")
	if err := loadPrompts(r, promptDir); err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	schemaDir := filepath.Join(baseDir, "schemas")
	if err := loadSchemas(r, schemaDir); err != nil {
		log.Warn("no schemas loaded", "dir", schemaDir, "error", err)
	}

	log.Info("prompts loaded", "count", r.Count(), "dir", baseDir)
	return nil
}

func loadPrompts(r *Registry, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("prompts directory not found: %s", dir)
	}

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		var pt PromptTemplate
		if err := json.Unmarshal(data, &pt); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if pt.ID == "" {
			pt.ID = idFromPath(path, dir)
		}
		if pt.Category == "" {
			pt.Category = categoryFromPath(path, dir)
		}
		return r.Register(&pt)
	})
}

func loadSchemas(r *Registry, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read schema %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), ".json")
		return r.RegisterSchema(&ResponseSchema{ID: name, Name: name, JSONSchema: string(data)})
	})
}

// idFromPath turns "prompts/agent/plan.json" into "agent.plan".
func idFromPath(path, baseDir string) string {
	rel, _ := filepath.Rel(baseDir, path)
	rel = strings.TrimSuffix(rel, ".json")
	return strings.ReplaceAll(rel, string(filepath.Separator), ".")
}

func categoryFromPath(path, baseDir string) string {
	rel, _ := filepath.Rel(baseDir, path)
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) > 1 {
		return parts[0]
	}
	return "default"
}
