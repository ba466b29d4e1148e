package handlers

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/shaneholloman/worktrunk/internal/migrate"
)

// ConfigShowResult is what `wt config show` prints: the effective merged
// config for the current project, plus any deprecation warning surfaced by
// §4.J migration detection.
type ConfigShowResult struct {
	ConfigPath   string
	Effective    string // TOML-rendered OverridableConfig
	BriefWarning string // "" if the config has no deprecated shapes
}

// ConfigShow implements `wt config show`: render the merged effective
// config for the current project and run the same migration detector the
// loader runs, surfacing (without writing) whatever it would warn about.
func (e *Env) ConfigShow(ctx context.Context) (*ConfigShowResult, error) {
	eff := e.Config.Effective(e.ProjectID)
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(eff); err != nil {
		return nil, fmt.Errorf("encode effective config: %w", err)
	}

	result := &ConfigShowResult{ConfigPath: e.ConfigPath, Effective: buf.String()}

	content, err := os.ReadFile(e.ConfigPath) //nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, nil
	}
	report := migrate.Detect(string(content))
	if report.Any() {
		result.BriefWarning = migrate.FormatBriefWarning(e.ConfigPath)
	}
	return result, nil
}
