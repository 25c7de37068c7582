package forecast

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact pairs a trained regressor with the exact feature-name schema it
// was trained on. The schema travels with the model so inference always
// selects the same columns in the same order; it is validated on load.
type Artifact struct {
	SchemaVersion int      `json:"schemaVersion"`
	FeatureNames  []string `json:"featureNames"`
	Model         *GBM     `json:"model"`
}

// SaveArtifact writes the artifact atomically: serialized to a temp file in
// the target directory, then renamed over any previous artifact. The
// directory is created if absent. A failed save never clobbers the previous
// artifact.
func SaveArtifact(path string, art *Artifact) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	raw, err := json.Marshal(art)
	if err != nil {
		return fmt.Errorf("failed to serialize model artifact: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "demand_model_*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write model artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp artifact: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish model artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads and validates a persisted artifact. A missing file is
// an expected state, reported as (nil, nil): the predictor falls back to its
// heuristic.
func LoadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var art Artifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact: %w", err)
	}

	if art.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("model artifact schema version %d is not supported (want %d)",
			art.SchemaVersion, SchemaVersion)
	}
	if len(art.FeatureNames) == 0 || art.Model == nil || !art.Model.Fitted() {
		return nil, fmt.Errorf("model artifact at %s is incomplete", path)
	}
	return &art, nil
}
