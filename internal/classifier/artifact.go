package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/phish-quarantine/internal/core"
)

// artifactVersion identifies the persisted model format. Loading any other
// version degrades to untrained rather than guessing at the layout.
const artifactVersion = 1

// artifact is the self-describing persisted form of a fitted model
type artifact struct {
	Version   int       `json:"artifact_version"`
	TrainedAt time.Time `json:"trained_at"`
	Model     *model    `json:"model"`
}

// saveArtifact writes the model atomically: a temp file in the target
// directory renamed over the destination, so readers see either the old
// artifact or the new one, never a partial write.
func saveArtifact(path string, m *model, trainedAt time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	data, err := json.Marshal(artifact{
		Version:   artifactVersion,
		TrainedAt: trainedAt,
		Model:     m,
	})
	if err != nil {
		return fmt.Errorf("failed to encode model artifact: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write model artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close model artifact: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace model artifact: %w", err)
	}

	return nil
}

// loadArtifact reads a persisted model. A missing file returns
// (nil, os.ErrNotExist); anything unreadable or of an unknown version
// returns ErrModelArtifactCorrupt.
func loadArtifact(path string) (*model, time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, time.Time{}, os.ErrNotExist
		}
		return nil, time.Time{}, fmt.Errorf("%w: %v", core.ErrModelArtifactCorrupt, err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", core.ErrModelArtifactCorrupt, err)
	}

	if a.Version != artifactVersion {
		return nil, time.Time{}, fmt.Errorf("%w: unsupported artifact version %d",
			core.ErrModelArtifactCorrupt, a.Version)
	}
	if a.Model == nil || !a.Model.valid() {
		return nil, time.Time{}, fmt.Errorf("%w: incomplete model data", core.ErrModelArtifactCorrupt)
	}

	return a.Model, a.TrainedAt, nil
}
