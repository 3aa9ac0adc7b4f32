package slicing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"platen/internal/catalog"
	"platen/internal/services"
	"platen/internal/slicer"
)

// jobContext is everything the workflow resolves from the catalog before the
// slicer runs.
type jobContext struct {
	model    *catalog.Model
	material *catalog.Material
	process  *catalog.Process
	machine  *catalog.Machine
	files    slicer.ContextFiles
}

// materializeConfigs writes the referenced configuration documents into the
// job workspace exactly as stored. All three documents are mandatory: a
// material, process, or machine without a resolvable config reference fails
// the job.
func (w *Workflow) materializeConfigs(ctx context.Context, jc *jobContext, workspace string) error {
	contextDir := filepath.Join(workspace, "context")
	if err := os.MkdirAll(contextDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "slicing", "materialize configs",
			"failed to create the context directory", err)
	}

	var err error
	if jc.files.MaterialPath, err = w.writeConfig(ctx, contextDir, "material.json", jc.material.ConfigID); err != nil {
		return err
	}
	if jc.files.ProcessPath, err = w.writeConfig(ctx, contextDir, "process.json", jc.process.ConfigID); err != nil {
		return err
	}
	if jc.files.MachinePath, err = w.writeConfig(ctx, contextDir, "machine.json", jc.machine.ConfigID); err != nil {
		return err
	}
	return nil
}

func (w *Workflow) writeConfig(ctx context.Context, dir, name string, configID *int64) (string, error) {
	if configID == nil {
		return "", services.Wrap(services.ErrValidation, "slicing", "materialize configs",
			fmt.Sprintf("no configuration document referenced for %s", name), nil)
	}
	doc, err := w.catalog.GetConfig(ctx, *configID)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "slicing", "materialize configs",
			fmt.Sprintf("config %d for %s could not be loaded", *configID, name), err)
	}
	if doc == nil {
		return "", services.Wrap(services.ErrValidation, "slicing", "materialize configs",
			fmt.Sprintf("config %d for %s does not exist", *configID, name), nil)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, doc.Payload, 0o644); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "slicing", "materialize configs",
			fmt.Sprintf("failed to write %s", name), err)
	}
	return path, nil
}
