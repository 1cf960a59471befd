package activities

import (
	"fmt"
	"path/filepath"

	"studykit/internal/extract"
	"studykit/internal/pipeline"
	"studykit/internal/prompt"
	"studykit/internal/util"
)

const manifestName = "manifest.json"

// StageJob writes files and the manifest under root/jobID and returns the
// manifest path. File order is preserved through a numeric prefix.
func StageJob(root, jobID string, files []extract.File, style prompt.Style, meta pipeline.Meta) (string, error) {
	dir := filepath.Join(root, jobID)
	if err := util.EnsureDir(dir); err != nil {
		return "", err
	}
	m := JobManifest{JobID: jobID, Style: style, Meta: meta}
	for i, f := range files {
		path := util.SafeJoin(dir, fmt.Sprintf("%03d-%s", i, filepath.Base(f.Name)))
		if err := util.WriteFileAtomic(path, f.Data); err != nil {
			return "", fmt.Errorf("stage %s: %w", f.Name, err)
		}
		m.Files = append(m.Files, StagedFile{Name: f.Name, MediaType: f.MediaType, Path: path})
	}
	manifestPath := filepath.Join(dir, manifestName)
	if err := util.WriteJSONAtomic(manifestPath, m); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return manifestPath, nil
}

// ResultPath is where WriteJobResultActivity stores a job's outcome.
func ResultPath(outRoot, jobID string) string {
	return filepath.Join(outRoot, filepath.Base(jobID), "result.json")
}
