package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/Mutwiricris/cuesports-engine/models"
	"github.com/Mutwiricris/cuesports-engine/storage"
)

// SnapshotExporter uploads finalized standings to object storage so that
// external consumers can read them without touching the database. Export is
// best effort; progression never depends on it.
type SnapshotExporter struct {
	uploader storage.FileUploader
}

func NewSnapshotExporter(uploader storage.FileUploader) *SnapshotExporter {
	return &SnapshotExporter{uploader: uploader}
}

// ExportPositions writes snapshots/<tournamentId>/<level>_<entityId>.json.
func (e *SnapshotExporter) ExportPositions(ctx context.Context, tournamentID string, level models.Level, entityID string, positions *models.EntityPositions) (*storage.UploadResult, error) {
	if e == nil || e.uploader == nil {
		return nil, nil
	}

	doc, err := json.Marshal(struct {
		TournamentID string                  `json:"tournamentId"`
		Level        models.Level            `json:"level"`
		EntityID     string                  `json:"entityId"`
		Positions    *models.EntityPositions `json:"positions"`
	}{tournamentID, level, entityID, positions})
	if err != nil {
		return nil, fmt.Errorf("failed to encode positions snapshot: %w", err)
	}

	key := fmt.Sprintf("snapshots/%s/%s_%s.json", tournamentID, level, entityID)
	result, err := e.uploader.Upload(ctx, key, "application/json", bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to upload positions snapshot %s: %w", key, err)
	}
	return result, nil
}
