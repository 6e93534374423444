// Package export writes a JSON backup of one user's current snapshot to a
// GCS bucket. This is a convenience around the consistency core, not part of
// it: the store stays the system of record.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/ycchuang/moneybook/internal/domain"
)

// Snapshot is the exported document shape.
type Snapshot struct {
	UserID       string               `json:"userId"`
	ExportedAt   time.Time            `json:"exportedAt"`
	Accounts     []domain.Account     `json:"accounts"`
	Transactions []domain.Transaction `json:"transactions"`
}

// ObjectName builds a date-partitioned object name for an export.
func ObjectName(userID string, now time.Time) string {
	return fmt.Sprintf("exports/%s/%s-%s.json", now.Format("2006/01/02"), uuid.NewString(), userID)
}

// Upload marshals the snapshot and writes it to gs://bucket/object, assuming
// Application Default Credentials. Returns the GCS URI of the object.
func Upload(ctx context.Context, bucket, object string, snap Snapshot) (string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("export: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("export: encoding snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("export: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", bucket, object), nil
}
