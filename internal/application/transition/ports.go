package transition

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/identity"
)

// ReportData is the payload a report template is rendered with
type ReportData struct {
	Assets       []*asset.Asset
	LoggedUser   *identity.User
	AffectedUser *identity.User
	Timestamp    time.Time
	RunID        uuid.UUID
}

// ReportRenderer renders a report template to a file.
// A failed render must return an error; it is never silently skipped.
type ReportRenderer interface {
	Render(ctx context.Context, templatePath, outputPath string, data ReportData) error
}

// ReportArchive copies a rendered report to longer-lived storage and
// returns where it can be downloaded from. Remove deletes an archived
// report by the location Archive returned; a missing report is not an error.
type ReportArchive interface {
	Archive(ctx context.Context, localPath, fileName string) (string, error)
	Remove(ctx context.Context, location string) error
}
