package prescription

import "context"

type Repository interface {
	// InsertMedicines stores each line followed by its variants. versionID
	// may be nil when the patient has no version yet.
	InsertMedicines(ctx context.Context, patientID int64, versionID *int64, lines []MedicineLine) error
	// SetGeneratedURL returns ErrNotFound when the patient does not exist.
	SetGeneratedURL(ctx context.Context, patientID int64, url string) error
	ListLines(ctx context.Context, patientID int64) ([]*StoredLine, error)

	CreateTemplate(ctx context.Context, name string, data map[string]any) (int64, error)
	ListTemplates(ctx context.Context) ([]*Template, error)
}
