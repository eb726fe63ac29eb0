package patient

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, r *Record) (*Patient, error)
	Get(ctx context.Context, id int64) (*Patient, error)
	UpdateSnapshot(ctx context.Context, id int64, r *Record) error
	SetFinalChoices(ctx context.Context, id int64, fc FinalChoices) error
	Search(ctx context.Context, p SearchParams) ([]*Patient, error)

	InsertVersion(ctx context.Context, patientID int64, at time.Time, r *Record) (int64, error)
	// LatestVersion orders by version_timestamp DESC, id DESC.
	LatestVersion(ctx context.Context, patientID int64) (*Version, error)
	AmendFinalChoices(ctx context.Context, versionID int64, fc FinalChoices) error
	ListVersions(ctx context.Context, patientID int64) ([]*Version, error)
	GetVersion(ctx context.Context, id int64) (*Version, error)

	InsertComplaints(ctx context.Context, patientID, versionID int64, cs []Complaint) error
	ListComplaints(ctx context.Context, versionID int64) ([]Complaint, error)
}
