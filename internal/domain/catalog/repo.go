package catalog

import "context"

type Repository interface {
	CreateService(ctx context.Context, in ServiceInput) (*BillableService, error)
	GetService(ctx context.Context, id int64) (*BillableService, error)
	ServiceByName(ctx context.Context, name string) (*BillableService, error)
	ListServices(ctx context.Context) ([]*BillableService, error)
	UpdateService(ctx context.Context, id int64, in ServiceInput) (*BillableService, error)
	DeleteService(ctx context.Context, id int64) error

	CreateDoctor(ctx context.Context, in DoctorInput) (*Doctor, error)
	GetDoctor(ctx context.Context, id int64) (*Doctor, error)
	DoctorByName(ctx context.Context, name string) (*Doctor, error)
	// ListDoctors filters by clinic when clinicID is non-zero.
	ListDoctors(ctx context.Context, clinicID int64) ([]*Doctor, error)
	UpdateDoctor(ctx context.Context, id int64, in DoctorInput) (*Doctor, error)
	DeleteDoctor(ctx context.Context, id int64) error

	ListClinics(ctx context.Context) ([]*Clinic, error)

	CreateComplaintTemplate(ctx context.Context, in ComplaintTemplateInput) (int64, error)
	ListComplaintTemplates(ctx context.Context, department string) ([]*ComplaintTemplate, error)

	MedicineNames(ctx context.Context, prefix string, limit int) ([]string, error)
}
