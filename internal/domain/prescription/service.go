package prescription

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medassist/clinic/internal/domain/patient"
	"github.com/medassist/clinic/internal/platform/ai"
	"github.com/medassist/clinic/internal/platform/blobstore"
	"github.com/medassist/clinic/internal/platform/db"
	"github.com/medassist/clinic/internal/platform/document"
	"github.com/medassist/clinic/internal/platform/events"
)

const (
	defaultURLTTL = time.Hour

	msgSavedForPatient = "Prescription saved (private) and presigned for download"
	msgSavedManual     = "Prescription generated (no patient_id) and presigned for download"
)

// PatientReader is the part of the patient service prescriptions depend on.
type PatientReader interface {
	Get(ctx context.Context, id int64) (*patient.Patient, error)
	LatestVersion(ctx context.Context, patientID int64) (*patient.Version, error)
}

type Service struct {
	repo     Repository
	patients PatientReader
	tx       db.TxRunner
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger

	renderer  *document.Renderer
	blobs     blobstore.Store
	urlTTL    time.Duration
	clinical  *ai.Clinical
	publisher events.Publisher
}

func NewService(repo Repository, patients PatientReader, tx db.TxRunner, blobs blobstore.Store, loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:      repo,
		patients:  patients,
		tx:        tx,
		loc:       loc,
		now:       time.Now,
		log:       log,
		renderer:  document.NewRenderer(),
		blobs:     blobs,
		urlTTL:    defaultURLTTL,
		publisher: events.NopPublisher{},
	}
}

func (s *Service) SetAnalyzer(c *ai.Clinical) { s.clinical = c }
func (s *Service) SetPublisher(p events.Publisher) { s.publisher = p }
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) SetURLTTL(d time.Duration) {
	if d > 0 {
		s.urlTTL = d
	}
}

// ---------------------------------------------------------------------------
// Save
// ---------------------------------------------------------------------------

// Save renders the prescription, stores it privately and returns a
// time-limited link. With a patient the medicine lines and the stored
// reference are recorded against the latest version in one transaction.
func (s *Service) Save(ctx context.Context, req *SaveRequest) (*SaveResult, error) {
	pid := int64(req.PatientID)
	name := req.PatientName.String()
	if name == "" {
		if pid != 0 {
			name = "Patient " + strconv.FormatInt(pid, 10)
		} else {
			name = "Patient Manual"
		}
	}

	if pid != 0 {
		if _, err := s.patients.Get(ctx, pid); err != nil {
			if errors.Is(err, patient.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
	}

	pdf, err := s.renderer.Render(BuildLayout(req, name, s.now().In(s.loc)))
	if err != nil {
		return nil, fmt.Errorf("render prescription: %w", err)
	}

	filename := "Prescription_" + uuid.NewString() + ".pdf"
	if pid != 0 {
		filename = fmt.Sprintf("Prescription_%d.pdf", pid)
	}
	ref, err := blobstore.Upload(ctx, s.blobs, filename, pdf)
	if err != nil {
		return nil, fmt.Errorf("store prescription: %w", err)
	}
	url, err := s.blobs.SignedURL(ctx, ref, s.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("sign prescription: %w", err)
	}

	res := &SaveResult{Message: msgSavedManual, PDFURL: url}
	if pid != 0 {
		err := s.tx.InTx(ctx, func(ctx context.Context) error {
			var versionID *int64
			v, err := s.patients.LatestVersion(ctx, pid)
			switch {
			case err == nil:
				versionID = &v.ID
			case !errors.Is(err, patient.ErrNotFound):
				return err
			}
			if err := s.repo.InsertMedicines(ctx, pid, versionID, req.MedicineTable); err != nil {
				return err
			}
			return s.repo.SetGeneratedURL(ctx, pid, ref)
		})
		if err != nil {
			return nil, err
		}
		res.Message = msgSavedForPatient
	}

	events.Emit(ctx, s.publisher, s.log, events.Event{
		Type:      events.PrescriptionSaved,
		PatientID: pid,
		URL:       ref,
	})
	return res, nil
}

// ---------------------------------------------------------------------------
// Generate
// ---------------------------------------------------------------------------

// Generate drafts a prescription. Stored final choices take precedence over
// the request's diagnosis, tests and treatments.
func (s *Service) Generate(ctx context.Context, req *GenerateRequest) (*Generated, error) {
	in := ai.GenerateInput{
		CaseSummary: req.PatientInfo.caseSummary(),
		Diagnosis:   req.Diagnosis.String(),
		Tests:       req.Tests.Items,
		Treatments:  req.Treatments.Items,
	}

	if pid := req.patientID(); pid != 0 {
		p, err := s.patients.Get(ctx, pid)
		if err != nil {
			if errors.Is(err, patient.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		analysis := in.CaseSummary
		in.CaseSummary = p.PromptSummary()
		in.ImageAnalysis = analysis.ImageAnalysis
		in.LabAnalysis = analysis.LabAnalysis
		in.PrescriptionAnalysis = analysis.PrescriptionAnalysis

		if p.HasFinalChoices() {
			fc := ParseFinalChoices(p.FinalDiagnosis, p.FinalTests, p.FinalTreatmentPlan)
			if len(fc.Diagnoses) > 0 {
				in.Diagnosis = strings.Join(fc.Diagnoses, ", ")
			}
			if len(fc.Tests) > 0 {
				in.Tests = fc.Tests
			}
			if len(fc.Treatments) > 0 {
				in.Treatments = fc.Treatments
			}
		}
	}

	log := s.log.With().Int64("patient_id", req.patientID()).Logger()
	if s.clinical == nil {
		return fallbackPrescription(in.Diagnosis, in.Tests), nil
	}
	var out Generated
	if err := s.clinical.GeneratePrescription(ctx, in, &out); err != nil {
		log.Error().Err(err).Msg("prescription generation failed")
		return fallbackPrescription(in.Diagnosis, in.Tests), nil
	}
	out.fill(in.Diagnosis)
	return &out, nil
}

func (g *Generated) fill(diagnosis string) {
	if g.Diagnosis.String() == "" {
		g.Diagnosis = Text(diagnosis)
	}
	if g.Drugs == nil {
		g.Drugs = []any{}
	}
	if g.Instructions == nil {
		g.Instructions = []string{}
	}
	if g.Tests.Items == nil {
		g.Tests = List()
	}
	if g.FollowUp.String() == "" {
		g.FollowUp = defaultFollowUp
	}
}

func (p *PatientInfo) caseSummary() ai.CaseSummary {
	return ai.CaseSummary{
		Name:                 p.Name.String(),
		Age:                  p.Age.String(),
		Gender:               p.Gender.String(),
		Department:           p.Department.String(),
		ChiefComplaint:       p.ChiefComplaint.String(),
		HPI:                  p.HistoryPresentingIllness.String(),
		PastHistory:          p.PastHistory.String(),
		PersonalHistory:      p.PersonalHistory.String(),
		FamilyHistory:        p.FamilyHistory.String(),
		OBGHistory:           p.OBGHistory.String(),
		Allergies:            p.Allergies.String(),
		MedicationHistory:    p.MedicationHistory.String(),
		SurgicalHistory:      p.SurgicalHistory.String(),
		BP:                   p.BP.String(),
		Pulse:                p.Pulse.String(),
		Temperature:          p.Temperature.String(),
		BMI:                  p.BMI.String(),
		SpO2:                 p.SpO2.String(),
		ImageAnalysis:        p.ImageAnalysis.String(),
		LabAnalysis:          p.LabAnalysis.String(),
		PrescriptionAnalysis: p.PrescriptionAnalysis.String(),
	}
}

// ParseVoicePrescription never fails; an unusable transcript yields the
// empty form.
func (s *Service) ParseVoicePrescription(ctx context.Context, transcript string) ai.VoicePrescription {
	if s.clinical == nil {
		return ai.EmptyVoicePrescription()
	}
	out, err := s.clinical.ParseVoicePrescription(ctx, transcript)
	if err != nil {
		s.log.Error().Err(err).Msg("voice prescription parse failed")
	}
	return out
}

// ---------------------------------------------------------------------------
// Templates and stored lines
// ---------------------------------------------------------------------------

func (s *Service) SaveTemplate(ctx context.Context, name string, data map[string]any) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(data) == 0 {
		return 0, &ValidationError{Msg: "Missing template name or data"}
	}
	return s.repo.CreateTemplate(ctx, name, stripPatient(data))
}

func (s *Service) ListTemplates(ctx context.Context) ([]*Template, error) {
	ts, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		ts = []*Template{}
	}
	for _, t := range ts {
		if t.Data == nil {
			t.Data = map[string]any{}
		}
		stripPatient(t.Data)
	}
	return ts, nil
}

func (s *Service) Medicines(ctx context.Context, patientID int64) ([]*StoredLine, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	lines, err := s.repo.ListLines(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []*StoredLine{}
	}
	return lines, nil
}
