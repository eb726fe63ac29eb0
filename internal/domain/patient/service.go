package patient

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medassist/clinic/internal/platform/ai"
	"github.com/medassist/clinic/internal/platform/blobstore"
	"github.com/medassist/clinic/internal/platform/db"
	"github.com/medassist/clinic/internal/platform/events"
	"github.com/medassist/clinic/internal/platform/textextract"
)

const (
	gynecology     = "Gynecology"
	adviceFallback = "Error generating medical advice. Please try again later."
)

type Service struct {
	repo Repository
	tx   db.TxRunner
	loc  *time.Location
	now  func() time.Time
	log  zerolog.Logger

	blobs     blobstore.Store
	extractor textextract.Extractor
	clinical  *ai.Clinical
	publisher events.Publisher
}

func NewService(repo Repository, tx db.TxRunner, loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:      repo,
		tx:        tx,
		loc:       loc,
		now:       time.Now,
		log:       log,
		publisher: events.NopPublisher{},
	}
}

func (s *Service) SetBlobStore(b blobstore.Store) { s.blobs = b }
func (s *Service) SetExtractor(e textextract.Extractor) { s.extractor = e }
func (s *Service) SetAnalyzer(c *ai.Clinical) { s.clinical = c }
func (s *Service) SetPublisher(p events.Publisher) { s.publisher = p }
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// stamp is the current clinic wall-clock time with its fields carried in UTC,
// matching what a TIMESTAMP column returns.
func (s *Service) stamp() time.Time {
	w := s.now().In(s.loc)
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), time.UTC)
}

// ---------------------------------------------------------------------------
// Intake
// ---------------------------------------------------------------------------

func (s *Service) Create(ctx context.Context, form IntakeForm, files Files) (*CreateResult, error) {
	for _, f := range []struct{ name, val string }{
		{"name", form.Name}, {"age", form.Age}, {"gender", form.Gender}, {"contact_number", form.ContactNumber},
	} {
		if strings.TrimSpace(f.val) == "" {
			return nil, invalid("Missing required field: " + f.name)
		}
	}
	age, err := strconv.Atoi(strings.TrimSpace(form.Age))
	if err != nil {
		return nil, invalid("Age must be an integer")
	}
	if err := validateFiles(files); err != nil {
		return nil, err
	}

	rec := Record{Age: age}
	form.apply(&rec)
	if rec.Department != gynecology {
		rec.OBGHistory = ""
	}

	res := &CreateResult{Message: "Patient info saved successfully!"}
	if err := s.storeFiles(ctx, &rec, files); err != nil {
		return nil, err
	}
	if files.LabReport != nil && textextract.IsPDF(files.LabReport.Filename) {
		res.ExtractedLabText = s.extractText(ctx, files.LabReport.Data)
	}
	if files.MedicalImaging != nil && textextract.IsImage(files.MedicalImaging.Filename) {
		res.ImageDataB64 = base64.StdEncoding.EncodeToString(files.MedicalImaging.Data)
	}

	complaints := ParseComplaints(form.ChiefComplaintDetails)
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.Create(ctx, &rec)
		if err != nil {
			return err
		}
		vid, err := s.repo.InsertVersion(ctx, p.ID, s.stamp(), &rec)
		if err != nil {
			return err
		}
		res.PatientID, res.VersionID = p.ID, vid
		return s.repo.InsertComplaints(ctx, p.ID, vid, complaints)
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.log, events.Event{
		Type: events.PatientCreated, PatientID: res.PatientID, Ref: res.VersionID, OccurredAt: s.now().UTC(),
	})
	return res, nil
}

func validateFiles(files Files) error {
	for _, u := range []*Upload{files.LabReport, files.MedicalImaging, files.PreviousPrescription} {
		if u == nil {
			continue
		}
		if err := blobstore.ValidateFileName(u.Filename); err != nil {
			return invalid(err.Error())
		}
	}
	return nil
}

// storeFiles uploads each present file and points the record at it.
func (s *Service) storeFiles(ctx context.Context, rec *Record, files Files) error {
	targets := []struct {
		up  *Upload
		dst **string
	}{
		{files.LabReport, &rec.LabReportURL},
		{files.MedicalImaging, &rec.MedicalImagingURL},
		{files.PreviousPrescription, &rec.PreviousPrescriptionURL},
	}
	for _, t := range targets {
		if t.up == nil {
			continue
		}
		if s.blobs == nil {
			return errors.New("file storage is not configured")
		}
		ref, err := blobstore.Upload(ctx, s.blobs, t.up.Filename, t.up.Data)
		if err != nil {
			return fmt.Errorf("upload %s: %w", t.up.Filename, err)
		}
		*t.dst = &ref
	}
	return nil
}

func (s *Service) extractText(ctx context.Context, data []byte) string {
	if s.extractor == nil {
		return ""
	}
	text, err := s.extractor.Extract(ctx, data)
	if err != nil {
		s.log.Warn().Err(err).Msg("pdf text extraction failed")
		return ""
	}
	return text
}

// ---------------------------------------------------------------------------
// General update
// ---------------------------------------------------------------------------

// generalUpdate overwrites the snapshot, appends a version and tags the
// complaint rows with it, all in one transaction.
func (s *Service) generalUpdate(ctx context.Context, id int64, mutate func(r *Record) error, complaints []Complaint) (int64, error) {
	var vid int64
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(&p.Record); err != nil {
			return err
		}
		if err := s.repo.UpdateSnapshot(ctx, id, &p.Record); err != nil {
			return err
		}
		if vid, err = s.repo.InsertVersion(ctx, id, s.stamp(), &p.Record); err != nil {
			return err
		}
		return s.repo.InsertComplaints(ctx, id, vid, complaints)
	})
	if err != nil {
		return 0, err
	}
	events.Emit(ctx, s.publisher, s.log, events.Event{
		Type: events.PatientVersioned, PatientID: id, Ref: vid, OccurredAt: s.now().UTC(),
	})
	return vid, nil
}

// Update applies a JSON general update. Identity fields are mandatory.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (int64, error) {
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return 0, invalid("Missing field: name")
	}
	if req.Age == nil {
		return 0, invalid("Missing field: age")
	}
	if req.Gender == nil || strings.TrimSpace(*req.Gender) == "" {
		return 0, invalid("Missing field: gender")
	}
	if req.ContactNumber == nil || strings.TrimSpace(*req.ContactNumber) == "" {
		return 0, invalid("Missing field: contact_number")
	}
	return s.generalUpdate(ctx, id, func(r *Record) error {
		req.apply(r)
		return nil
	}, ParseComplaints(req.ChiefComplaintDetails))
}

// UpdateWithFiles is the multipart general update. Blank fields and absent
// files keep the stored values.
func (s *Service) UpdateWithFiles(ctx context.Context, id int64, form IntakeForm, files Files) (int64, error) {
	var age int
	if a := strings.TrimSpace(form.Age); a != "" {
		n, err := strconv.Atoi(a)
		if err != nil {
			return 0, invalid("Age must be an integer")
		}
		age = n
	}
	if err := validateFiles(files); err != nil {
		return 0, err
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return 0, err
	}

	var uploaded Record
	if err := s.storeFiles(ctx, &uploaded, files); err != nil {
		return 0, err
	}

	return s.generalUpdate(ctx, id, func(r *Record) error {
		form.merge(r)
		if age != 0 {
			r.Age = age
		}
		for _, p := range []struct{ src, dst **string }{
			{&uploaded.LabReportURL, &r.LabReportURL},
			{&uploaded.MedicalImagingURL, &r.MedicalImagingURL},
			{&uploaded.PreviousPrescriptionURL, &r.PreviousPrescriptionURL},
		} {
			if *p.src != nil {
				*p.dst = *p.src
			}
		}
		return nil
	}, ParseComplaints(form.ChiefComplaintDetails))
}

// ---------------------------------------------------------------------------
// Final choices
// ---------------------------------------------------------------------------

type versionAction int

const (
	insertFirst versionAction = iota
	amendToday
	insertNextDay
)

func (a versionAction) String() string {
	switch a {
	case insertFirst:
		return "NoPriorVersion"
	case amendToday:
		return "LatestVersionIsToday"
	default:
		return "LatestVersionIsPriorDay"
	}
}

// decide compares calendar dates of the latest version and now. Both carry
// clinic wall-clock fields.
func decide(latest *Version, now time.Time) versionAction {
	if latest == nil {
		return insertFirst
	}
	ly, lm, ld := latest.Timestamp.Date()
	ny, nm, nd := now.Date()
	if ly == ny && lm == nm && ld == nd {
		return amendToday
	}
	return insertNextDay
}

// UpdateFinalChoices records the finalised diagnosis, tests and plan. A
// version from the same clinic day is amended in place; otherwise a new
// version is appended.
func (s *Service) UpdateFinalChoices(ctx context.Context, id int64, fc FinalChoices) (*FinalChoicesResult, error) {
	res := &FinalChoicesResult{}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		latest, err := s.repo.LatestVersion(ctx, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := s.repo.SetFinalChoices(ctx, id, fc); err != nil {
			return err
		}
		p.applyFinalChoices(fc)

		now := s.stamp()
		action := decide(latest, now)
		s.log.Debug().Int64("patient_id", id).Stringer("action", action).Msg("final choices")

		if action == amendToday {
			res.VersionID, res.Amended = latest.ID, true
			return s.repo.AmendFinalChoices(ctx, latest.ID, fc)
		}
		res.VersionID, err = s.repo.InsertVersion(ctx, id, now, &p.Record)
		return err
	})
	if err != nil {
		return nil, err
	}

	amended := res.Amended
	events.Emit(ctx, s.publisher, s.log, events.Event{
		Type: events.PatientFinalChoices, PatientID: id, Ref: res.VersionID, Amended: &amended, OccurredAt: s.now().UTC(),
	})
	return res, nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func (s *Service) Get(ctx context.Context, id int64) (*Patient, error) {
	return s.repo.Get(ctx, id)
}

type Detailed struct {
	Patient  *Patient   `json:"patient"`
	Versions []*Version `json:"versions"`
}

func (s *Service) GetDetailed(ctx context.Context, id int64) (*Detailed, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	vs, err := s.repo.ListVersions(ctx, id)
	if err != nil {
		return nil, err
	}
	if vs == nil {
		vs = []*Version{}
	}
	return &Detailed{Patient: p, Versions: vs}, nil
}

func (s *Service) ListVersions(ctx context.Context, patientID int64) ([]*Version, error) {
	if _, err := s.repo.Get(ctx, patientID); err != nil {
		return nil, err
	}
	vs, err := s.repo.ListVersions(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if vs == nil {
		vs = []*Version{}
	}
	return vs, nil
}

func (s *Service) GetVersion(ctx context.Context, id int64) (*Version, error) {
	return s.repo.GetVersion(ctx, id)
}

func (s *Service) VersionComplaints(ctx context.Context, versionID int64) ([]Complaint, error) {
	cs, err := s.repo.ListComplaints(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if cs == nil {
		cs = []Complaint{}
	}
	return cs, nil
}

// LatestVersion returns ErrNotFound when the patient has no versions.
func (s *Service) LatestVersion(ctx context.Context, patientID int64) (*Version, error) {
	return s.repo.LatestVersion(ctx, patientID)
}

func (s *Service) Search(ctx context.Context, p SearchParams) ([]*Patient, error) {
	out, err := s.repo.Search(ctx, p)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*Patient{}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Advice
// ---------------------------------------------------------------------------

// Advice runs the uploaded artifacts through the analyzer, asks for medical
// advice and stores it as a new version. Artifact and AI failures degrade to
// empty analysis and the fallback message.
func (s *Service) Advice(ctx context.Context, req AdviceRequest) (string, error) {
	p, err := s.repo.Get(ctx, req.PatientID)
	if err != nil {
		return "", err
	}
	log := s.log.With().Int64("patient_id", p.ID).Logger()

	var latestComplaints []Complaint
	if v, err := s.repo.LatestVersion(ctx, p.ID); err == nil {
		if latestComplaints, err = s.repo.ListComplaints(ctx, v.ID); err != nil {
			return "", err
		}
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	advice := adviceFallback
	if s.clinical == nil {
		log.Warn().Msg("advice requested without an analyzer")
	} else {
		cs := p.PromptSummary()
		if flag(req.IncludeLabReport) {
			cs.LabAnalysis = s.analyzeLab(ctx, log, p.LabReportURL)
		}
		if flag(req.IncludeImaging) {
			cs.ImageAnalysis = s.analyzeImaging(ctx, log, &p.Record)
		}
		if flag(req.IncludePrescription) {
			cs.PrescriptionAnalysis = s.analyzePrescription(ctx, log, p.PreviousPrescriptionURL)
		}
		cs.ChiefComplaint += complaintBlock(latestComplaints)

		advice, err = s.clinical.MedicalAdvice(ctx, cs)
		if err != nil {
			log.Error().Err(err).Msg("medical advice generation failed")
			advice = s.clinical.AdviceFallback()
		}
	}

	_, err = s.generalUpdate(ctx, p.ID, func(r *Record) error {
		r.MedicalAdvice = advice
		return nil
	}, latestComplaints)
	if err != nil {
		return "", err
	}
	return advice, nil
}

// PromptSummary is the record as prompt context.
func (r *Record) PromptSummary() ai.CaseSummary {
	return ai.CaseSummary{
		Name:              r.Name,
		Age:               strconv.Itoa(r.Age),
		Gender:            r.Gender,
		Department:        r.Department,
		ChiefComplaint:    r.ChiefComplaint,
		HPI:               r.HistoryPresentingIllness,
		PastHistory:       r.PastHistory,
		PersonalHistory:   r.PersonalHistory,
		FamilyHistory:     r.FamilyHistory,
		OBGHistory:        r.OBGHistory,
		Allergies:         r.Allergies,
		MedicationHistory: r.MedicationHistory,
		SurgicalHistory:   r.SurgicalHistory,
		BP:                r.BP,
		Pulse:             r.Pulse,
		Temperature:       r.Temperature,
		BMI:               r.BMI,
		SpO2:              r.SpO2,
	}
}

func complaintBlock(cs []Complaint) string {
	if len(cs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nDetailed Complaints:\n")
	for _, c := range cs {
		fmt.Fprintf(&b, "Complaint: %s, Frequency: %s, Severity: %s, Duration: %s\n",
			c.Complaint, c.Frequency, c.Severity, c.Duration)
	}
	return b.String()
}

// download fetches an artifact; failures are logged and reported as absent.
func (s *Service) download(ctx context.Context, log zerolog.Logger, ref *string) []byte {
	if ref == nil || *ref == "" || s.blobs == nil {
		return nil
	}
	data, _, err := s.blobs.Get(ctx, *ref)
	if err != nil {
		log.Warn().Err(err).Str("ref", *ref).Msg("artifact download failed")
		return nil
	}
	return data
}

type artifactAnalysis struct {
	text  func(ctx context.Context, text string) (string, error)
	image func(ctx context.Context, b64 string) (string, error)
}

func (s *Service) analyze(ctx context.Context, log zerolog.Logger, ref *string, a artifactAnalysis) string {
	data := s.download(ctx, log, ref)
	if data == nil {
		return ""
	}
	var (
		out string
		err error
	)
	switch {
	case textextract.IsPDF(*ref):
		text := s.extractText(ctx, data)
		if text == "" {
			return ""
		}
		out, err = a.text(ctx, text)
	case textextract.IsImage(*ref):
		out, err = a.image(ctx, base64.StdEncoding.EncodeToString(data))
	default:
		return ""
	}
	if err != nil {
		log.Warn().Err(err).Str("ref", *ref).Msg("artifact analysis failed")
		return ""
	}
	return out
}

func (s *Service) analyzeLab(ctx context.Context, log zerolog.Logger, ref *string) string {
	return s.analyze(ctx, log, ref, artifactAnalysis{
		text:  s.clinical.AnalyzeLabText,
		image: s.clinical.AnalyzeLabImage,
	})
}

func (s *Service) analyzeImaging(ctx context.Context, log zerolog.Logger, r *Record) string {
	return s.analyze(ctx, log, r.MedicalImagingURL, artifactAnalysis{
		text: s.clinical.AnalyzeImagingText,
		image: func(ctx context.Context, b64 string) (string, error) {
			return s.clinical.AnalyzeImage(ctx, b64, r.Department, r.CardiologyImagingType, r.NeurologyImagingType)
		},
	})
}

func (s *Service) analyzePrescription(ctx context.Context, log zerolog.Logger, ref *string) string {
	return s.analyze(ctx, log, ref, artifactAnalysis{
		text:  s.clinical.AnalyzePrescriptionText,
		image: s.clinical.AnalyzePrescriptionImage,
	})
}

// ParseVoiceTranscript classifies a dictated history. Failures return the
// empty structure.
func (s *Service) ParseVoiceTranscript(ctx context.Context, transcript, department string) ai.Transcript {
	if s.clinical == nil {
		return ai.EmptyTranscript()
	}
	out, err := s.clinical.ParseTranscript(ctx, transcript, department)
	if err != nil {
		s.log.Warn().Err(err).Msg("voice transcript parsing failed")
	}
	return out
}
