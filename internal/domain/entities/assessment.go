package entities

import (
	"fmt"
	"sort"
	"time"
)

// Severity classifies a single selected issue
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityModerate Severity = "moderate"
	SeverityMinor    Severity = "minor"
)

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityModerate, SeverityMinor:
		return true
	}
	return false
}

// ComplianceStatus is the aggregate compliance classification
type ComplianceStatus string

const (
	ComplianceCompliant    ComplianceStatus = "compliant"
	ComplianceNonCompliant ComplianceStatus = "non-compliant"
	CompliancePartial      ComplianceStatus = "partial"
)

// Valid reports whether c is a known compliance status
func (c ComplianceStatus) Valid() bool {
	switch c {
	case ComplianceCompliant, ComplianceNonCompliant, CompliancePartial:
		return true
	}
	return false
}

// RiskLevel is the aggregate risk classification
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether r is a known risk level
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// SystemType describes the geyser's pressure system
type SystemType string

const (
	SystemBalanced   SystemType = "balanced"
	SystemUnbalanced SystemType = "unbalanced"
	SystemUnknown    SystemType = "unknown"
)

// Valid reports whether s is a known system type
func (s SystemType) Valid() bool {
	switch s {
	case SystemBalanced, SystemUnbalanced, SystemUnknown:
		return true
	}
	return false
}

// QuotationAvailability answers whether a quotation can be supplied. Empty means unanswered.
type QuotationAvailability string

const (
	QuotationUnanswered QuotationAvailability = ""
	QuotationYes        QuotationAvailability = "YES"
	QuotationNo         QuotationAvailability = "NO"
	QuotationPending    QuotationAvailability = "PENDING"
)

// Valid reports whether q is a known answer
func (q QuotationAvailability) Valid() bool {
	switch q {
	case QuotationUnanswered, QuotationYes, QuotationNo, QuotationPending:
		return true
	}
	return false
}

// PlumberIndemnity is the indemnity category chosen by the plumber. Empty means unset.
type PlumberIndemnity string

const (
	IndemnityUnset          PlumberIndemnity = ""
	IndemnityElectricGeyser PlumberIndemnity = "Electric geyser"
	IndemnitySolarGeyser    PlumberIndemnity = "Solar geyser"
	IndemnityHeatPump       PlumberIndemnity = "Heat pump"
	IndemnityPipeRepairs    PlumberIndemnity = "Pipe Repairs"
	IndemnityAssessment     PlumberIndemnity = "Assessment"
)

// Valid reports whether p is a known indemnity category
func (p PlumberIndemnity) Valid() bool {
	switch p {
	case IndemnityUnset, IndemnityElectricGeyser, IndemnitySolarGeyser, IndemnityHeatPump, IndemnityPipeRepairs, IndemnityAssessment:
		return true
	}
	return false
}

// IssueAssessment is the inspector's finding for one catalog issue.
// Deselecting keeps the entry so reselecting restores its details.
type IssueAssessment struct {
	Selected       bool     `json:"selected"`
	Severity       Severity `json:"severity"`
	Notes          string   `json:"notes"`
	PhotosRequired bool     `json:"photosRequired"`
}

// IssueMap holds findings keyed by catalog index. Keys are the indices ever touched.
type IssueMap map[int]IssueAssessment

// SelectedIndices returns the selected issue indices in ascending order
func (m IssueMap) SelectedIndices() []int {
	indices := make([]int, 0, len(m))
	for index, issue := range m {
		if issue.Selected {
			indices = append(indices, index)
		}
	}
	sort.Ints(indices)
	return indices
}

// Clone returns an independent copy
func (m IssueMap) Clone() IssueMap {
	out := make(IssueMap, len(m))
	for index, issue := range m {
		out[index] = issue
	}
	return out
}

func defaultIssueAssessment() IssueAssessment {
	return IssueAssessment{Severity: SeverityModerate}
}

// AssessmentRecord is one non-compliance assessment of a geyser installation
type AssessmentRecord struct {
	ID    string `json:"id"`
	JobID string `json:"jobId"`

	// Basic information
	Date            string `json:"date"`
	InsuranceName   string `json:"insuranceName"`
	ClaimNumber     string `json:"claimNumber"`
	ClientName      string `json:"clientName"`
	ClientSurname   string `json:"clientSurname"`
	PropertyAddress string `json:"propertyAddress"`
	ContactNumber   string `json:"contactNumber"`
	StaffName       string `json:"staffName"`
	StaffSignature  string `json:"staffSignature"`

	// Geyser information
	GeyserMake       string `json:"geyserMake"`
	GeyserModel      string `json:"geyserModel"`
	GeyserCapacity   string `json:"geyserCapacity"`
	Serial           string `json:"serial"`
	Code             string `json:"code"`
	InstallationDate string `json:"installationDate"`
	WarrantyPeriod   string `json:"warrantyPeriod"`
	GeyserAge        string `json:"geyserAge"`
	GeyserLocation   string `json:"geyserLocation"`

	// System information
	WaterPressure        string     `json:"waterPressure"`
	SystemType           SystemType `json:"systemType"`
	ElectricalConnection string     `json:"electricalConnection"`
	IsolatorSwitch       bool       `json:"isolatorSwitch"`
	Earthing             bool       `json:"earthing"`

	ComplianceIssues IssueMap `json:"complianceIssues"`

	// Derived from ComplianceIssues on every issue change
	OverallCompliance ComplianceStatus `json:"overallCompliance"`
	RiskLevel         RiskLevel        `json:"riskLevel"`
	UrgentAction      bool             `json:"urgentAction"`
	QuotationRequired bool             `json:"quotationRequired"`

	// JSON names of derived fields set by hand since the last issue change
	ManualOverrides []string `json:"manualOverrides,omitempty"`

	QuotationAvailable QuotationAvailability `json:"quotationAvailable"`

	// Plumber assessment
	PlumberIndemnity PlumberIndemnity `json:"plumberIndemnity"`
	WorkRequired     string           `json:"workRequired"`
	EstimatedCost    float64          `json:"estimatedCost"`
	TimeRequired     string           `json:"timeRequired"`

	// Additional information
	AccessRequirements string `json:"accessRequirements"`
	SafetyHazards      string `json:"safetyHazards"`
	ClientInformed     bool   `json:"clientInformed"`
	ClientSignature    string `json:"clientSignature"`
	FollowUpRequired   bool   `json:"followUpRequired"`
	FollowUpDate       string `json:"followUpDate"`
	AdditionalComments string `json:"additionalComments"`

	// Technical details
	PipeMaterial     string `json:"pipeMaterial"`
	PipeSize         string `json:"pipeSize"`
	LaggingCondition string `json:"laggingCondition"`
	SupportStructure string `json:"supportStructure"`
	DrainageSystem   string `json:"drainageSystem"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

// Recompute overwrites the four derived fields from the issue map and drops
// any manual overrides. It runs after every issue change.
func (r *AssessmentRecord) Recompute() Classification {
	c := Classify(r.ComplianceIssues)
	r.OverallCompliance = c.OverallCompliance
	r.RiskLevel = c.RiskLevel
	r.UrgentAction = c.UrgentAction
	r.QuotationRequired = c.QuotationRequired
	r.ManualOverrides = nil
	return c
}

// Reconcile re-derives the fields that were not set by hand and reports
// whether anything changed. Overrides survive until the next issue change.
func (r *AssessmentRecord) Reconcile() bool {
	before := r.Classification()
	c := Classify(r.ComplianceIssues)
	if !r.Overridden(FieldOverallCompliance) {
		r.OverallCompliance = c.OverallCompliance
	}
	if !r.Overridden(FieldRiskLevel) {
		r.RiskLevel = c.RiskLevel
	}
	if !r.Overridden(FieldUrgentAction) {
		r.UrgentAction = c.UrgentAction
	}
	if !r.Overridden(FieldQuotationRequired) {
		r.QuotationRequired = c.QuotationRequired
	}
	return r.Classification() != before
}

// Overridden reports whether a derived field holds a manual value
func (r *AssessmentRecord) Overridden(field string) bool {
	for _, name := range r.ManualOverrides {
		if name == field {
			return true
		}
	}
	return false
}

func (r *AssessmentRecord) markOverridden(field string) {
	if r.Overridden(field) {
		return
	}
	r.ManualOverrides = append(r.ManualOverrides, field)
	sort.Strings(r.ManualOverrides)
}

// Classification returns the derived fields as currently stored
func (r *AssessmentRecord) Classification() Classification {
	return Classification{
		OverallCompliance: r.OverallCompliance,
		RiskLevel:         r.RiskLevel,
		UrgentAction:      r.UrgentAction,
		QuotationRequired: r.QuotationRequired,
	}
}

// Summary returns the summary card figures for the current issue map
func (r *AssessmentRecord) Summary() Summary {
	return Summarize(r.ComplianceIssues)
}

// Submittable reports whether at least one issue is selected
func (r *AssessmentRecord) Submittable() bool {
	for _, issue := range r.ComplianceIssues {
		if issue.Selected {
			return true
		}
	}
	return false
}

// ToggleIssue flips selection of index, creating a moderate entry on first touch
func (r *AssessmentRecord) ToggleIssue(index int) error {
	if !ValidIssueIndex(index) {
		return fmt.Errorf("issue index %d is out of range [0,%d]", index, IssueCount-1)
	}
	issue, ok := r.ComplianceIssues[index]
	if !ok {
		issue = defaultIssueAssessment()
	}
	issue.Selected = !issue.Selected
	r.setIssue(index, issue)
	return nil
}

// ApplyIssueUpdate merges the non-nil fields of update into the entry for index
func (r *AssessmentRecord) ApplyIssueUpdate(index int, update IssueUpdate) error {
	if !ValidIssueIndex(index) {
		return fmt.Errorf("issue index %d is out of range [0,%d]", index, IssueCount-1)
	}
	if update.Severity != nil && !update.Severity.Valid() {
		return fmt.Errorf("unknown severity %q", *update.Severity)
	}

	issue, ok := r.ComplianceIssues[index]
	if !ok {
		issue = defaultIssueAssessment()
	}
	if update.Selected != nil {
		issue.Selected = *update.Selected
	}
	if update.Severity != nil {
		issue.Severity = *update.Severity
	}
	if update.Notes != nil {
		issue.Notes = *update.Notes
	}
	if update.PhotosRequired != nil {
		issue.PhotosRequired = *update.PhotosRequired
	}
	r.setIssue(index, issue)
	return nil
}

func (r *AssessmentRecord) setIssue(index int, issue IssueAssessment) {
	if r.ComplianceIssues == nil {
		r.ComplianceIssues = make(IssueMap)
	}
	r.ComplianceIssues[index] = issue
	r.Recompute()
}

// IssueUpdate carries a partial change to one IssueAssessment
type IssueUpdate struct {
	Selected       *bool     `json:"selected,omitempty"`
	Severity       *Severity `json:"severity,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	PhotosRequired *bool     `json:"photosRequired,omitempty"`
}

// Clone returns a deep copy safe to hand to another goroutine
func (r *AssessmentRecord) Clone() *AssessmentRecord {
	out := *r
	out.ComplianceIssues = r.ComplianceIssues.Clone()
	if r.ManualOverrides != nil {
		out.ManualOverrides = append([]string(nil), r.ManualOverrides...)
	}
	if r.SubmittedAt != nil {
		submitted := *r.SubmittedAt
		out.SubmittedAt = &submitted
	}
	return &out
}

// Validate checks enum values and issue indices of a record received from outside
func (r *AssessmentRecord) Validate() error {
	for index, issue := range r.ComplianceIssues {
		if !ValidIssueIndex(index) {
			return fmt.Errorf("issue index %d is out of range [0,%d]", index, IssueCount-1)
		}
		if issue.Severity != "" && !issue.Severity.Valid() {
			return fmt.Errorf("issue %d has unknown severity %q", index, issue.Severity)
		}
	}
	if r.SystemType != "" && !r.SystemType.Valid() {
		return fmt.Errorf("unknown system type %q", r.SystemType)
	}
	if !r.QuotationAvailable.Valid() {
		return fmt.Errorf("unknown quotation availability %q", r.QuotationAvailable)
	}
	if !r.PlumberIndemnity.Valid() {
		return fmt.Errorf("unknown plumber indemnity %q", r.PlumberIndemnity)
	}
	return nil
}
