package entities

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentIDPrefix prefixes generated assessment ids
const AssessmentIDPrefix = "noncompliance-"

// JobContext is the host application's job record. Older job payloads use
// PascalCase keys; both spellings are accepted and the camelCase one wins.
type JobContext struct {
	ID                string `json:"id"`
	Title             string `json:"title,omitempty"`
	Underwriter       string `json:"underwriter,omitempty"`
	LegacyUnderwriter string `json:"Underwriter,omitempty"`
	ClaimNo           string `json:"claimNo,omitempty"`
	LegacyClaimNo     string `json:"ClaimNo,omitempty"`
	InsuredName       string `json:"insuredName,omitempty"`
	LegacyInsuredName string `json:"InsuredName,omitempty"`
	RiskAddress       string `json:"riskAddress,omitempty"`
}

// InsuranceName returns the underwriter, preferring the canonical field
func (j JobContext) InsuranceName() string {
	return firstNonEmpty(j.Underwriter, j.LegacyUnderwriter)
}

// ClaimNumber returns the claim number, preferring the canonical field
func (j JobContext) ClaimNumber() string {
	return firstNonEmpty(j.ClaimNo, j.LegacyClaimNo)
}

// ClientName returns the insured name, preferring the canonical field
func (j JobContext) ClientName() string {
	return firstNonEmpty(j.InsuredName, j.LegacyInsuredName)
}

// StaffContext is the staff member assigned to the job
type StaffContext struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// NewAssessmentRecord opens a record for job. Values in existing win; any field
// existing leaves empty falls back to the job/staff seed or the default.
// The derived fields are computed from the issue map before returning.
func NewAssessmentRecord(job JobContext, staff *StaffContext, existing *AssessmentRecord, now time.Time) *AssessmentRecord {
	var r *AssessmentRecord
	if existing != nil {
		r = existing.Clone()
	} else {
		r = &AssessmentRecord{}
	}

	staffName := ""
	if staff != nil {
		staffName = staff.Name
	}

	if r.ID == "" {
		r.ID = AssessmentIDPrefix + uuid.New().String()
	}
	r.JobID = job.ID
	r.Date = firstNonEmpty(r.Date, now.Format("2006-01-02"))
	r.InsuranceName = firstNonEmpty(r.InsuranceName, job.InsuranceName())
	r.ClaimNumber = firstNonEmpty(r.ClaimNumber, job.ClaimNumber())
	r.ClientName = firstNonEmpty(r.ClientName, job.ClientName())
	r.PropertyAddress = firstNonEmpty(r.PropertyAddress, job.RiskAddress)
	r.StaffName = firstNonEmpty(r.StaffName, staffName)

	if r.SystemType == "" {
		r.SystemType = SystemUnknown
	}
	if r.ComplianceIssues == nil {
		r.ComplianceIssues = make(IssueMap)
	}
	for index, issue := range r.ComplianceIssues {
		if issue.Severity == "" {
			issue.Severity = SeverityModerate
			r.ComplianceIssues[index] = issue
		}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	r.Reconcile()
	return r
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
