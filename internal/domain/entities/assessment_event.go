package entities

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// AssessmentEventType represents the lifecycle step an event reports
type AssessmentEventType string

const (
	AssessmentEventTypeSessionOpened AssessmentEventType = "assessment.session_opened"
	AssessmentEventTypeSubmitted     AssessmentEventType = "assessment.submitted"
	AssessmentEventTypeExported      AssessmentEventType = "assessment.exported"
	AssessmentEventTypeExportFailed  AssessmentEventType = "assessment.export_failed"
	AssessmentEventTypeReclassified  AssessmentEventType = "assessment.reclassified"
)

// AssessmentEvent is published on the event bus when an assessment changes state
type AssessmentEvent struct {
	ID                string              `json:"id"`
	AssessmentID      string              `json:"assessment_id"`
	JobID             string              `json:"job_id"`
	EventType         AssessmentEventType `json:"event_type"`
	Timestamp         time.Time           `json:"timestamp"`
	OverallCompliance ComplianceStatus    `json:"overall_compliance,omitempty"`
	RiskLevel         RiskLevel           `json:"risk_level,omitempty"`
	SelectedCount     int                 `json:"selected_count"`
	Detail            string              `json:"detail,omitempty"`
}

// NewAssessmentEvent snapshots the classification of record into an event
func NewAssessmentEvent(record *AssessmentRecord, eventType AssessmentEventType, detail string) *AssessmentEvent {
	return &AssessmentEvent{
		ID:                generateEventID(),
		AssessmentID:      record.ID,
		JobID:             record.JobID,
		EventType:         eventType,
		Timestamp:         time.Now().UTC(),
		OverallCompliance: record.OverallCompliance,
		RiskLevel:         record.RiskLevel,
		SelectedCount:     len(record.ComplianceIssues.SelectedIndices()),
		Detail:            detail,
	}
}

func generateEventID() string {
	return time.Now().UTC().Format("20060102150405") + "-" + randomString(8)
}

func randomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		return time.Now().Format("150405.000")
	}
	return hex.EncodeToString(bytes)[:length]
}
