package entities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestRecord(t *testing.T) *AssessmentRecord {
	t.Helper()
	return NewAssessmentRecord(JobContext{ID: "job-1"}, nil, nil, fixedNow)
}

func TestToggleIssue_CreatesModerateEntry(t *testing.T) {
	r := newTestRecord(t)

	require.NoError(t, r.ToggleIssue(4))

	assert.Equal(t, IssueAssessment{Selected: true, Severity: SeverityModerate}, r.ComplianceIssues[4])
	assert.Equal(t, CompliancePartial, r.OverallCompliance)
	assert.True(t, r.QuotationRequired)
	assert.True(t, r.Submittable())
}

func TestToggleIssue_RetainsDetailsAcrossToggleOff(t *testing.T) {
	r := newTestRecord(t)
	severity := SeverityCritical
	notes := "PRV discharging onto ceiling board"
	photos := true

	require.NoError(t, r.ToggleIssue(12))
	require.NoError(t, r.ApplyIssueUpdate(12, IssueUpdate{Severity: &severity, Notes: &notes, PhotosRequired: &photos}))
	assert.Equal(t, RiskHigh, r.RiskLevel)

	require.NoError(t, r.ToggleIssue(12))
	off := r.ComplianceIssues[12]
	assert.False(t, off.Selected)
	assert.Equal(t, SeverityCritical, off.Severity)
	assert.Equal(t, notes, off.Notes)
	assert.True(t, off.PhotosRequired)
	assert.Equal(t, ComplianceCompliant, r.OverallCompliance)
	assert.Equal(t, RiskLow, r.RiskLevel)
	assert.False(t, r.Submittable())

	require.NoError(t, r.ToggleIssue(12))
	assert.Equal(t, IssueAssessment{Selected: true, Severity: SeverityCritical, Notes: notes, PhotosRequired: true}, r.ComplianceIssues[12])
	assert.Equal(t, RiskHigh, r.RiskLevel)
	assert.True(t, r.UrgentAction)
}

func TestToggleIssue_SharedEntryAcrossCategories(t *testing.T) {
	r := newTestRecord(t)

	// index 15 is shown under Safety Systems and Electrical
	require.NoError(t, r.ToggleIssue(15))
	require.NoError(t, r.ToggleIssue(15))

	assert.Len(t, r.ComplianceIssues, 1)
	assert.False(t, r.ComplianceIssues[15].Selected)
}

func TestIssueOperations_RejectOutOfRange(t *testing.T) {
	r := newTestRecord(t)
	notes := "x"

	assert.Error(t, r.ToggleIssue(33))
	assert.Error(t, r.ToggleIssue(-1))
	assert.Error(t, r.ApplyIssueUpdate(40, IssueUpdate{Notes: &notes}))
	assert.Empty(t, r.ComplianceIssues)
}

func TestApplyIssueUpdate_CreatesDefaultEntry(t *testing.T) {
	r := newTestRecord(t)
	notes := "check before toggling"

	require.NoError(t, r.ApplyIssueUpdate(2, IssueUpdate{Notes: &notes}))

	assert.Equal(t, IssueAssessment{Severity: SeverityModerate, Notes: notes}, r.ComplianceIssues[2])
	assert.Equal(t, ComplianceCompliant, r.OverallCompliance)
}

func TestApplyIssueUpdate_RejectsUnknownSeverity(t *testing.T) {
	r := newTestRecord(t)
	bad := Severity("catastrophic")

	assert.Error(t, r.ApplyIssueUpdate(2, IssueUpdate{Severity: &bad}))
	assert.Empty(t, r.ComplianceIssues)
}

func TestRecompute_OverwritesManualOverride(t *testing.T) {
	r := newTestRecord(t)

	require.NoError(t, r.UpdateField("riskLevel", "high"))
	require.NoError(t, r.UpdateField("urgentAction", true))
	assert.Equal(t, RiskHigh, r.RiskLevel)

	require.NoError(t, r.ToggleIssue(0))
	assert.Equal(t, RiskLow, r.RiskLevel)
	assert.False(t, r.UrgentAction)
	assert.Empty(t, r.ManualOverrides)
}

func TestUpdateField_MarksDerivedOverride(t *testing.T) {
	r := newTestRecord(t)
	require.NoError(t, r.ToggleIssue(0))

	require.NoError(t, r.UpdateField("urgentAction", true))
	require.NoError(t, r.UpdateField("riskLevel", "high"))
	require.NoError(t, r.UpdateField("geyserMake", "Kwikot"))

	assert.Equal(t, []string{"riskLevel", "urgentAction"}, r.ManualOverrides)
	assert.True(t, r.Overridden(FieldRiskLevel))
	assert.False(t, r.Overridden(FieldOverallCompliance))
}

func TestReconcile_KeepsOverriddenFields(t *testing.T) {
	r := newTestRecord(t)
	require.NoError(t, r.ToggleIssue(0))
	require.NoError(t, r.UpdateField("riskLevel", "high"))

	assert.False(t, r.Reconcile())
	assert.Equal(t, RiskHigh, r.RiskLevel)

	r.QuotationRequired = false
	assert.True(t, r.Reconcile())
	assert.True(t, r.QuotationRequired)
	assert.Equal(t, RiskHigh, r.RiskLevel)
}

func TestUpdateField_ManualOverridesNotAssignable(t *testing.T) {
	r := newTestRecord(t)
	assert.Error(t, r.UpdateField("manualOverrides", []interface{}{"riskLevel"}))
	assert.Empty(t, r.ManualOverrides)
}

func TestUpdateField(t *testing.T) {
	r := newTestRecord(t)

	require.NoError(t, r.UpdateField("geyserMake", "Kwikot"))
	require.NoError(t, r.UpdateField("isolatorSwitch", true))
	require.NoError(t, r.UpdateField("systemType", "unbalanced"))
	require.NoError(t, r.UpdateField("quotationAvailable", "PENDING"))
	require.NoError(t, r.UpdateField("plumberIndemnity", "Heat pump"))
	require.NoError(t, r.UpdateField("followUpDate", nil))

	assert.Equal(t, "Kwikot", r.GeyserMake)
	assert.True(t, r.IsolatorSwitch)
	assert.Equal(t, SystemUnbalanced, r.SystemType)
	assert.Equal(t, QuotationPending, r.QuotationAvailable)
	assert.Equal(t, IndemnityHeatPump, r.PlumberIndemnity)
	assert.Equal(t, "", r.FollowUpDate)
}

func TestUpdateField_Rejections(t *testing.T) {
	r := newTestRecord(t)

	assert.Error(t, r.UpdateField("favouriteColour", "blue"))
	assert.Error(t, r.UpdateField("id", "other"))
	assert.Error(t, r.UpdateField("complianceIssues", map[string]interface{}{}))
	assert.Error(t, r.UpdateField("systemType", "sideways"))
	assert.Error(t, r.UpdateField("earthing", "yes"))
	assert.Error(t, r.UpdateField("clientName", 42.0))
}

func TestUpdateField_EstimatedCostCoercion(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  float64
	}{
		{"float", 1250.5, 1250.5},
		{"numeric string", " 899.99 ", 899.99},
		{"json number", json.Number("300"), 300},
		{"garbage string", "about a grand", 0},
		{"empty string", "", 0},
		{"boolean", true, 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRecord(t)
			r.EstimatedCost = 77
			require.NoError(t, r.UpdateField("estimatedCost", tt.value))
			assert.Equal(t, tt.want, r.EstimatedCost)
		})
	}
}

func TestClone_IsIndependent(t *testing.T) {
	r := newTestRecord(t)
	require.NoError(t, r.ToggleIssue(1))
	submitted := fixedNow
	r.SubmittedAt = &submitted

	require.NoError(t, r.UpdateField("riskLevel", "high"))

	clone := r.Clone()
	clone.ManualOverrides[0] = "urgentAction"
	require.NoError(t, clone.ToggleIssue(2))
	*clone.SubmittedAt = fixedNow.Add(time.Hour)

	assert.Equal(t, []string{"riskLevel"}, r.ManualOverrides)
	assert.Len(t, r.ComplianceIssues, 1)
	assert.Equal(t, fixedNow, *r.SubmittedAt)
}

func TestValidate(t *testing.T) {
	r := newTestRecord(t)
	assert.NoError(t, r.Validate())

	r.ComplianceIssues[33] = IssueAssessment{Selected: true, Severity: SeverityMinor}
	assert.Error(t, r.Validate())

	delete(r.ComplianceIssues, 33)
	r.PlumberIndemnity = "Gas geyser"
	assert.Error(t, r.Validate())
}

func TestAssessmentRecord_JSONRoundTripKeepsIssueKeys(t *testing.T) {
	r := newTestRecord(t)
	require.NoError(t, r.ToggleIssue(31))

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"complianceIssues":{"31":{"selected":true,"severity":"moderate","notes":"","photosRequired":false}}`)

	var decoded AssessmentRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.ComplianceIssues, decoded.ComplianceIssues)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "desco.pdf", ExportFilename("Discovery Insure Ltd"))
	assert.Equal(t, "desco.pdf", ExportFilename("DISCOVERY"))
	assert.Equal(t, "Noncompliance.pdf", ExportFilename("Outsurance"))
	assert.Equal(t, "Noncompliance.pdf", ExportFilename(""))
}

func TestNewAssessmentEvent(t *testing.T) {
	r := newTestRecord(t)
	require.NoError(t, r.ToggleIssue(3))

	event := NewAssessmentEvent(r, AssessmentEventTypeSubmitted, "")
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, r.ID, event.AssessmentID)
	assert.Equal(t, "job-1", event.JobID)
	assert.Equal(t, 1, event.SelectedCount)
	assert.Equal(t, CompliancePartial, event.OverallCompliance)
}
