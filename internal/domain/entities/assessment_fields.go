package entities

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// JSON names of the derived fields
const (
	FieldOverallCompliance = "overallCompliance"
	FieldRiskLevel         = "riskLevel"
	FieldUrgentAction      = "urgentAction"
	FieldQuotationRequired = "quotationRequired"
)

// UpdateField assigns one top-level attribute by its JSON name.
// Identity, the issue map and timestamps are not assignable here.
// The derived fields are assignable; the manual value is kept until the next
// issue change.
func (r *AssessmentRecord) UpdateField(name string, value interface{}) error {
	if err := r.assignField(name, value); err != nil {
		return err
	}
	switch name {
	case FieldOverallCompliance, FieldRiskLevel, FieldUrgentAction, FieldQuotationRequired:
		r.markOverridden(name)
	}
	return nil
}

func (r *AssessmentRecord) assignField(name string, value interface{}) error {
	if target := r.textField(name); target != nil {
		s, err := asString(name, value)
		if err != nil {
			return err
		}
		*target = s
		return nil
	}
	if target := r.flagField(name); target != nil {
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("field %q expects a boolean", name)
		}
		*target = b
		return nil
	}

	switch name {
	case "estimatedCost":
		r.EstimatedCost = coerceCost(value)
		return nil
	case "systemType":
		s, err := asString(name, value)
		if err != nil {
			return err
		}
		if !SystemType(s).Valid() {
			return fmt.Errorf("unknown system type %q", s)
		}
		r.SystemType = SystemType(s)
		return nil
	case "quotationAvailable":
		s, err := asString(name, value)
		if err != nil {
			return err
		}
		if !QuotationAvailability(s).Valid() {
			return fmt.Errorf("unknown quotation availability %q", s)
		}
		r.QuotationAvailable = QuotationAvailability(s)
		return nil
	case "plumberIndemnity":
		s, err := asString(name, value)
		if err != nil {
			return err
		}
		if !PlumberIndemnity(s).Valid() {
			return fmt.Errorf("unknown plumber indemnity %q", s)
		}
		r.PlumberIndemnity = PlumberIndemnity(s)
		return nil
	case FieldOverallCompliance:
		s, err := asString(name, value)
		if err != nil {
			return err
		}
		if !ComplianceStatus(s).Valid() {
			return fmt.Errorf("unknown compliance status %q", s)
		}
		r.OverallCompliance = ComplianceStatus(s)
		return nil
	case FieldRiskLevel:
		s, err := asString(name, value)
		if err != nil {
			return err
		}
		if !RiskLevel(s).Valid() {
			return fmt.Errorf("unknown risk level %q", s)
		}
		r.RiskLevel = RiskLevel(s)
		return nil
	case "id", "jobId", "complianceIssues", "manualOverrides", "createdAt", "updatedAt", "submittedAt":
		return fmt.Errorf("field %q cannot be assigned", name)
	}

	return fmt.Errorf("unknown field %q", name)
}

func (r *AssessmentRecord) textField(name string) *string {
	switch name {
	case "date":
		return &r.Date
	case "insuranceName":
		return &r.InsuranceName
	case "claimNumber":
		return &r.ClaimNumber
	case "clientName":
		return &r.ClientName
	case "clientSurname":
		return &r.ClientSurname
	case "propertyAddress":
		return &r.PropertyAddress
	case "contactNumber":
		return &r.ContactNumber
	case "staffName":
		return &r.StaffName
	case "staffSignature":
		return &r.StaffSignature
	case "geyserMake":
		return &r.GeyserMake
	case "geyserModel":
		return &r.GeyserModel
	case "geyserCapacity":
		return &r.GeyserCapacity
	case "serial":
		return &r.Serial
	case "code":
		return &r.Code
	case "installationDate":
		return &r.InstallationDate
	case "warrantyPeriod":
		return &r.WarrantyPeriod
	case "geyserAge":
		return &r.GeyserAge
	case "geyserLocation":
		return &r.GeyserLocation
	case "waterPressure":
		return &r.WaterPressure
	case "electricalConnection":
		return &r.ElectricalConnection
	case "workRequired":
		return &r.WorkRequired
	case "timeRequired":
		return &r.TimeRequired
	case "accessRequirements":
		return &r.AccessRequirements
	case "safetyHazards":
		return &r.SafetyHazards
	case "clientSignature":
		return &r.ClientSignature
	case "followUpDate":
		return &r.FollowUpDate
	case "additionalComments":
		return &r.AdditionalComments
	case "pipeMaterial":
		return &r.PipeMaterial
	case "pipeSize":
		return &r.PipeSize
	case "laggingCondition":
		return &r.LaggingCondition
	case "supportStructure":
		return &r.SupportStructure
	case "drainageSystem":
		return &r.DrainageSystem
	}
	return nil
}

func (r *AssessmentRecord) flagField(name string) *bool {
	switch name {
	case "isolatorSwitch":
		return &r.IsolatorSwitch
	case "earthing":
		return &r.Earthing
	case FieldUrgentAction:
		return &r.UrgentAction
	case FieldQuotationRequired:
		return &r.QuotationRequired
	case "clientInformed":
		return &r.ClientInformed
	case "followUpRequired":
		return &r.FollowUpRequired
	}
	return nil
}

func asString(name string, value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("field %q expects a string", name)
}

// coerceCost turns form input into a cost; anything unparsable becomes 0
func coerceCost(value interface{}) float64 {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
