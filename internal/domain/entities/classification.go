package entities

import "math"

// Thresholds on the number of selected issues
const (
	nonCompliantIssueThreshold = 10
	mediumRiskIssueThreshold   = 5
)

// Classification is the derived outcome of the selected issues
type Classification struct {
	OverallCompliance ComplianceStatus `json:"overallCompliance"`
	RiskLevel         RiskLevel        `json:"riskLevel"`
	UrgentAction      bool             `json:"urgentAction"`
	QuotationRequired bool             `json:"quotationRequired"`
}

// Summary holds the figures shown on the assessment summary cards
type Summary struct {
	SelectedCount         int `json:"selectedCount"`
	CriticalCount         int `json:"criticalCount"`
	CompliantItemCount    int `json:"compliantItemCount"`
	ComplianceRatePercent int `json:"complianceRatePercent"`
}

// Classify derives compliance and risk from the issue map. It is pure.
func Classify(issues IssueMap) Classification {
	selected, critical := issues.counts()

	compliance := CompliancePartial
	switch {
	case selected == 0:
		compliance = ComplianceCompliant
	case critical > 0 || selected > nonCompliantIssueThreshold:
		compliance = ComplianceNonCompliant
	}

	risk := RiskLow
	switch {
	case critical > 0:
		risk = RiskHigh
	case selected > mediumRiskIssueThreshold:
		risk = RiskMedium
	}

	return Classification{
		OverallCompliance: compliance,
		RiskLevel:         risk,
		UrgentAction:      risk == RiskHigh,
		QuotationRequired: compliance != ComplianceCompliant,
	}
}

// Summarize computes the summary card figures
func Summarize(issues IssueMap) Summary {
	selected, critical := issues.counts()
	compliant := IssueCount - selected

	return Summary{
		SelectedCount:         selected,
		CriticalCount:         critical,
		CompliantItemCount:    compliant,
		ComplianceRatePercent: int(math.Round(100 * float64(compliant) / float64(IssueCount))),
	}
}

func (m IssueMap) counts() (selected, critical int) {
	for _, issue := range m {
		if !issue.Selected {
			continue
		}
		selected++
		if issue.Severity == SeverityCritical {
			critical++
		}
	}
	return selected, critical
}
