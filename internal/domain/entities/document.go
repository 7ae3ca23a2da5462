package entities

import "strings"

const (
	// DiscoveryDocumentFilename is used when the insurer is Discovery
	DiscoveryDocumentFilename = "desco.pdf"

	// DefaultDocumentFilename is used for every other insurer
	DefaultDocumentFilename = "Noncompliance.pdf"
)

// ExportedDocument is a rendered assessment ready for download
type ExportedDocument struct {
	AssessmentID string
	Filename     string
	ContentType  string
	Data         []byte
}

// ExportFilename picks the download filename from the insurance name
func ExportFilename(insuranceName string) string {
	if strings.Contains(strings.ToLower(insuranceName), "discovery") {
		return DiscoveryDocumentFilename
	}
	return DefaultDocumentFilename
}
