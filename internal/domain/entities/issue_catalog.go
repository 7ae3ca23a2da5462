package entities

// IssueCount is the number of fixed inspection checkpoints
const IssueCount = 33

// IssueDefinition is one fixed inspection checkpoint
type IssueDefinition struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
}

// IssueCategory groups issue indices for display. Membership may overlap.
type IssueCategory struct {
	Name          string `json:"name"`
	MemberIndices []int  `json:"memberIndices"`
}

var issueDescriptions = [IssueCount]string{
	"Cold vacuum breaker (Must be 300mm above geyser)",
	"Hot vacuum breaker (Must be 300mm above geyser and 430mm away)",
	"Vacuum breaker not over drip tray",
	"Safety valve not functioning properly",
	"Pipes not copper - incorrect material used",
	"Geyser brackets missing or inadequate",
	"90 degree short radius bend installed",
	"Pipe run exceeds 4m without upsizing to 28mm",
	"Missing 1m copper from hot water outlet",
	"Missing 1m copper from cold water inlet",
	"Pipes in roof not secured properly",
	"PRV overflow pipe not adequately secured",
	"PRV not positioned over drip tray",
	"System unbalanced - pressure issues",
	"No shut off valve to the geyser",
	"No electrical isolator switch installed",
	"Pipes not electrically bonded correctly",
	"Non return valve missing on unbalanced system",
	"Tray overflow not compliant with regulations",
	"Overflow pipe not PVC material",
	"Missing brackets every 1m on overflow pipe",
	"90 degree short radius bend on overflow",
	"No fall on the overflow outlet pipe",
	"Inadequate geyser support structure",
	"No lagging on hot water pipes",
	"Lagging is split or damaged",
	"Incorrect type of lagging material",
	"Inadequate geyser access for maintenance",
	"Roof sheets/tiles obstruct geyser replacement",
	"Trap door located in bathroom (non-compliant)",
	"Trap door requires enlargement for access",
	"Incorrect pipe type in ceiling (not copper)",
	"Exposed pipes not properly secured or lagged",
}

// Index 15 is listed under both Safety Systems and Electrical.
var issueCategories = []IssueCategory{
	{Name: "Vacuum Breakers", MemberIndices: []int{0, 1, 2}},
	{Name: "Safety Systems", MemberIndices: []int{3, 12, 14, 15}},
	{Name: "Pipe Materials & Installation", MemberIndices: []int{4, 5, 6, 7, 8, 9, 10, 31, 32}},
	{Name: "Overflow & Drainage", MemberIndices: []int{11, 18, 19, 20, 21, 22}},
	{Name: "System Balance", MemberIndices: []int{13, 17}},
	{Name: "Electrical", MemberIndices: []int{15, 16}},
	{Name: "Insulation & Lagging", MemberIndices: []int{23, 24, 25, 26}},
	{Name: "Access & Maintenance", MemberIndices: []int{27, 28, 29, 30}},
}

// Issues returns the catalog in index order
func Issues() []IssueDefinition {
	out := make([]IssueDefinition, IssueCount)
	for i, description := range issueDescriptions {
		out[i] = IssueDefinition{Index: i, Description: description}
	}
	return out
}

// IssueCategories returns the display grouping in its fixed order.
// The returned slices are copies.
func IssueCategories() []IssueCategory {
	out := make([]IssueCategory, len(issueCategories))
	for i, category := range issueCategories {
		members := make([]int, len(category.MemberIndices))
		copy(members, category.MemberIndices)
		out[i] = IssueCategory{Name: category.Name, MemberIndices: members}
	}
	return out
}

// IssueDescription returns the description for index, or false when out of range
func IssueDescription(index int) (string, bool) {
	if !ValidIssueIndex(index) {
		return "", false
	}
	return issueDescriptions[index], true
}

// ValidIssueIndex reports whether index is inside the catalog
func ValidIssueIndex(index int) bool {
	return index >= 0 && index < IssueCount
}

// CategoriesForIssue lists the names of every category containing index
func CategoriesForIssue(index int) []string {
	var names []string
	for _, category := range issueCategories {
		for _, member := range category.MemberIndices {
			if member == index {
				names = append(names, category.Name)
				break
			}
		}
	}
	return names
}
