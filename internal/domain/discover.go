package domain

type DiscoverCriteria struct {
	Role         Role
	Skills       string
	Availability string
}

// CandidateProfile is a discoverable user with its profile lists aggregated.
type CandidateProfile struct {
	ProfileSummary
	Skills       []string
	Interests    []string
	Availability []string
}

type Candidate struct {
	ProfileSummary
	Skills             []string           `json:"skills"`
	Interests          []string           `json:"interests"`
	Availability       []string           `json:"availability"`
	RelationshipStatus RelationshipStatus `json:"connection_status"`
}
