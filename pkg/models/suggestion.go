package models

// RelationshipSuggestion is a proposed parent -> derivative link produced by
// the suggestion engine. Suggestions are surfaced for explicit user
// acceptance; accepting one goes back through edge validation, which may
// still reject it.
type RelationshipSuggestion struct {
	SourceID         string           `json:"source_id"`
	TargetID         string           `json:"target_id"`
	RelationshipType RelationshipType `json:"relationship_type"`
	Confidence       float64          `json:"confidence"`
}

// SuggestionListResponse is the API response for relationship suggestions
type SuggestionListResponse struct {
	ContentID   string                   `json:"content_id"`
	Threshold   float64                  `json:"threshold"`
	Suggestions []RelationshipSuggestion `json:"suggestions"`
}
