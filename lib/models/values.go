package models

type EventType string

const (
	EventNone     EventType = ""
	EventOpen     EventType = "OPEN"
	EventIncrease EventType = "INCREASE"
)

// ExtractionResult is what the extractor (or the fetcher on its behalf) makes of
// one class page. A nil Remaining with a Diagnostic is a failure; a zero
// Remaining is a full class.
type ExtractionResult struct {
	Remaining *int

	ClassName          *string
	ClassCode          *string
	RegistrationCode   *string
	Semester           *string
	Schedule           *string
	RegistrationStatus *string

	Diagnostic string
}

func (r ExtractionResult) OK() bool {
	return r.Diagnostic == "" && r.Remaining != nil
}

// FailedExtraction is the all-nil result carrying only a diagnostic.
func FailedExtraction(diagnostic string) ExtractionResult {
	return ExtractionResult{Diagnostic: diagnostic}
}
