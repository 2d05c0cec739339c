package xes

import "time"

// Standard extension keys.
const (
	KeyConceptName         = "concept:name"
	KeyTimeTimestamp       = "time:timestamp"
	KeyLifecycleTransition = "lifecycle:transition"
	KeyOrgResource         = "org:resource"
)

// ConceptExtension reads the concept extension.
type ConceptExtension struct{}

// TimeExtension reads the time extension.
type TimeExtension struct{}

// LifecycleExtension reads the lifecycle extension.
type LifecycleExtension struct{}

// OrgExtension reads the organizational extension.
type OrgExtension struct{}

var (
	Concept   ConceptExtension
	Time      TimeExtension
	Lifecycle LifecycleExtension
	Org       OrgExtension
)

// ExtractName returns the concept:name of e.
func (ConceptExtension) ExtractName(e Attributable) (string, bool) {
	return extractString(e, KeyConceptName)
}

// ExtractTimestamp returns the time:timestamp of e. A timestamp stored under
// a non-date type is treated as absent.
func (TimeExtension) ExtractTimestamp(e Attributable) (time.Time, bool) {
	a, ok := e.Attributes().Get(KeyTimeTimestamp)
	if !ok || a.Type != TypeDate {
		return time.Time{}, false
	}
	return a.Time, true
}

// ExtractTransition returns the lifecycle:transition of e.
func (LifecycleExtension) ExtractTransition(e Attributable) (string, bool) {
	return extractString(e, KeyLifecycleTransition)
}

// ExtractResource returns the org:resource of e.
func (OrgExtension) ExtractResource(e Attributable) (string, bool) {
	return extractString(e, KeyOrgResource)
}

func extractString(e Attributable, key string) (string, bool) {
	a, ok := e.Attributes().Get(key)
	if !ok {
		return "", false
	}
	return a.String(), true
}
