package models

import "strings"

// Enumerations shared by the schema, the analyzer prompt and response validation.

type JobStatus string

const (
	JobStatusActive             JobStatus = "Active"
	JobStatusExpiredUnreachable JobStatus = "Expired - Unreachable"
	JobStatusExpiredTimeBased   JobStatus = "Expired - Time Based"
)

type TrackedJobStatus string

const (
	TrackedSaved             TrackedJobStatus = "SAVED"
	TrackedApplied           TrackedJobStatus = "APPLIED"
	TrackedInterviewing      TrackedJobStatus = "INTERVIEWING"
	TrackedOfferNegotiations TrackedJobStatus = "OFFER_NEGOTIATIONS"
	TrackedOfferAccepted     TrackedJobStatus = "OFFER_ACCEPTED"
	TrackedRejected          TrackedJobStatus = "REJECTED"
	TrackedWithdrawn         TrackedJobStatus = "WITHDRAWN"
	TrackedExpired           TrackedJobStatus = "EXPIRED"
)

var TrackedJobStatuses = []TrackedJobStatus{
	TrackedSaved,
	TrackedApplied,
	TrackedInterviewing,
	TrackedOfferNegotiations,
	TrackedOfferAccepted,
	TrackedRejected,
	TrackedWithdrawn,
	TrackedExpired,
}

// TerminalTrackedStatuses are never touched by the staleness sweep.
var TerminalTrackedStatuses = []TrackedJobStatus{
	TrackedExpired,
	TrackedRejected,
	TrackedOfferAccepted,
	TrackedWithdrawn,
}

func (s TrackedJobStatus) Valid() bool {
	for _, v := range TrackedJobStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s TrackedJobStatus) Terminal() bool {
	for _, v := range TerminalTrackedStatuses {
		if v == s {
			return true
		}
	}
	return false
}

var JobModalities = []string{"On-site", "Remote", "Hybrid"}

var JobLevels = []string{"Entry", "Mid", "Senior", "Staff", "Principal", "Manager", "Director", "VP", "C-Suite"}

var WorkStyles = []string{"Remote", "Hybrid", "On-site", "Flexible"}

var CompanySizes = []string{"Startup", "Small", "Medium", "Large", "Enterprise"}

// OneOf reports whether v is in set, returning the canonical spelling on a
// case-insensitive match.
func OneOf(set []string, v string) (string, bool) {
	for _, s := range set {
		if strings.EqualFold(s, strings.TrimSpace(v)) {
			return s, true
		}
	}
	return "", false
}
