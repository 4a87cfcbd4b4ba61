package domain

import (
	"fmt"
	"strings"
)

type Label string

const (
	LabelInterested                Label = "Interested"
	LabelNotInterested             Label = "NotInterested"
	LabelMoreInformation           Label = "MoreInformation"
	LabelHumanInterventionRequired Label = "HumanInterventionRequired"
)

// Taxonomy is the fixed, ordered set of classification labels. Order matters:
// the exclusion query and the mailbox label objects are derived from it, and
// the escalation label is last.
var Taxonomy = []Label{
	LabelInterested,
	LabelNotInterested,
	LabelMoreInformation,
	LabelHumanInterventionRequired,
}

// displayNames are the label names as they appear in the mailbox.
var displayNames = map[Label]string{
	LabelInterested:                "Interested",
	LabelNotInterested:             "Not Interested",
	LabelMoreInformation:           "More Information",
	LabelHumanInterventionRequired: "Human Intervention Required",
}

func (l Label) IsValid() bool {
	switch l {
	case LabelInterested, LabelNotInterested, LabelMoreInformation, LabelHumanInterventionRequired:
		return true
	}
	return false
}

func (l Label) String() string {
	return string(l)
}

// DisplayName returns the provider-visible name for the label.
func (l Label) DisplayName() string {
	return displayNames[l]
}

// IsEscalation reports whether the label suppresses automatic replies.
func (l Label) IsEscalation() bool {
	return l == LabelHumanInterventionRequired
}

// BuildExclusionQuery builds the query fragment that keeps already-labelled
// messages out of subsequent polls. One clause per taxonomy entry, in
// taxonomy order. The result is computed once at startup and handed to the
// poller as an immutable value.
func BuildExclusionQuery(taxonomy []Label) string {
	var b strings.Builder
	for _, l := range taxonomy {
		fmt.Fprintf(&b, ` -label:"%s"`, l.DisplayName())
	}
	return b.String()
}
