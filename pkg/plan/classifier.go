package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/probata/caseflow/pkg/models"
)

// SignalSet carries the externally supplied classification signals for one
// step. Zero value means no adverse signal. Err records a signal-provider
// failure for this step; the classifier surfaces it as a SystemError rather
// than failing the whole pass.
type SignalSet struct {
	EvidenceMissing   bool
	MissingEvidence   []string // names of the missing documents, for detail text
	BillingHold       bool
	BillingDetail     string
	IdentityPending   bool
	IdentityDetail    string
	PolicyHold        bool
	PolicyDetail      string
	MissingPermission string   // role or capability the actor lacks
	DataConflicts     []string // field names with conflicting values
	AwaitingExternal  string   // external system or party being waited on
	Err               error
}

// Classification is the classifier output for one blocked step.
type Classification struct {
	Code   models.BlockedReasonCode
	Detail string
}

// Classify selects exactly one blocked reason for a step from its unmet
// prerequisites and the supplied signal set. Candidate causes are evaluated
// in models.BlockedReasonPrecedence order and the first match wins.
func Classify(step *models.WorkflowStep, unmet []*models.WorkflowStep, signals SignalSet, now time.Time) Classification {
	for _, code := range models.BlockedReasonPrecedence {
		if detail, ok := match(code, step, unmet, signals, now); ok {
			return Classification{Code: code, Detail: detail}
		}
	}

	// A blocked step always has at least one cause in the resolver flow; this
	// branch is reachable only through direct calls with an empty cause set.
	return Classification{
		Code:   models.BlockedReasonExternalDependency,
		Detail: "step is blocked pending an unspecified external condition",
	}
}

func match(code models.BlockedReasonCode, step *models.WorkflowStep, unmet []*models.WorkflowStep, signals SignalSet, now time.Time) (string, bool) {
	switch code {
	case models.BlockedReasonSystemError:
		if signals.Err != nil {
			return fmt.Sprintf("a supporting system is unavailable: %v", signals.Err), true
		}

	case models.BlockedReasonIdentityOrAuth:
		if signals.IdentityPending {
			detail := signals.IdentityDetail
			if detail == "" {
				detail = "an identity or invitation check is outstanding"
			}

			return detail, true
		}

	case models.BlockedReasonPaymentOrBilling:
		if signals.BillingHold {
			detail := signals.BillingDetail
			if detail == "" {
				detail = "the tenant account has a billing hold"
			}

			return detail, true
		}

	case models.BlockedReasonPolicyRestriction:
		if signals.PolicyHold {
			detail := signals.PolicyDetail
			if detail == "" {
				detail = "a policy restriction applies to this step"
			}

			return detail, true
		}

	case models.BlockedReasonRolePermission:
		if signals.MissingPermission != "" {
			return fmt.Sprintf("the %s permission is required for this step", signals.MissingPermission), true
		}

	case models.BlockedReasonDataMismatch:
		if len(signals.DataConflicts) > 0 {
			return fmt.Sprintf("conflicting values recorded for: %s", strings.Join(signals.DataConflicts, ", ")), true
		}

	case models.BlockedReasonExternalDependency:
		if signals.AwaitingExternal != "" {
			return fmt.Sprintf("waiting on %s", signals.AwaitingExternal), true
		}

	case models.BlockedReasonEvidenceMissing:
		if len(unmet) > 0 {
			return fmt.Sprintf("waiting on prerequisite steps: %s", stepTitles(unmet)), true
		}

		if signals.EvidenceMissing {
			if len(signals.MissingEvidence) > 0 {
				return fmt.Sprintf("missing evidence: %s", strings.Join(signals.MissingEvidence, ", ")), true
			}

			return "required evidence has not been uploaded", true
		}

	case models.BlockedReasonDeadlineRisk:
		if step.DueDate != nil && step.DueDate.Before(now) {
			return fmt.Sprintf("the %s deadline elapsed on %s", step.DeadlineSource, step.DueDate.Format("2006-01-02")), true
		}
	}

	return "", false
}

func stepTitles(steps []*models.WorkflowStep) string {
	titles := make([]string, 0, len(steps))
	for _, step := range steps {
		titles = append(titles, step.Title)
	}

	return strings.Join(titles, ", ")
}
