// Package signals defines the read-only collaborator ports supplying
// blocked-reason classification hints, and a fetcher combining them into the
// per-step signal sets the resolver consumes.
package signals

import (
	"context"
	"log/slog"
	"time"

	"github.com/probata/caseflow/pkg/plan"
)

// DocumentProvider reports which required documents are missing per step.
type DocumentProvider interface {
	MissingDocuments(ctx context.Context, tenantID, caseID string) (map[string][]string, error)
}

// BillingProvider reports whether the tenant account carries a billing hold.
type BillingProvider interface {
	BillingHold(ctx context.Context, tenantID string) (bool, string, error)
}

// IdentityProvider reports whether an identity or invitation check is
// outstanding for the case.
type IdentityProvider interface {
	IdentityPending(ctx context.Context, tenantID, caseID string) (bool, string, error)
}

// ConflictProvider reports explicit data-conflict flags per step.
type ConflictProvider interface {
	DataConflicts(ctx context.Context, tenantID, caseID string) (map[string][]string, error)
}

// Fetcher queries every configured provider for one case and assembles the
// per-step signal sets. Provider failures are best-effort hints: a failing
// provider marks the affected steps with the error instead of failing the
// whole recalculation.
type Fetcher struct {
	documents DocumentProvider
	billing   BillingProvider
	identity  IdentityProvider
	conflicts ConflictProvider
	timeout   time.Duration
	logger    *slog.Logger
}

// NewFetcher creates a fetcher. Any provider may be nil, in which case its
// signal is simply absent.
func NewFetcher(
	documents DocumentProvider,
	billing BillingProvider,
	identity IdentityProvider,
	conflicts ConflictProvider,
	timeout time.Duration,
	logger *slog.Logger,
) *Fetcher {
	return &Fetcher{
		documents: documents,
		billing:   billing,
		identity:  identity,
		conflicts: conflicts,
		timeout:   timeout,
		logger:    logger,
	}
}

// Fetch returns the signal set per step id for one case. Case-wide signals
// (billing, identity) are attached to every listed step id.
func (f *Fetcher) Fetch(ctx context.Context, tenantID, caseID string, stepIDs []string) map[string]plan.SignalSet {
	sets := make(map[string]plan.SignalSet, len(stepIDs))
	for _, id := range stepIDs {
		sets[id] = plan.SignalSet{}
	}

	update := func(id string, apply func(*plan.SignalSet)) {
		set := sets[id]
		apply(&set)
		sets[id] = set
	}

	markAll := func(apply func(*plan.SignalSet)) {
		for _, id := range stepIDs {
			update(id, apply)
		}
	}

	if f.documents != nil {
		missing, err := call(ctx, f.timeout, func(ctx context.Context) (map[string][]string, error) {
			return f.documents.MissingDocuments(ctx, tenantID, caseID)
		})
		if err != nil {
			f.logger.WarnContext(ctx, "document provider unavailable", "case_id", caseID, "error", err)
			markAll(func(s *plan.SignalSet) { s.Err = err })
		} else {
			for id, docs := range missing {
				docs := docs
				update(id, func(s *plan.SignalSet) {
					s.EvidenceMissing = true
					s.MissingEvidence = docs
				})
			}
		}
	}

	if f.billing != nil {
		type billingResult struct {
			hold   bool
			detail string
		}

		result, err := call(ctx, f.timeout, func(ctx context.Context) (billingResult, error) {
			hold, detail, err := f.billing.BillingHold(ctx, tenantID)

			return billingResult{hold: hold, detail: detail}, err
		})

		switch {
		case err != nil:
			f.logger.WarnContext(ctx, "billing provider unavailable", "tenant_id", tenantID, "error", err)
			markAll(func(s *plan.SignalSet) { s.Err = err })
		case result.hold:
			markAll(func(s *plan.SignalSet) {
				s.BillingHold = true
				s.BillingDetail = result.detail
			})
		}
	}

	if f.identity != nil {
		type identityResult struct {
			pending bool
			detail  string
		}

		result, err := call(ctx, f.timeout, func(ctx context.Context) (identityResult, error) {
			pending, detail, err := f.identity.IdentityPending(ctx, tenantID, caseID)

			return identityResult{pending: pending, detail: detail}, err
		})

		switch {
		case err != nil:
			f.logger.WarnContext(ctx, "identity provider unavailable", "case_id", caseID, "error", err)
			markAll(func(s *plan.SignalSet) { s.Err = err })
		case result.pending:
			markAll(func(s *plan.SignalSet) {
				s.IdentityPending = true
				s.IdentityDetail = result.detail
			})
		}
	}

	if f.conflicts != nil {
		conflicts, err := call(ctx, f.timeout, func(ctx context.Context) (map[string][]string, error) {
			return f.conflicts.DataConflicts(ctx, tenantID, caseID)
		})
		if err != nil {
			f.logger.WarnContext(ctx, "conflict provider unavailable", "case_id", caseID, "error", err)
			markAll(func(s *plan.SignalSet) { s.Err = err })
		} else {
			for id, fields := range conflicts {
				fields := fields
				update(id, func(s *plan.SignalSet) { s.DataConflicts = fields })
			}
		}
	}

	return sets
}

// call runs one provider query under the fetcher's timeout.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return fn(ctx)
}
