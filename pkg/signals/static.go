package signals

import "context"

// Static is a fixed in-memory signal source, used for local development and
// tests. It implements every provider port.
type Static struct {
	Missing         map[string][]string // step id -> missing document names
	Conflicts       map[string][]string // step id -> conflicting field names
	Hold            bool
	HoldDetail      string
	Pending         bool
	PendingDetail   string
	DocumentsErr    error
	BillingErr      error
	IdentityErr     error
	DataConflictErr error
}

func (s *Static) MissingDocuments(_ context.Context, _, _ string) (map[string][]string, error) {
	return s.Missing, s.DocumentsErr
}

func (s *Static) BillingHold(_ context.Context, _ string) (bool, string, error) {
	return s.Hold, s.HoldDetail, s.BillingErr
}

func (s *Static) IdentityPending(_ context.Context, _, _ string) (bool, string, error) {
	return s.Pending, s.PendingDetail, s.IdentityErr
}

func (s *Static) DataConflicts(_ context.Context, _, _ string) (map[string][]string, error) {
	return s.Conflicts, s.DataConflictErr
}
