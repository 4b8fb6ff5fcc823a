package signals

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestFetcher_AssemblesPerStepSignals(t *testing.T) {
	source := &Static{
		Missing:       map[string][]string{"step-1": {"death certificate"}},
		Conflicts:     map[string][]string{"step-2": {"date_of_death"}},
		Hold:          true,
		HoldDetail:    "subscription payment failed",
		Pending:       true,
		PendingDetail: "executor invitation outstanding",
	}

	fetcher := NewFetcher(source, source, source, source, time.Second, testLogger())

	sets := fetcher.Fetch(context.Background(), "tenant-1", "case-1", []string{"step-1", "step-2"})

	require.Len(t, sets, 2)

	assert.True(t, sets["step-1"].EvidenceMissing)
	assert.Equal(t, []string{"death certificate"}, sets["step-1"].MissingEvidence)
	assert.False(t, sets["step-2"].EvidenceMissing)

	assert.Equal(t, []string{"date_of_death"}, sets["step-2"].DataConflicts)

	// Case-wide signals land on every step.
	for _, id := range []string{"step-1", "step-2"} {
		assert.True(t, sets[id].BillingHold, id)
		assert.Equal(t, "subscription payment failed", sets[id].BillingDetail, id)
		assert.True(t, sets[id].IdentityPending, id)
	}
}

func TestFetcher_NoProvidersYieldsEmptySets(t *testing.T) {
	fetcher := NewFetcher(nil, nil, nil, nil, time.Second, testLogger())

	sets := fetcher.Fetch(context.Background(), "tenant-1", "case-1", []string{"step-1"})

	require.Len(t, sets, 1)
	assert.Zero(t, sets["step-1"])
}

func TestFetcher_ProviderFailureMarksSteps(t *testing.T) {
	vaultDown := errors.New("document vault timeout")
	source := &Static{DocumentsErr: vaultDown, Hold: true}

	fetcher := NewFetcher(source, source, source, source, time.Second, testLogger())

	sets := fetcher.Fetch(context.Background(), "tenant-1", "case-1", []string{"step-1"})

	// The failing provider taints the steps; healthy providers still apply.
	assert.ErrorIs(t, sets["step-1"].Err, vaultDown)
	assert.True(t, sets["step-1"].BillingHold)
}

func TestConfigSource_EmptyPath(t *testing.T) {
	source, err := NewConfigSource("")
	require.NoError(t, err)

	missing, err := source.MissingDocuments(context.Background(), "tenant-1", "case-1")
	require.NoError(t, err)
	assert.Empty(t, missing)

	hold, _, err := source.BillingHold(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.False(t, hold)
}

func TestConfigSource_LoadsFixtureFile(t *testing.T) {
	path := t.TempDir() + "/signals.json"

	fixture := `{
		"tenants": {"tenant-1": {"billing_hold": true, "billing_detail": "card expired"}},
		"cases": {
			"case-1": {
				"missing_documents": {"step-1": ["death certificate"]},
				"identity_pending": true,
				"identity_detail": "invite not accepted"
			}
		}
	}`

	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))

	source, err := NewConfigSource(path)
	require.NoError(t, err)

	hold, detail, err := source.BillingHold(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.True(t, hold)
	assert.Equal(t, "card expired", detail)

	missing, err := source.MissingDocuments(context.Background(), "tenant-1", "case-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"death certificate"}, missing["step-1"])

	pending, _, err := source.IdentityPending(context.Background(), "tenant-1", "case-2")
	require.NoError(t, err)
	assert.False(t, pending, "unknown case has no signals")
}

func TestConfigSource_RejectsMalformedFile(t *testing.T) {
	path := t.TempDir() + "/signals.json"
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewConfigSource(path)
	assert.Error(t, err)
}
