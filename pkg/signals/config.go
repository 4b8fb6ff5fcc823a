package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// caseFixture holds the externally-sourced readiness inputs of one case as
// declared in a fixture file.
type caseFixture struct {
	MissingDocuments map[string][]string `json:"missing_documents"`
	DataConflicts    map[string][]string `json:"data_conflicts"`
	IdentityPending  bool                `json:"identity_pending"`
	IdentityDetail   string              `json:"identity_detail"`
}

type tenantFixture struct {
	BillingHold   bool   `json:"billing_hold"`
	BillingDetail string `json:"billing_detail"`
}

type fixtureFile struct {
	Tenants map[string]tenantFixture `json:"tenants"`
	Cases   map[string]caseFixture   `json:"cases"`
}

// ConfigSource serves signals from a JSON fixture file, billing holds keyed
// by tenant id and everything else by case id. It stands in for the document
// vault, billing, and identity integrations in deployments that do not have
// them connected yet.
type ConfigSource struct {
	tenants map[string]tenantFixture
	cases   map[string]caseFixture
}

// NewConfigSource loads a fixture file. An empty path yields a source that
// reports no signals for any case.
func NewConfigSource(path string) (*ConfigSource, error) {
	source := &ConfigSource{
		tenants: make(map[string]tenantFixture),
		cases:   make(map[string]caseFixture),
	}

	if path == "" {
		return source, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signal fixture file: %w", err)
	}

	var file fixtureFile

	err = json.Unmarshal(data, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signal fixture file: %w", err)
	}

	if file.Tenants != nil {
		source.tenants = file.Tenants
	}

	if file.Cases != nil {
		source.cases = file.Cases
	}

	return source, nil
}

func (s *ConfigSource) MissingDocuments(_ context.Context, _, caseID string) (map[string][]string, error) {
	return s.cases[caseID].MissingDocuments, nil
}

func (s *ConfigSource) BillingHold(_ context.Context, tenantID string) (bool, string, error) {
	fixture := s.tenants[tenantID]

	return fixture.BillingHold, fixture.BillingDetail, nil
}

func (s *ConfigSource) IdentityPending(_ context.Context, _, caseID string) (bool, string, error) {
	fixture := s.cases[caseID]

	return fixture.IdentityPending, fixture.IdentityDetail, nil
}

func (s *ConfigSource) DataConflicts(_ context.Context, _, caseID string) (map[string][]string, error) {
	return s.cases[caseID].DataConflicts, nil
}
