// Package mocks provides testify mocks for the persistence and event bus
// collaborators.
package mocks

import (
	"context"
	"time"

	"github.com/probata/caseflow/pkg/models"
	"github.com/probata/caseflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPlanRepository is a mock implementation of persistence.PlanRepository.
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) StepsByCase(ctx context.Context, tenantID, caseID string) ([]*models.WorkflowStep, error) {
	args := m.Called(ctx, tenantID, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowStep), args.Error(1)
}

func (m *MockPlanRepository) EdgesByCase(ctx context.Context, tenantID, caseID string) ([]models.DependencyEdge, error) {
	args := m.Called(ctx, tenantID, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.DependencyEdge), args.Error(1)
}

func (m *MockPlanRepository) StepByID(ctx context.Context, tenantID, stepID string) (*models.WorkflowStep, error) {
	args := m.Called(ctx, tenantID, stepID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowStep), args.Error(1)
}

func (m *MockPlanRepository) ReplacePlan(ctx context.Context, tenantID, caseID string, steps []*models.WorkflowStep, edges []models.DependencyEdge) error {
	args := m.Called(ctx, tenantID, caseID, steps, edges)

	return args.Error(0)
}

func (m *MockPlanRepository) UpdateStep(ctx context.Context, tenantID string, step *models.WorkflowStep, expectedUpdatedAt time.Time) error {
	args := m.Called(ctx, tenantID, step, expectedUpdatedAt)

	return args.Error(0)
}

func (m *MockPlanRepository) UpdateSteps(ctx context.Context, tenantID string, steps []*models.WorkflowStep, expected map[string]time.Time) error {
	args := m.Called(ctx, tenantID, steps, expected)

	return args.Error(0)
}

func (m *MockPlanRepository) CasesWithDueSteps(ctx context.Context, before time.Time) ([]persistence.CaseRef, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]persistence.CaseRef), args.Error(1)
}

// MockActorRepository is a mock implementation of persistence.ActorRepository.
type MockActorRepository struct {
	mock.Mock
}

func (m *MockActorRepository) ActorByID(ctx context.Context, tenantID, actorID string) (*models.Actor, error) {
	args := m.Called(ctx, tenantID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Actor), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock
	PlanRepo  *MockPlanRepository
	ActorRepo *MockActorRepository
}

// NewMockPersistence wires a persistence mock with fresh repository mocks.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		PlanRepo:  &MockPlanRepository{},
		ActorRepo: &MockActorRepository{},
	}
}

func (m *MockPersistence) PlanRepository() persistence.PlanRepository {
	return m.PlanRepo
}

func (m *MockPersistence) ActorRepository() persistence.ActorRepository {
	return m.ActorRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
