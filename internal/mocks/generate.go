// Package mocks provides mock implementations for testing the seqdepot system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockGroupRepository(ctrl)
//	mockRepo.EXPECT().GetByID(gomock.Any(), "technicians").Return(group, nil)
package mocks

// Generate mock for GroupRepository interface from internal/core package.
// This creates MockGroupRepository with methods for all GroupRepository interface methods:
// Create, GetByID, GetByIDs, List, Update, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=group_repository_mock.go github.com/seqdepot/seqdepot/internal/core GroupRepository

// Generate mock for WebhookSinkRepository interface from internal/core package.
// This creates MockWebhookSinkRepository with methods for all WebhookSinkRepository interface methods:
// Create, GetByID, List, ListEnabled, Update, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=webhook_sink_repository_mock.go github.com/seqdepot/seqdepot/internal/core WebhookSinkRepository
