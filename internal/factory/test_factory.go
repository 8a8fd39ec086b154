package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/bughunt/internal/dependencies/mocks"
	"github.com/mcoot/bughunt/internal/events"
	"github.com/mcoot/bughunt/internal/services/auth"
	"github.com/mcoot/bughunt/internal/services/score"
	"github.com/mcoot/bughunt/internal/sse"
	"github.com/mcoot/bughunt/internal/storage/memory"
	"github.com/mcoot/bughunt/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock     *mocks.MockClock
	MockIDs       *mocks.MockIDs
	MockPublisher *mocks.MockPublisher
	MemoryStorage *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Events reach both the recording publisher and real SSE hubs.
func NewTestApp() *TestApp {
	logger := testutil.NopLogger()
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDs()
	mockPublisher := mocks.NewMockPublisher()
	hubManager := sse.NewHubManager(logger)

	app := newWithDependencies(
		store,
		mockClock,
		mockIDs,
		events.Combine(mockPublisher, sse.NewPublisher(hubManager, logger)),
		auth.NewBcryptHasher(bcrypt.MinCost),
		logger,
		score.DefaultConfig(),
	)
	app.HubManager = hubManager
	app.closers = append(app.closers, store)

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockIDs:       mockIDs,
		MockPublisher: mockPublisher,
		MemoryStorage: store,
	}
}
