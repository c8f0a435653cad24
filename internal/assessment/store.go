package assessment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EntityStore loads the rows prompts are built from. Quizzes live in the
// assessments table, so Assessment serves both lookups.
type EntityStore interface {
	// Assessment returns nil when no row exists.
	Assessment(ctx context.Context, id string) (*Assessment, error)
	// Challenge returns nil when no template exists; challenge coaching
	// degrades instead of failing.
	Challenge(ctx context.Context, id string) (*ChallengeTemplate, error)
}

// AttemptStore persists assessment attempts through their lifecycle.
type AttemptStore interface {
	// Create opens a new attempt with the next attempt number for the pair.
	Create(ctx context.Context, assessmentID, userID string) (Attempt, error)
	Get(ctx context.Context, id string) (*Attempt, error)
	// SubmitResponses stores the answers and marks the attempt completed.
	SubmitResponses(ctx context.Context, id string, responses map[string]any) error
	// RecordAnalysis stores the AI result and marks the attempt processed.
	RecordAnalysis(ctx context.Context, id string, analysis Result, score *float64, feedback string) error
	// RecordFailure stores the processing error and marks the attempt failed.
	RecordFailure(ctx context.Context, id string, message string) error
}

// ProgressStore updates the user's growth counters after a processed attempt.
type ProgressStore interface {
	AddPoints(ctx context.Context, userID string, crystalPoints, growthPoints int) error
}

// MemoryEntityStore is an in-memory EntityStore for development and tests.
type MemoryEntityStore struct {
	mu          sync.RWMutex
	assessments map[string]Assessment
	challenges  map[string]ChallengeTemplate
}

func NewMemoryEntityStore() *MemoryEntityStore {
	return &MemoryEntityStore{
		assessments: make(map[string]Assessment),
		challenges:  make(map[string]ChallengeTemplate),
	}
}

func (s *MemoryEntityStore) PutAssessment(a Assessment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments[a.ID] = a
}

func (s *MemoryEntityStore) PutChallenge(c ChallengeTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[c.ID] = c
}

func (s *MemoryEntityStore) Assessment(_ context.Context, id string) (*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *MemoryEntityStore) Challenge(_ context.Context, id string) (*ChallengeTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.challenges[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// MemoryAttemptStore is an in-memory AttemptStore for development and tests.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	attempts map[string]Attempt
	now      func() time.Time
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{
		attempts: make(map[string]Attempt),
		now:      time.Now,
	}
}

func (s *MemoryAttemptStore) Create(_ context.Context, assessmentID, userID string) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	number := 1
	for _, a := range s.attempts {
		if a.AssessmentID == assessmentID && a.UserID == userID && a.AttemptNumber >= number {
			number = a.AttemptNumber + 1
		}
	}

	attempt := Attempt{
		ID:            uuid.NewString(),
		AssessmentID:  assessmentID,
		UserID:        userID,
		AttemptNumber: number,
		Status:        StatusInProgress,
		StartedAt:     s.now(),
	}
	s.attempts[attempt.ID] = attempt
	return attempt, nil
}

func (s *MemoryAttemptStore) Get(_ context.Context, id string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *MemoryAttemptStore) SubmitResponses(_ context.Context, id string, responses map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[id]
	if !ok {
		return fmt.Errorf("attempt not found: %s", id)
	}
	now := s.now()
	a.Responses = responses
	a.Status = StatusCompleted
	a.CompletedAt = &now
	s.attempts[id] = a
	return nil
}

func (s *MemoryAttemptStore) RecordAnalysis(_ context.Context, id string, analysis Result, score *float64, feedback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[id]
	if !ok {
		return fmt.Errorf("attempt not found: %s", id)
	}
	a.AIAnalysis = analysis
	a.AIScore = score
	a.AIFeedback = feedback
	a.ProcessingError = ""
	a.Status = StatusProcessed
	s.attempts[id] = a
	return nil
}

func (s *MemoryAttemptStore) RecordFailure(_ context.Context, id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[id]
	if !ok {
		return fmt.Errorf("attempt not found: %s", id)
	}
	a.ProcessingError = message
	a.Status = StatusFailed
	s.attempts[id] = a
	return nil
}

// MemoryProgressStore tracks points per user in memory.
type MemoryProgressStore struct {
	mu     sync.Mutex
	points map[string][2]int // crystal, growth
}

func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{points: make(map[string][2]int)}
}

func (s *MemoryProgressStore) AddPoints(_ context.Context, userID string, crystalPoints, growthPoints int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.points[userID]
	s.points[userID] = [2]int{p[0] + crystalPoints, p[1] + growthPoints}
	return nil
}

// Points returns the accumulated (crystal, growth) points for a user.
func (s *MemoryProgressStore) Points(userID string) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.points[userID]
	return p[0], p[1]
}
