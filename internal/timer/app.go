package timer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/tempotrack/tempo/internal/models"
)

// TimerRepository defines what the app layer needs from the repository
type TimerRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByAPIToken(ctx context.Context, token string) (*models.User, error)
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error)
	IsProjectMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
	IsLocationMember(ctx context.Context, locationID, userID uuid.UUID) (bool, error)
	StartEntry(ctx context.Context, userID uuid.UUID, task *models.Task, startedAt time.Time) (*models.TimerSession, error)
	CloseEntry(ctx context.Context, entryID, userID uuid.UUID, stoppedAt time.Time) (time.Duration, error)
	OpenSession(ctx context.Context, userID uuid.UUID) (*models.TimerSession, error)
	ListOpenSessions(ctx context.Context) ([]models.TimerSession, error)
	LocationParticipants(ctx context.Context, locationID uuid.UUID, since time.Time) ([]models.Participant, error)
}

// App handles timer business logic. It is the durable side of the realtime
// subsystem: at most one open session per user, enforced here and in the
// database, never inferred from gateway memory.
type App struct {
	repo  TimerRepository
	clock clockwork.Clock
}

// NewApp creates a new timer App
func NewApp(repo TimerRepository) *App {
	return &App{
		repo:  repo,
		clock: clockwork.NewRealClock(),
	}
}

// NewAppWithClock creates a timer App with an injected clock for tests
func NewAppWithClock(repo TimerRepository, clock clockwork.Clock) *App {
	return &App{
		repo:  repo,
		clock: clock,
	}
}

// StartTimer opens a session for the user on the given task. The task must
// exist and the user must be a member of its project. Returns
// ErrAlreadyRunning if the user already has an open session.
func (a *App) StartTimer(ctx context.Context, userID, taskID uuid.UUID) (*models.TimerSession, error) {
	task, err := a.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	member, err := a.repo.IsProjectMember(ctx, task.ProjectID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, ErrNotProjectMember
	}

	session, err := a.repo.StartEntry(ctx, userID, task, a.clock.Now().UTC())
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("task_id", taskID.String()).
		Str("session_id", session.ID.String()).
		Msg("timer started")
	return session, nil
}

// StopTimer closes the user's open session. The session id must match the
// current open session; anything else returns ErrStaleSession.
func (a *App) StopTimer(ctx context.Context, userID, sessionID uuid.UUID) (time.Duration, error) {
	duration, err := a.repo.CloseEntry(ctx, sessionID, userID, a.clock.Now().UTC())
	if err != nil {
		return 0, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("session_id", sessionID.String()).
		Dur("duration", duration).
		Msg("timer stopped")
	return duration, nil
}

// ActiveSession returns the user's open session, or nil when idle. Always
// hits the store so reconnecting devices see the truth, not gateway memory.
func (a *App) ActiveSession(ctx context.Context, userID uuid.UUID) (*models.TimerSession, error) {
	return a.repo.OpenSession(ctx, userID)
}

// ActiveSessions returns every open session across all users
func (a *App) ActiveSessions(ctx context.Context) ([]models.TimerSession, error) {
	return a.repo.ListOpenSessions(ctx)
}

// Task retrieves a task by ID
func (a *App) Task(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	return a.repo.GetTask(ctx, taskID)
}

// IsProjectMember reports whether the user belongs to the project
func (a *App) IsProjectMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	return a.repo.IsProjectMember(ctx, projectID, userID)
}

// IsLocationMember reports whether the user belongs to the location
func (a *App) IsLocationMember(ctx context.Context, locationID, userID uuid.UUID) (bool, error) {
	if _, err := a.repo.GetLocation(ctx, locationID); err != nil {
		return false, err
	}
	return a.repo.IsLocationMember(ctx, locationID, userID)
}

// LocationParticipants returns the location's members with today's tracked
// minutes and their current task label, recomputed from the store.
func (a *App) LocationParticipants(ctx context.Context, locationID uuid.UUID) ([]models.Participant, error) {
	now := a.clock.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return a.repo.LocationParticipants(ctx, locationID, midnight)
}

// ResolveToken maps a bearer credential to a user, or ErrUserNotFound.
func (a *App) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	return a.repo.GetUserByAPIToken(ctx, token)
}
