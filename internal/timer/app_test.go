package timer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempotrack/tempo/internal/models"
)

// fakeRepo is an in-memory TimerRepository for app-layer tests
type fakeRepo struct {
	users          map[uuid.UUID]*models.User
	usersByToken   map[string]*models.User
	tasks          map[uuid.UUID]*models.Task
	locations      map[uuid.UUID]*models.Location
	projectMembers map[uuid.UUID]map[uuid.UUID]bool
	locMembers     map[uuid.UUID]map[uuid.UUID]bool
	openSessions   map[uuid.UUID]*models.TimerSession

	startEntryCalls   int
	lastStartedAt     time.Time
	lastStoppedAt     time.Time
	lastSince         time.Time
	closeDuration     time.Duration
	closeErr          error
	participantsReply []models.Participant
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:          make(map[uuid.UUID]*models.User),
		usersByToken:   make(map[string]*models.User),
		tasks:          make(map[uuid.UUID]*models.Task),
		locations:      make(map[uuid.UUID]*models.Location),
		projectMembers: make(map[uuid.UUID]map[uuid.UUID]bool),
		locMembers:     make(map[uuid.UUID]map[uuid.UUID]bool),
		openSessions:   make(map[uuid.UUID]*models.TimerSession),
	}
}

func (r *fakeRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *fakeRepo) GetUserByAPIToken(ctx context.Context, token string) (*models.User, error) {
	user, ok := r.usersByToken[token]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *fakeRepo) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (r *fakeRepo) GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	loc, ok := r.locations[id]
	if !ok {
		return nil, ErrLocationNotFound
	}
	return loc, nil
}

func (r *fakeRepo) IsProjectMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	return r.projectMembers[projectID][userID], nil
}

func (r *fakeRepo) IsLocationMember(ctx context.Context, locationID, userID uuid.UUID) (bool, error) {
	return r.locMembers[locationID][userID], nil
}

func (r *fakeRepo) StartEntry(ctx context.Context, userID uuid.UUID, task *models.Task, startedAt time.Time) (*models.TimerSession, error) {
	r.startEntryCalls++
	r.lastStartedAt = startedAt
	if _, open := r.openSessions[userID]; open {
		return nil, ErrAlreadyRunning
	}
	session := &models.TimerSession{
		ID:        uuid.New(),
		UserID:    userID,
		TaskID:    task.ID,
		ProjectID: task.ProjectID,
		TaskLabel: task.Label,
		StartedAt: startedAt,
	}
	r.openSessions[userID] = session
	return session, nil
}

func (r *fakeRepo) CloseEntry(ctx context.Context, entryID, userID uuid.UUID, stoppedAt time.Time) (time.Duration, error) {
	r.lastStoppedAt = stoppedAt
	if r.closeErr != nil {
		return 0, r.closeErr
	}
	session, open := r.openSessions[userID]
	if !open || session.ID != entryID {
		return 0, ErrStaleSession
	}
	delete(r.openSessions, userID)
	if r.closeDuration != 0 {
		return r.closeDuration, nil
	}
	return stoppedAt.Sub(session.StartedAt), nil
}

func (r *fakeRepo) OpenSession(ctx context.Context, userID uuid.UUID) (*models.TimerSession, error) {
	return r.openSessions[userID], nil
}

func (r *fakeRepo) ListOpenSessions(ctx context.Context) ([]models.TimerSession, error) {
	sessions := make([]models.TimerSession, 0, len(r.openSessions))
	for _, s := range r.openSessions {
		sessions = append(sessions, *s)
	}
	return sessions, nil
}

func (r *fakeRepo) LocationParticipants(ctx context.Context, locationID uuid.UUID, since time.Time) ([]models.Participant, error) {
	r.lastSince = since
	return r.participantsReply, nil
}

func (r *fakeRepo) addTask(projectID uuid.UUID, label string) *models.Task {
	task := &models.Task{ID: uuid.New(), ProjectID: projectID, Label: label}
	r.tasks[task.ID] = task
	return task
}

func (r *fakeRepo) addProjectMember(projectID, userID uuid.UUID) {
	if r.projectMembers[projectID] == nil {
		r.projectMembers[projectID] = make(map[uuid.UUID]bool)
	}
	r.projectMembers[projectID][userID] = true
}

func TestStartTimer(t *testing.T) {
	startedAt := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(startedAt)

	repo := newFakeRepo()
	app := NewAppWithClock(repo, clock)

	userID := uuid.New()
	projectID := uuid.New()
	task := repo.addTask(projectID, "code review")
	repo.addProjectMember(projectID, userID)

	session, err := app.StartTimer(context.Background(), userID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, session.UserID)
	assert.Equal(t, task.ID, session.TaskID)
	assert.Equal(t, projectID, session.ProjectID)
	assert.Equal(t, "code review", session.TaskLabel)
	assert.Equal(t, startedAt, session.StartedAt, "start instant comes from the injected clock")
}

func TestStartTimerErrors(t *testing.T) {
	clock := clockwork.NewFakeClock()
	userID := uuid.New()
	projectID := uuid.New()

	tests := []struct {
		name    string
		setup   func(repo *fakeRepo) uuid.UUID
		wantErr error
	}{
		{
			name:    "unknown task",
			setup:   func(repo *fakeRepo) uuid.UUID { return uuid.New() },
			wantErr: ErrTaskNotFound,
		},
		{
			name: "not a project member",
			setup: func(repo *fakeRepo) uuid.UUID {
				return repo.addTask(projectID, "forbidden").ID
			},
			wantErr: ErrNotProjectMember,
		},
		{
			name: "timer already running",
			setup: func(repo *fakeRepo) uuid.UUID {
				task := repo.addTask(projectID, "busy")
				repo.addProjectMember(projectID, userID)
				repo.openSessions[userID] = &models.TimerSession{ID: uuid.New(), UserID: userID}
				return task.ID
			},
			wantErr: ErrAlreadyRunning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			taskID := tt.setup(repo)
			app := NewAppWithClock(repo, clock)

			_, err := app.StartTimer(context.Background(), userID, taskID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStartTimerMembershipCheckedBeforeEntry(t *testing.T) {
	repo := newFakeRepo()
	app := NewAppWithClock(repo, clockwork.NewFakeClock())

	task := repo.addTask(uuid.New(), "no access")
	_, err := app.StartTimer(context.Background(), uuid.New(), task.ID)
	require.ErrorIs(t, err, ErrNotProjectMember)
	assert.Zero(t, repo.startEntryCalls, "a forbidden start must not touch the store")
}

func TestStopTimer(t *testing.T) {
	startedAt := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(startedAt)

	repo := newFakeRepo()
	app := NewAppWithClock(repo, clock)

	userID := uuid.New()
	projectID := uuid.New()
	task := repo.addTask(projectID, "focus block")
	repo.addProjectMember(projectID, userID)

	session, err := app.StartTimer(context.Background(), userID, task.ID)
	require.NoError(t, err)

	clock.Advance(25 * time.Minute)

	duration, err := app.StopTimer(context.Background(), userID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 25*time.Minute, duration)
	assert.Equal(t, startedAt.Add(25*time.Minute), repo.lastStoppedAt)

	_, err = app.StopTimer(context.Background(), userID, session.ID)
	assert.ErrorIs(t, err, ErrStaleSession)
}

func TestActiveSessionIdle(t *testing.T) {
	repo := newFakeRepo()
	app := NewAppWithClock(repo, clockwork.NewFakeClock())

	session, err := app.ActiveSession(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestIsLocationMemberUnknownLocation(t *testing.T) {
	repo := newFakeRepo()
	app := NewAppWithClock(repo, clockwork.NewFakeClock())

	_, err := app.IsLocationMember(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestLocationParticipantsSinceMidnight(t *testing.T) {
	now := time.Date(2025, 6, 2, 15, 45, 30, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)

	repo := newFakeRepo()
	repo.participantsReply = []models.Participant{{UserID: uuid.New(), DisplayName: "alice"}}
	app := NewAppWithClock(repo, clock)

	participants, err := app.LocationParticipants(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Len(t, participants, 1)

	midnight := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight, repo.lastSince, "tracked time resets at local midnight")
}

func TestResolveToken(t *testing.T) {
	repo := newFakeRepo()
	app := NewAppWithClock(repo, clockwork.NewFakeClock())

	user := &models.User{ID: uuid.New(), DisplayName: "alice"}
	repo.usersByToken["tok-alice"] = user

	resolved, err := app.ResolveToken(context.Background(), "tok-alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)

	_, err = app.ResolveToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = app.ResolveToken(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
