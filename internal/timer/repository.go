package timer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tempotrack/tempo/internal/models"
	"github.com/tempotrack/tempo/internal/sqlutil"
	"github.com/tempotrack/tempo/internal/timer/db"
)

// Querier defines what the repository needs from the database layer
type Querier interface {
	GetUser(ctx context.Context, id uuid.UUID) (db.User, error)
	GetUserByAPIToken(ctx context.Context, apiToken string) (db.User, error)
	GetTask(ctx context.Context, id uuid.UUID) (db.Task, error)
	GetLocation(ctx context.Context, id uuid.UUID) (db.Location, error)
	IsProjectMember(ctx context.Context, arg db.IsProjectMemberParams) (bool, error)
	IsLocationMember(ctx context.Context, arg db.IsLocationMemberParams) (bool, error)
	GetOpenTimeEntry(ctx context.Context, userID uuid.UUID) (db.GetOpenTimeEntryRow, error)
	CloseTimeEntry(ctx context.Context, arg db.CloseTimeEntryParams) (db.TimeEntry, error)
	ListOpenTimeEntries(ctx context.Context) ([]db.ListOpenTimeEntriesRow, error)
	ListLocationParticipants(ctx context.Context, arg db.ListLocationParticipantsParams) ([]db.ListLocationParticipantsRow, error)
}

// Repository implements timer data access operations
type Repository struct {
	queries  Querier
	database *sql.DB
}

// NewRepository creates a new timer repository
func NewRepository(querier Querier, database *sql.DB) *Repository {
	return &Repository{
		queries:  querier,
		database: database,
	}
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := r.queries.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return dbUserToModel(user), nil
}

// GetUserByAPIToken retrieves a user by their bearer credential
func (r *Repository) GetUserByAPIToken(ctx context.Context, token string) (*models.User, error) {
	user, err := r.queries.GetUserByAPIToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}
	return dbUserToModel(user), nil
}

// GetTask retrieves a task by ID
func (r *Repository) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := r.queries.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &models.Task{
		ID:        task.ID,
		ProjectID: task.ProjectID,
		Label:     task.Label,
		Notes:     sqlutil.FromSqlStringPtr(task.Notes),
		CreatedAt: task.CreatedAt,
	}, nil
}

// GetLocation retrieves a presence location by ID
func (r *Repository) GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	loc, err := r.queries.GetLocation(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &models.Location{ID: loc.ID, Name: loc.Name}, nil
}

// IsProjectMember reports whether the user belongs to the project
func (r *Repository) IsProjectMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	ok, err := r.queries.IsProjectMember(ctx, db.IsProjectMemberParams{
		ProjectID: projectID,
		UserID:    userID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check project membership: %w", err)
	}
	return ok, nil
}

// IsLocationMember reports whether the user belongs to the location
func (r *Repository) IsLocationMember(ctx context.Context, locationID, userID uuid.UUID) (bool, error) {
	ok, err := r.queries.IsLocationMember(ctx, db.IsLocationMemberParams{
		LocationID: locationID,
		UserID:     userID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check location membership: %w", err)
	}
	return ok, nil
}

// StartEntry opens a time entry for the user inside one transaction. The open
// check and the insert commit together so two racing starts cannot both win.
func (r *Repository) StartEntry(ctx context.Context, userID uuid.UUID, task *models.Task, startedAt time.Time) (*models.TimerSession, error) {
	var entry db.TimeEntry
	newQueries := func(tx *sql.Tx) *db.Queries { return db.New(tx) }
	err := sqlutil.Run(ctx, r.database, newQueries, func(q *db.Queries) error {
		_, err := q.GetOpenTimeEntry(ctx, userID)
		if err == nil {
			return ErrAlreadyRunning
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check open entry: %w", err)
		}

		entry, err = q.CreateTimeEntry(ctx, db.CreateTimeEntryParams{
			ID:        uuid.New(),
			UserID:    userID,
			TaskID:    task.ID,
			StartedAt: startedAt,
		})
		if err != nil {
			// The partial unique index on open entries is the last line of
			// defense against two racing starts.
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
				return ErrAlreadyRunning
			}
			return fmt.Errorf("failed to create time entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.TimerSession{
		ID:        entry.ID,
		UserID:    entry.UserID,
		TaskID:    entry.TaskID,
		ProjectID: task.ProjectID,
		TaskLabel: task.Label,
		StartedAt: entry.StartedAt,
	}, nil
}

// CloseEntry stops the user's open entry. The WHERE clause only matches the
// current open entry, so stale or unknown ids surface as ErrStaleSession.
func (r *Repository) CloseEntry(ctx context.Context, entryID, userID uuid.UUID, stoppedAt time.Time) (time.Duration, error) {
	entry, err := r.queries.CloseTimeEntry(ctx, db.CloseTimeEntryParams{
		ID:        entryID,
		UserID:    userID,
		StoppedAt: sqlutil.ToSqlTime(&stoppedAt),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrStaleSession
		}
		return 0, fmt.Errorf("failed to close time entry: %w", err)
	}
	return entry.StoppedAt.Time.Sub(entry.StartedAt), nil
}

// OpenSession returns the user's open session, or (nil, nil) when idle.
func (r *Repository) OpenSession(ctx context.Context, userID uuid.UUID) (*models.TimerSession, error) {
	row, err := r.queries.GetOpenTimeEntry(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open entry: %w", err)
	}
	return openRowToSession(row), nil
}

// ListOpenSessions returns every open session across all users
func (r *Repository) ListOpenSessions(ctx context.Context) ([]models.TimerSession, error) {
	rows, err := r.queries.ListOpenTimeEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open entries: %w", err)
	}
	sessions := make([]models.TimerSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, models.TimerSession{
			ID:        row.ID,
			UserID:    row.UserID,
			TaskID:    row.TaskID,
			ProjectID: row.ProjectID,
			TaskLabel: row.Label,
			StartedAt: row.StartedAt,
		})
	}
	return sessions, nil
}

// LocationParticipants returns each member of the location with their tracked
// time since the given instant and their current task label, if any.
func (r *Repository) LocationParticipants(ctx context.Context, locationID uuid.UUID, since time.Time) ([]models.Participant, error) {
	rows, err := r.queries.ListLocationParticipants(ctx, db.ListLocationParticipantsParams{
		LocationID: locationID,
		Since:      sqlutil.ToSqlTime(&since),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list location participants: %w", err)
	}
	participants := make([]models.Participant, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, models.Participant{
			UserID:         row.UserID,
			DisplayName:    row.DisplayName,
			TrackedMinutes: int(row.TrackedMs / 1000 / 60),
			TaskLabel:      sqlutil.FromSqlStringPtr(row.CurrentTask),
		})
	}
	return participants, nil
}

func dbUserToModel(dbUser db.User) *models.User {
	return &models.User{
		ID:          dbUser.ID,
		DisplayName: dbUser.DisplayName,
		Email:       dbUser.Email,
		CreatedAt:   dbUser.CreatedAt,
	}
}

func openRowToSession(row db.GetOpenTimeEntryRow) *models.TimerSession {
	return &models.TimerSession{
		ID:        row.ID,
		UserID:    row.UserID,
		TaskID:    row.TaskID,
		ProjectID: row.ProjectID,
		TaskLabel: row.Label,
		StartedAt: row.StartedAt,
	}
}
