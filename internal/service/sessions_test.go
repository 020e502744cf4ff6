package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/theratrack/theratrack-api/internal/auth"
	"github.com/theratrack/theratrack-api/internal/model"
	"github.com/theratrack/theratrack-api/internal/queue"
	"github.com/theratrack/theratrack-api/internal/repository"
)

// MockSessionStore is a mock implementation of SessionStore.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) List(ctx context.Context, clinicianID *int64) ([]model.SessionSummary, error) {
	args := m.Called(ctx, clinicianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SessionSummary), args.Error(1)
}

func (m *MockSessionStore) GetByID(ctx context.Context, id int64) (model.Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *MockSessionStore) Create(ctx context.Context, clientID, clinicianID int64, start time.Time, end *time.Time) (model.Session, error) {
	args := m.Called(ctx, clientID, clinicianID, start, end)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *MockSessionStore) UpdateState(ctx context.Context, s model.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionStore) InsertEntry(ctx context.Context, sessionID, goalID int64, value int) (model.SessionEntry, error) {
	args := m.Called(ctx, sessionID, goalID, value)
	return args.Get(0).(model.SessionEntry), args.Error(1)
}

func (m *MockSessionStore) ListEntries(ctx context.Context, sessionID int64) ([]model.SessionEntry, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SessionEntry), args.Error(1)
}

func (m *MockSessionStore) GetNote(ctx context.Context, sessionID int64) (model.SessionNote, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(model.SessionNote), args.Error(1)
}

func (m *MockSessionStore) UpsertNote(ctx context.Context, sessionID int64, soapText string) (model.SessionNote, error) {
	args := m.Called(ctx, sessionID, soapText)
	return args.Get(0).(model.SessionNote), args.Error(1)
}

// MockClientStore is a mock implementation of ClientStore.
type MockClientStore struct {
	mock.Mock
}

func (m *MockClientStore) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockClinicianStore is a mock implementation of ClinicianStore.
type MockClinicianStore struct {
	mock.Mock
}

func (m *MockClinicianStore) ClinicianExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

var (
	adminIdent = auth.Identity{UserID: 1, Role: model.RoleAdmin}
	ownerIdent = auth.Identity{UserID: 20, Role: model.RoleClinician}
	otherIdent = auth.Identity{UserID: 99, Role: model.RoleClinician}
)

func ownedSession() model.Session {
	return model.Session{
		ID:          5,
		ClientID:    10,
		ClinicianID: ownerIdent.UserID,
		StartTime:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Status:      model.StatusScheduled,
	}
}

func newFacade(store *MockSessionStore, clients *MockClientStore, users *MockClinicianStore, publish CompletedPublisher) *SessionService {
	return NewSessionService(store, clients, users, publish, nil)
}

func TestListAppliesScope(t *testing.T) {
	store := new(MockSessionStore)
	svc := newFacade(store, nil, nil, nil)

	store.On("List", mock.Anything, (*int64)(nil)).Return([]model.SessionSummary{}, nil).Once()
	_, err := svc.List(context.Background(), adminIdent)
	require.NoError(t, err)

	store.On("List", mock.Anything, mock.MatchedBy(func(id *int64) bool {
		return id != nil && *id == ownerIdent.UserID
	})).Return([]model.SessionSummary{}, nil).Once()
	_, err = svc.List(context.Background(), ownerIdent)
	require.NoError(t, err)

	store.AssertExpectations(t)
}

func TestGetForbiddenForNonOwner(t *testing.T) {
	store := new(MockSessionStore)
	svc := newFacade(store, nil, nil, nil)

	store.On("GetByID", mock.Anything, int64(5)).Return(ownedSession(), nil)

	_, err := svc.Get(context.Background(), otherIdent, 5)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestGetReturnsNoteAndEntries(t *testing.T) {
	store := new(MockSessionStore)
	svc := newFacade(store, nil, nil, nil)

	store.On("GetByID", mock.Anything, int64(5)).Return(ownedSession(), nil)
	store.On("GetNote", mock.Anything, int64(5)).Return(model.SessionNote{ID: 7, SessionID: 5, SoapText: "S/O/A/P"}, nil)
	store.On("ListEntries", mock.Anything, int64(5)).Return([]model.SessionEntry{{ID: 1, SessionID: 5, GoalID: 3, Value: 80}}, nil)

	detail, err := svc.Get(context.Background(), adminIdent, 5)
	require.NoError(t, err)
	require.NotNil(t, detail.Note)
	assert.Equal(t, "S/O/A/P", detail.Note.SoapText)
	assert.Len(t, detail.Entries, 1)
}

func TestGetWithoutNote(t *testing.T) {
	store := new(MockSessionStore)
	svc := newFacade(store, nil, nil, nil)

	store.On("GetByID", mock.Anything, int64(5)).Return(ownedSession(), nil)
	store.On("GetNote", mock.Anything, int64(5)).Return(model.SessionNote{}, repository.ErrNotFound)
	store.On("ListEntries", mock.Anything, int64(5)).Return([]model.SessionEntry{}, nil)

	detail, err := svc.Get(context.Background(), ownerIdent, 5)
	require.NoError(t, err)
	assert.Nil(t, detail.Note)
}

func TestCreateValidatesReferences(t *testing.T) {
	store := new(MockSessionStore)
	clients := new(MockClientStore)
	users := new(MockClinicianStore)
	svc := newFacade(store, clients, users, nil)
	start := time.Now().UTC()

	clients.On("Exists", mock.Anything, int64(404)).Return(false, nil)
	_, err := svc.Create(context.Background(), adminIdent, 404, 20, start, nil)
	assert.ErrorIs(t, err, repository.ErrValidation)

	clients.On("Exists", mock.Anything, int64(10)).Return(true, nil)
	users.On("ClinicianExists", mock.Anything, int64(404)).Return(false, nil)
	_, err = svc.Create(context.Background(), adminIdent, 10, 404, start, nil)
	assert.ErrorIs(t, err, repository.ErrValidation)

	users.On("ClinicianExists", mock.Anything, int64(20)).Return(true, nil)
	store.On("Create", mock.Anything, int64(10), int64(20), start, (*time.Time)(nil)).
		Return(model.Session{ID: 1, ClientID: 10, ClinicianID: 20, Status: model.StatusScheduled}, nil)
	sess, err := svc.Create(context.Background(), adminIdent, 10, 20, start, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, sess.Status)
	assert.False(t, sess.LockedForPayroll)
}

func TestCreateRejectsNonAdmin(t *testing.T) {
	svc := newFacade(new(MockSessionStore), new(MockClientStore), new(MockClinicianStore), nil)
	_, err := svc.Create(context.Background(), ownerIdent, 10, 20, time.Now(), nil)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

// Ownership failures surface as not-found so a clinician cannot probe for
// sessions that exist but belong to someone else.
func TestUpdateOwnStatusMasksNonOwnership(t *testing.T) {
	store := new(MockSessionStore)
	svc := newFacade(store, nil, nil, nil)

	store.On("GetByID", mock.Anything, int64(5)).Return(ownedSession(), nil)

	_, err := svc.UpdateOwnStatus(context.Background(), otherIdent, 5, model.StatusCompleted)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	store.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything)
}

func TestUpdateOwnStatusCompletesAndPublishes(t *testing.T) {
	store := new(MockSessionStore)
	published := 0
	publish := func(ctx context.Context, ev queue.SessionCompletedEvent) error {
		published++
		assert.Equal(t, int64(5), ev.SessionID)
		return nil
	}
	svc := newFacade(store, nil, nil, publish)

	store.On("GetByID", mock.Anything, int64(5)).Return(ownedSession(), nil)
	store.On("UpdateState", mock.Anything, mock.MatchedBy(func(s model.Session) bool {
		return s.Status == model.StatusCompleted && s.EndTime != nil
	})).Return(nil)

	before := time.Now().UTC()
	sess, err := svc.UpdateOwnStatus(context.Background(), ownerIdent, 5, model.StatusCompleted)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, sess.Status)
	require.NotNil(t, sess.EndTime)
	assert.WithinDuration(t, before, *sess.EndTime, 5*time.Second)
	assert.Equal(t, 1, published)
}

func TestAdminOverrideReopenClearsEndTime(t *testing.T) {
	store := new(MockSessionStore)
	svc := newFacade(store, nil, nil, nil)

	completed := ownedSession()
	end := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	completed.Status = model.StatusCompleted
	completed.EndTime = &end

	store.On("GetByID", mock.Anything, int64(5)).Return(completed, nil)
	store.On("UpdateState", mock.Anything, mock.MatchedBy(func(s model.Session) bool {
		return s.Status == model.StatusScheduled && s.EndTime == nil
	})).Return(nil)

	sess, err := svc.AdminOverrideStatus(context.Background(), adminIdent, 5, model.StatusScheduled)
	require.NoError(t, err)
	assert.Nil(t, sess.EndTime)
	store.AssertExpectations(t)
}

func TestSetPayrollLock(t *testing.T) {
	store := new(MockSessionStore)
	svc := newFacade(store, nil, nil, nil)

	store.On("GetByID", mock.Anything, int64(5)).Return(ownedSession(), nil)
	store.On("UpdateState", mock.Anything, mock.MatchedBy(func(s model.Session) bool {
		return s.LockedForPayroll
	})).Return(nil)

	sess, err := svc.SetPayrollLock(context.Background(), adminIdent, 5, true)
	require.NoError(t, err)
	assert.True(t, sess.LockedForPayroll)

	_, err = svc.SetPayrollLock(context.Background(), ownerIdent, 5, true)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestAddEntryGates(t *testing.T) {
	store := new(MockSessionStore)
	svc := newFacade(store, nil, nil, nil)

	t.Run("negative value", func(t *testing.T) {
		_, err := svc.AddEntry(context.Background(), ownerIdent, 5, 3, -1)
		assert.ErrorIs(t, err, repository.ErrValidation)
	})

	t.Run("not owner", func(t *testing.T) {
		store.On("GetByID", mock.Anything, int64(5)).Return(ownedSession(), nil).Once()
		_, err := svc.AddEntry(context.Background(), otherIdent, 5, 3, 1)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("completed session", func(t *testing.T) {
		completed := ownedSession()
		end := time.Now().UTC()
		completed.Status = model.StatusCompleted
		completed.EndTime = &end
		store.On("GetByID", mock.Anything, int64(5)).Return(completed, nil).Once()
		_, err := svc.AddEntry(context.Background(), ownerIdent, 5, 3, 1)
		assert.ErrorIs(t, err, repository.ErrConflict)
	})

	t.Run("ok", func(t *testing.T) {
		store.On("GetByID", mock.Anything, int64(5)).Return(ownedSession(), nil).Once()
		store.On("InsertEntry", mock.Anything, int64(5), int64(3), 80).
			Return(model.SessionEntry{ID: 1, SessionID: 5, GoalID: 3, Value: 80}, nil)
		entry, err := svc.AddEntry(context.Background(), ownerIdent, 5, 3, 80)
		require.NoError(t, err)
		assert.Equal(t, 80, entry.Value)
	})
}

func TestAddOrUpdateNoteGates(t *testing.T) {
	store := new(MockSessionStore)
	svc := newFacade(store, nil, nil, nil)

	t.Run("not owner", func(t *testing.T) {
		store.On("GetByID", mock.Anything, int64(5)).Return(ownedSession(), nil).Once()
		_, err := svc.AddOrUpdateNote(context.Background(), otherIdent, 5, "text")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("completed session", func(t *testing.T) {
		completed := ownedSession()
		end := time.Now().UTC()
		completed.Status = model.StatusCompleted
		completed.EndTime = &end
		store.On("GetByID", mock.Anything, int64(5)).Return(completed, nil).Once()
		_, err := svc.AddOrUpdateNote(context.Background(), ownerIdent, 5, "text")
		assert.ErrorIs(t, err, repository.ErrConflict)
	})

	t.Run("upsert", func(t *testing.T) {
		store.On("GetByID", mock.Anything, int64(5)).Return(ownedSession(), nil).Once()
		store.On("UpsertNote", mock.Anything, int64(5), "updated").
			Return(model.SessionNote{ID: 2, SessionID: 5, SoapText: "updated"}, nil)
		note, err := svc.AddOrUpdateNote(context.Background(), ownerIdent, 5, "updated")
		require.NoError(t, err)
		assert.Equal(t, "updated", note.SoapText)
	})
}
