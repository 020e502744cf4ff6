package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theratrack/theratrack-api/internal/auth"
	"github.com/theratrack/theratrack-api/internal/config"
	"github.com/theratrack/theratrack-api/internal/model"
)

type fakeGoalStore struct {
	goals  []model.Goal
	nextID int64
}

func (f *fakeGoalStore) List(_ context.Context, clientID, _ *int64) ([]model.Goal, error) {
	var out []model.Goal
	for _, g := range f.goals {
		if clientID != nil && g.ClientID != *clientID {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeGoalStore) Create(_ context.Context, clientID int64, title string, measure model.MeasureType) (model.Goal, error) {
	f.nextID++
	g := model.Goal{ID: f.nextID, ClientID: clientID, Title: title, MeasureType: measure}
	f.goals = append(f.goals, g)
	return g, nil
}

func newDevTestHandler(env string) (*DevHandler, *fakeUserStore, *fakeClientRoster, *fakeGoalStore) {
	users := newFakeUserStore()
	roster := newFakeClientRoster()
	goals := &fakeGoalStore{}
	cfg := config.Config{Env: env, BcryptCost: 4}
	return NewDevHandler(cfg, users, roster, goals, nil), users, roster, goals
}

func countByName(roster *fakeClientRoster, name string) int {
	n := 0
	for _, c := range roster.clients {
		if c.Name == name {
			n++
		}
	}
	return n
}

func TestSeedHiddenOutsideDev(t *testing.T) {
	h, _, _, _ := newDevTestHandler("production")
	rec := invoke(t, h.Seed, http.MethodPost, "/dev/seed", "", auth.Identity{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSeedIsIdempotent(t *testing.T) {
	h, users, roster, goals := newDevTestHandler("dev")

	rec := invoke(t, h.Seed, http.MethodPost, "/dev/seed", "", auth.Identity{})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = invoke(t, h.Seed, http.MethodPost, "/dev/seed", "", auth.Identity{})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Len(t, users.users, 1)
	assert.Equal(t, 1, countByName(roster, "Client Alpha"))
	assert.Len(t, goals.goals, 2)
}

// Re-seeding after an admin reassigns the demo client must find it by name
// rather than create a second one.
func TestSeedAfterReassignmentCreatesNoDuplicate(t *testing.T) {
	h, _, roster, goals := newDevTestHandler("dev")

	rec := invoke(t, h.Seed, http.MethodPost, "/dev/seed", "", auth.Identity{})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, countByName(roster, "Client Alpha"))

	other := int64(77)
	for id, c := range roster.clients {
		if c.Name == "Client Alpha" {
			c.AssignedClinicianID = &other
			roster.clients[id] = c
		}
	}

	rec = invoke(t, h.Seed, http.MethodPost, "/dev/seed", "", auth.Identity{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, countByName(roster, "Client Alpha"))
	assert.Len(t, goals.goals, 2)
}
