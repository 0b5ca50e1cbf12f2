package contactstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/udsonbraga/safelady/server/models"
	"github.com/udsonbraga/safelady/server/work"
)

type enqueueRecorder struct {
	jobs []work.JobParams
	err  error
}

func (r *enqueueRecorder) Perform(job work.JobParams) error {
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func newTestStore(t *testing.T, userID uint) (*Store, *enqueueRecorder) {
	pool := &enqueueRecorder{}
	return NewStore(userID, t.TempDir(), pool), pool
}

func TestAddPersistsLocallyAndEnqueuesSync(t *testing.T) {
	store, pool := newTestStore(t, 1)

	contacts, state, err := store.Add(models.Contact{
		Name:         "Ana",
		TelegramID:   "ana123",
		Relationship: "Mãe",
	})

	assert.NoError(t, err)
	assert.Equal(t, SYNCED, state)
	assert.Equal(t, 1, len(contacts))
	assert.NotEmpty(t, contacts[0].ID)
	assert.Equal(t, "Ana", contacts[0].Name)

	assert.Equal(t, 1, len(pool.jobs))
	assert.Equal(t, "syncContacts", pool.jobs[0].Handler)
	assert.Equal(t, uint(1), pool.jobs[0].Args["user_id"])
}

func TestAddRejectsMissingRequiredFields(t *testing.T) {
	store, pool := newTestStore(t, 1)

	_, _, err := store.Add(models.Contact{Name: "Ana"})
	assert.ErrorIs(t, err, ErrMissingRequiredFields)

	_, _, err = store.Add(models.Contact{Relationship: "Mãe"})
	assert.ErrorIs(t, err, ErrMissingRequiredFields)

	assert.Equal(t, 0, store.Count())
	assert.Equal(t, 0, len(pool.jobs))
}

func TestMutationsSurviveReloadWithoutSession(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(2, dir, &enqueueRecorder{})

	_, _, err := store.Add(models.Contact{Name: "Ana", TelegramID: "ana123", Relationship: "Mãe"})
	assert.NoError(t, err)
	_, _, err = store.Add(models.Contact{Name: "Rita", Phone: "+5592000000000", Relationship: "Irmã"})
	assert.NoError(t, err)

	reloaded := NewStore(2, dir, &enqueueRecorder{})
	assert.NoError(t, reloaded.Load(false))

	contacts := reloaded.List()
	assert.Equal(t, 2, len(contacts))
	assert.Equal(t, "Ana", contacts[0].Name)
	assert.Equal(t, "ana123", contacts[0].TelegramID)
	assert.Equal(t, "Rita", contacts[1].Name)
}

func TestUpdateAndRemove(t *testing.T) {
	store, _ := newTestStore(t, 1)

	contacts, _, err := store.Add(models.Contact{Name: "Ana", Relationship: "Mãe"})
	assert.NoError(t, err)
	id := contacts[0].ID

	contacts, state, err := store.Update(models.Contact{
		UUIDBaseModel: models.UUIDBaseModel{ID: id},
		Name:          "Ana Paula",
		Relationship:  "Mãe",
	})
	assert.NoError(t, err)
	assert.Equal(t, SYNCED, state)
	assert.Equal(t, "Ana Paula", contacts[0].Name)

	_, _, err = store.Update(models.Contact{
		UUIDBaseModel: models.UUIDBaseModel{ID: "nope"},
		Name:          "X",
		Relationship:  "Y",
	})
	assert.ErrorIs(t, err, ErrContactNotFound)

	contacts, _, err = store.Remove(id)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(contacts))

	_, _, err = store.Remove(id)
	assert.ErrorIs(t, err, ErrContactNotFound)
}

func TestEnqueueFailureDowngradesToLocalOnly(t *testing.T) {
	pool := &enqueueRecorder{err: assert.AnError}
	dir := t.TempDir()
	store := NewStore(3, dir, pool)

	contacts, state, err := store.Add(models.Contact{Name: "Ana", Relationship: "Mãe"})

	assert.NoError(t, err)
	assert.Equal(t, LOCAL_ONLY, state)
	assert.Equal(t, 1, len(contacts))

	reloaded := NewStore(3, dir, pool)
	assert.NoError(t, reloaded.Load(false))
	assert.Equal(t, 1, len(reloaded.List()))
}

func TestSyncJobHandlerReplacesRemoteRows(t *testing.T) {
	models.InitializeTestDb()

	manager, err := NewManager(t.TempDir(), &enqueueRecorder{})
	assert.NoError(t, err)

	store := manager.ForUser(1)
	_, _, err = store.Add(models.Contact{Name: "Ana", TelegramID: "ana123", Relationship: "Mãe"})
	assert.NoError(t, err)

	handler := manager.SyncJobHandler()
	assert.NoError(t, handler(map[string]interface{}{"user_id": float64(1)}))

	remote, err := models.ContactsForUser(1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(remote))
	assert.Equal(t, "Ana", remote[0].Name)

	_, _, err = store.Remove(remote[0].ID)
	assert.NoError(t, err)
	assert.NoError(t, handler(map[string]interface{}{"user_id": float64(1)}))

	remote, err = models.ContactsForUser(1)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(remote))
}
