package work

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/udsonbraga/safelady/server/models"
)

func TestEnqueueIn(t *testing.T) {
	models.InitializeTestDb()

	workerPool := newWorkerPool(MAX_CONCURRENCY)

	err := workerPool.enqueueIn(1, JobParams{
		Name:    "sync_contacts_7",
		Handler: "syncContacts",
		Args: map[string]interface{}{
			"user_id": 7,
		},
	})
	assert.Nil(t, err)

	// At some point we need to be able to
	// mock the current time, instead of stopping the
	// process. For now, keep it simple
	time.Sleep(1 * time.Second)

	// Make sure the correct job is created & scheduled to be run
	job, err := models.FirstScheduledJobToBeQueued()
	assert.Nil(t, err)
	assert.Equal(t, "sync_contacts_7", job.Name, "The job name should match the expected job name")
	assert.Contains(t, job.Args, "user_id", "Should contain the correct arg values")
	assert.Equal(t, models.SCHEDULED_JOB, job.JobStatus.Name, "The job should be in scheduled queue")
}

func TestEnqueueRejectsDuplicates(t *testing.T) {
	models.InitializeTestDb()

	workerPool := newWorkerPool(MAX_CONCURRENCY)

	job := JobParams{
		Name:    "backup",
		Handler: "backupSqliteDb",
		Args:    map[string]interface{}{},
	}

	err := workerPool.enqueue(job)
	assert.Nil(t, err)

	err = workerPool.enqueue(job)
	assert.ErrorIs(t, err, models.ErrDuplicateJob)
}
