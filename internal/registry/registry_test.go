package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowjobs/internal/document"
	"flowjobs/internal/job"
)

type stubJob struct {
	job.Base
}

func (s *stubJob) Execute(ctx context.Context) error { return nil }

func newStub(id job.JobID) job.Job {
	b := job.NewBase(id, "stub", job.AllChannels)
	return &stubJob{Base: b}
}

func TestRegisterAndCreate(t *testing.T) {
	r := New()
	r.Register("stub", newStub)

	j, err := r.Create("stub", 0)
	require.NoError(t, err)
	assert.Equal(t, "stub", j.Type())
	assert.Equal(t, job.JobID(0), j.ID())
	assert.NotNil(t, j.Input())
	_ = document.New()
}

func TestCreateUnknownType(t *testing.T) {
	r := New()
	_, err := r.Create("nope", 0)
	assert.Error(t, err)
}

func TestRegisterOverwriteDoesNotDuplicateListTypes(t *testing.T) {
	r := New()
	r.Register("stub", newStub)
	r.Register("stub", newStub)

	assert.Equal(t, []string{"stub"}, r.ListTypes())
}

func TestFactoryReturningNil(t *testing.T) {
	r := New()
	r.Register("nilly", func(id job.JobID) job.Job { return nil })

	_, err := r.Create("nilly", 0)
	assert.Error(t, err)
}
