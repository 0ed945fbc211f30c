package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"flowjobs/internal/job"
)

func TestResolvePrereqUpdatesAllDependents(t *testing.T) {
	g := New()
	prereq := job.JobID(1)
	d1 := job.JobID(2)
	d2 := job.JobID(3)

	g.SetDependency(d1, prereq)
	g.SetDependency(d2, prereq)

	assert.False(t, g.IsResolved(d1))
	assert.False(t, g.IsResolved(d2))

	for _, dep := range g.Dependents(prereq) {
		resolved := g.ResolvePrereq(dep, prereq)
		assert.True(t, resolved)
	}

	assert.True(t, g.IsResolved(d1))
	assert.True(t, g.IsResolved(d2))
	assert.Empty(t, g.Dependents(prereq))
}

func TestResolvePrereqPartial(t *testing.T) {
	g := New()
	p1, p2 := job.JobID(1), job.JobID(2)
	dep := job.JobID(3)

	g.SetDependency(dep, p1)
	g.SetDependency(dep, p2)

	assert.False(t, g.ResolvePrereq(dep, p1))
	assert.False(t, g.IsResolved(dep))
	assert.True(t, g.ResolvePrereq(dep, p2))
	assert.True(t, g.IsResolved(dep))
}

func TestPrereqsOfReturnsOutstandingList(t *testing.T) {
	g := New()
	dep := job.JobID(1)
	p1, p2 := job.JobID(2), job.JobID(3)

	g.SetDependency(dep, p1)
	g.SetDependency(dep, p2)

	assert.Equal(t, []job.JobID{p1, p2}, g.PrereqsOf(dep))

	g.ResolvePrereq(dep, p1)
	assert.Equal(t, []job.JobID{p2}, g.PrereqsOf(dep))
}

func TestNameResolutionUsesMostRecent(t *testing.T) {
	g := New()
	first := job.JobID(1)
	second := job.JobID(2)

	g.NoteCreated("compileJob", first)
	g.NoteCreated("compileJob", second)

	id, ok := g.ResolveName("compileJob")
	assert.True(t, ok)
	assert.Equal(t, second, id)
}
