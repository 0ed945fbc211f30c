// Package scheduler implements the queued -> running -> completed ->
// retired job state machine: claiming ready work under a channel mask,
// propagating a completed job's output into its dependents' input, and
// re-enqueuing dependents that become ready.
//
// Locking order. Several independent mutexes guard the scheduler's
// structures (job table, queued/running/completed sets, history log,
// dependency map with its name-to-id table, registry). Only two locks
// are ever held while another is taken: Claim holds the queued lock
// while it briefly takes the job-table, dependency-map, running and
// history locks, and Retire holds the completed lock while it briefly
// takes the history and job-table locks. The queued and completed locks
// are never held together and are never taken while any other lock is
// held, so they always come first; every other lock is taken alone and
// released before the next one.
package scheduler
