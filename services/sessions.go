package services

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// SessionRegistry maps opaque client sessions to the jobs they own. The
// registry never holds a job id past cleanup: ids are removed from the set
// in the same pass that removes (or skips) the records they point at.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string][]string

	store     *JobStore
	workspace *Workspace
}

// NewSessionRegistry creates a session registry backed by the given store
// and workspace.
func NewSessionRegistry(store *JobStore, workspace *Workspace) *SessionRegistry {
	return &SessionRegistry{
		sessions:  make(map[string][]string),
		store:     store,
		workspace: workspace,
	}
}

// GetOrCreate returns the session id for a client token, creating the
// session on first sight. An empty token mints a fresh one. Idempotent for
// the same token thereafter.
func (r *SessionRegistry) GetOrCreate(token string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token == "" {
		token = uuid.New().String()
	}
	if _, ok := r.sessions[token]; !ok {
		r.sessions[token] = []string{}
	}
	return token
}

// AttachJob records that a session owns a job.
func (r *SessionRegistry) AttachJob(sessionID, jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = append(r.sessions[sessionID], jobID)
}

// OwnedJobs returns the job ids currently owned by a session.
func (r *SessionRegistry) OwnedJobs(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.sessions[sessionID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Cleanup releases everything a session owns. Safe to call at any time:
// terminal jobs lose their working directory and record, in-flight jobs are
// left untouched so the executor never writes into a directory cleanup just
// removed, and stale ids with a leftover directory on disk are swept. The
// session's job set is cleared regardless of individual outcomes; jobs
// still running become orphans and fall to the age-based reaper.
// Returns the number of jobs whose artifacts were removed.
func (r *SessionRegistry) Cleanup(sessionID string) int {
	r.mu.Lock()
	ids, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if !ok {
		return 0
	}

	cleaned := 0
	for _, jobID := range ids {
		job, exists := r.store.Get(jobID)
		if !exists {
			// Stale id: the record is gone but a directory may remain
			// from a prior partial cleanup.
			if r.workspace.WorkDirExists(jobID) {
				if err := r.workspace.DeleteWorkDir(jobID); err != nil {
					log.Printf("Could not remove orphaned work dir for %s: %v", jobID, err)
					continue
				}
				cleaned++
			}
			continue
		}

		if !job.Status.Terminal() {
			log.Printf("Skipping cleanup of active job %s (status %s)", jobID, job.Status)
			continue
		}

		if err := r.workspace.DeleteWorkDir(jobID); err != nil {
			log.Printf("Could not remove work dir for %s: %v", jobID, err)
		} else {
			cleaned++
		}
		r.store.Delete(jobID)
	}

	log.Printf("Cleaned up session %s: %d jobs released", sessionID, cleaned)
	return cleaned
}
