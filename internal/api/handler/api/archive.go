// internal/api/handler/api/archive.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/newthinker/polydash/internal/api/job"
	"github.com/newthinker/polydash/internal/api/response"
	"github.com/newthinker/polydash/internal/storage/archive"
)

// JobSnapshot is the job type of an archive snapshot
const JobSnapshot = "snapshot"

// Archiver lists and takes export snapshots
type Archiver interface {
	List(ctx context.Context) ([]archive.Object, error)
	Snapshot(ctx context.Context) ([]string, error)
}

// ArchiveHandler serves the export archive.
type ArchiveHandler struct {
	archiver Archiver
	jobs     *job.Store
	timeout  time.Duration
}

// NewArchiveHandler creates a new archive handler. Snapshots run as jobs in jobs.
func NewArchiveHandler(a Archiver, jobs *job.Store) *ArchiveHandler {
	return &ArchiveHandler{archiver: a, jobs: jobs, timeout: 2 * time.Minute}
}

// List returns archived exports.
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	objects, err := h.archiver.List(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"objects": objects,
		"total":   len(objects),
	})
}

// Snapshot starts a full export into the archive and returns its job.
// The job outlives the request; poll /api/jobs/{id} for the written keys.
func (h *ArchiveHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	base := context.WithoutCancel(r.Context())
	j := h.jobs.Run(base, JobSnapshot, func(ctx context.Context) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()
		keys, err := h.archiver.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"keys": keys}, nil
	})
	response.JSON(w, http.StatusAccepted, j)
}

// Jobs lists recent jobs, newest first.
func (h *ArchiveHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{"jobs": h.jobs.List()})
}

// Job returns one job by ID.
func (h *ArchiveHandler) Job(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}
