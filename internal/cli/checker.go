package cli

import (
	"time"

	"github.com/cbout22/policygate/internal/repository"
)

// CheckStatus describes how the local cache relates to upstream.
type CheckStatus int

const (
	CheckInSync            CheckStatus = iota // Stored sha matches the upstream tip
	CheckNeverSynced                          // No metadata record
	CheckStale                                // Stored sha differs from upstream
	CheckRepositoryChanged                    // Cache was filled from another repository
)

// CheckResult holds the outcome of one drift check.
type CheckResult struct {
	Status      CheckStatus
	Repository  string // configured owner/name
	Cached      string // owner/name recorded in the metadata (empty if never synced)
	StoredSHA   string
	UpstreamSHA string
	Branch      string // upstream default branch
	SyncedAt    time.Time
}

// ClassifyDrift turns a drift report into a CheckResult.
// This is a pure function: it reads state through its arguments, not globals.
func ClassifyDrift(repo string, d repository.Drift) CheckResult {
	r := CheckResult{
		Repository:  repo,
		UpstreamSHA: d.Upstream.SHA,
		Branch:      d.Upstream.DefaultBranch,
	}

	if d.Stored == nil {
		r.Status = CheckNeverSynced
		return r
	}

	r.Cached = d.Stored.Repository
	r.StoredSHA = d.Stored.SHA
	r.SyncedAt = d.Stored.SyncedTime()

	switch {
	case d.Stored.Repository != "" && d.Stored.Repository != repo:
		r.Status = CheckRepositoryChanged
	case !d.InSync():
		r.Status = CheckStale
	default:
		r.Status = CheckInSync
	}
	return r
}
