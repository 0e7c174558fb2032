// Package state holds the session's upload jobs in a thread-safe store.
//
// # Overview
//
// The Store is the single piece of shared mutable state in ferry. Upload and
// check goroutines write to it, the poller reads from it to find due jobs, and
// the UI renders periodic snapshots of it.
//
//	Writers (tracker):            Readers (UI, poller):
//	┌────────────────────┐        ┌────────────────────┐
//	│ store.Add(job)     │        │                    │
//	│ store.Update(id,fn)│───────→│ store.Snapshot()   │
//	│      (mutex)       │        │      ↓             │
//	└────────────────────┘        │  render / poll     │
//	                              └────────────────────┘
//
// # Ordering
//
// Jobs are kept newest first. Add prepends. Jobs are never removed during a
// session.
//
// # Update Semantics
//
// Update locates a job by ID and mutates it in place under the write lock:
//
//	store.Update(id, func(j *job.Job) {
//		j.ApplyToken(resp.Status)
//		j.DownloadURL = resp.DownloadURL
//	})
//
// Update does not stamp UpdatedAt. Writers set it from their own clock.
// Only the targeted entry changes, so responses for concurrently submitted
// jobs may arrive in any order. An unknown ID is a no-op and reports false.
//
// # Snapshots
//
// Snapshot returns deep copies (including progress counters). Callers may
// mutate what they receive. Version increases on every change, so the UI can
// skip re-rendering when nothing moved.
//
// The zero Store is ready to use.
package state
