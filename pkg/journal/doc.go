/*
Package journal keeps a local history of reconciliation runs in BoltDB.

Every reconciliation performed by agentctl, including check-mode runs and
failures, is appended as an Entry. The journal is write-mostly: the
reconciler never consults it, so deleting the file loses history but never
changes what a run does.

# Layout

All entries live in a single bucket named "runs". Keys are the entry start
time as big-endian Unix nanoseconds followed by the entry ID, which keeps
the bucket sorted chronologically:

	runs/
	  <8-byte start time><uuid> -> Entry (JSON)

List walks the bucket backwards so the newest entries come first. Prune
walks it forwards and stops at the first entry newer than the cutoff.

# Usage

	store, err := journal.NewBoltStore(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	err = store.Append(&journal.Entry{
		RunID:    runID,
		Kind:     types.KindWorkload,
		Identity: "web/nginx",
		State:    types.StatePresent,
		Action:   outcome.Action,
		Changed:  outcome.Changed,
	})

The agentctl_journal_entries gauge tracks the entry count after every
append.
*/
package journal
