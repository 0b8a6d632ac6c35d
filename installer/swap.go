package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cqcsystem/cqcsrv/pkg/cqcerrors"
)

// fsSettleDelay is the brief pause before renaming, giving filesystem
// observers (anti-virus scanners, indexers) a chance to release locks
// (spec.md §4.3.4 step 1).
var fsSettleDelay = 500 * time.Millisecond

// renameRetries bounds the retry attempts on a transient rename failure;
// spec.md §4.3.4 documents that the two renames are not atomic across
// the transition and relies on retry plus the "no server running"
// invariant rather than a filesystem journal (SPEC_FULL.md open
// question 2 — not changed here).
const renameRetries = 3

// RecoveryDirName builds the timestamped recovery directory name
// "CQCBackup-YYYYMMDD_HHMMSS-Maj_Min_Rev" (spec.md §4.3.4 step 2).
func RecoveryDirName(oldVersion Version, at time.Time) string {
	return fmt.Sprintf("CQCBackup-%s-%d_%d_%d",
		at.Format("20060102_150405"), oldVersion.Major, oldVersion.Minor, oldVersion.Revision)
}

// Swap performs the atomic two-rename commit: the previous in-place tree
// at canonicalPath is renamed to a sibling recovery directory, then the
// staging tree is renamed to canonicalPath. If the staging rename fails
// after the recovery rename succeeded, the recovery tree is renamed back
// (best-effort) and the plan is reported failed (spec.md §4.3.4,
// §4.3.6 "unwind on failure").
func Swap(stagingDir, canonicalPath string, oldVersion Version, now time.Time) error {
	time.Sleep(fsSettleDelay)

	parent := filepath.Dir(canonicalPath)
	recoveryPath := filepath.Join(parent, RecoveryDirName(oldVersion, now))

	hadPrevious := true
	if _, err := os.Stat(canonicalPath); os.IsNotExist(err) {
		hadPrevious = false
	}

	if hadPrevious {
		if err := renameWithRetry(canonicalPath, recoveryPath); err != nil {
			return cqcerrors.InfrastructureFailure("Swap", err)
		}
	}

	if err := renameWithRetry(stagingDir, canonicalPath); err != nil {
		if hadPrevious {
			// Unwind: best-effort restore of the previous tree. The
			// staging tree is left in place per spec.md §4.3.6.
			_ = renameWithRetry(recoveryPath, canonicalPath)
		}
		return cqcerrors.Wrap(cqcerrors.KindInfrastructureFailure,
			"swap failed: staging tree could not be promoted to canonical path", err)
	}

	return nil
}

func renameWithRetry(oldPath, newPath string) error {
	var lastErr error
	for attempt := 0; attempt < renameRetries; attempt++ {
		if err := os.Rename(oldPath, newPath); err != nil {
			lastErr = err
			time.Sleep(100 * time.Millisecond)
			continue
		}
		return nil
	}
	return lastErr
}
