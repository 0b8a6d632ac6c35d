package installer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cqcsystem/cqcsrv/pkg/cqcerrors"
)

// VersionInfoFile is the machine-readable version stamp's filename within
// the canonical install root (spec.md §6 "Installer artifacts").
const VersionInfoFile = "CQCInstVersion.Info"

// Version is a Major.Minor.Revision triple, ordered lexicographically by
// field.
type Version struct {
	Major    int `json:"major"`
	Minor    int `json:"minor"`
	Revision int `json:"revision"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater
// than other.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return sign(v.Major - other.Major)
	case v.Minor != other.Minor:
		return sign(v.Minor - other.Minor)
	default:
		return sign(v.Revision - other.Revision)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// MinUpgradeVersion is the framework-defined floor below which an
// in-place upgrade is refused (spec.md §4.3.2).
var MinUpgradeVersion = Version{Major: 5, Minor: 0, Revision: 0}

// ReadVersionInfo reads VersionInfoFile from targetDir. A missing file is
// not an error: it means "no prior install here" and returns the zero
// Version with found=false.
func ReadVersionInfo(targetDir string) (v Version, found bool, err error) {
	path := filepath.Join(targetDir, VersionInfoFile)
	data, readErr := os.ReadFile(path)
	if os.IsNotExist(readErr) {
		return Version{}, false, nil
	}
	if readErr != nil {
		return Version{}, false, readErr
	}
	if unmarshalErr := json.Unmarshal(data, &v); unmarshalErr != nil {
		return Version{}, false, unmarshalErr
	}
	return v, true, nil
}

// WriteVersionInfo persists v as the new VersionInfoFile in targetDir,
// called after a successful swap.
func WriteVersionInfo(targetDir string, v Version) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(targetDir, VersionInfoFile), data, 0o644)
}

// CheckUpgradeEligibility enforces spec.md §4.3.2: a target strictly older
// than MinUpgradeVersion is refused; a target strictly newer than the
// candidate being installed is refused as a "retro-version" install.
func CheckUpgradeEligibility(targetDir string, candidate Version) error {
	existing, found, err := ReadVersionInfo(targetDir)
	if err != nil {
		return cqcerrors.InfrastructureFailure("CheckUpgradeEligibility", err)
	}
	if !found {
		return nil
	}

	if existing.Compare(MinUpgradeVersion) < 0 {
		return cqcerrors.PlanRejection("MinUpgradeVersion",
			fmt.Sprintf("installed version %s is older than the minimum supported upgrade version %s", existing, MinUpgradeVersion))
	}
	if existing.Compare(candidate) > 0 {
		return cqcerrors.PlanRejection("RetroVersion",
			fmt.Sprintf("installed version %s is newer than candidate %s", existing, candidate))
	}
	return nil
}
