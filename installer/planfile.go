package installer

import (
	"os"

	"github.com/tidwall/gjson"
)

// ReadPlanFile leniently parses an InstallationPlan from a JSON sidecar
// file, tolerating unknown and missing fields the way a hand-edited
// installer response file accumulates them across CQC releases. A field
// absent from the document is simply left at its zero value rather than
// failing the whole read, unlike a strict encoding/json.Unmarshal into
// InstallationPlan.
func ReadPlanFile(path string) (InstallationPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return InstallationPlan{}, err
	}
	if !gjson.ValidBytes(data) {
		return InstallationPlan{}, &ValidationError{Violations: nil}
	}

	root := gjson.ParseBytes(data)
	plan := InstallationPlan{
		Components: make(map[Component]bool),
		Ports:      make(map[Component]int),
	}

	for _, c := range AllComponents {
		key := "components." + string(c)
		if root.Get(key).Bool() {
			plan.Components[c] = true
		}
		if portResult := root.Get("ports." + string(c)); portResult.Exists() {
			plan.Ports[c] = int(portResult.Int())
		}
	}

	plan.TargetInstallPath = root.Get("targetInstallPath").String()
	plan.SourceImagePath = root.Get("sourceImagePath").String()
	plan.BackupPath = root.Get("backupPath").String()
	plan.MasterServerAddr = root.Get("masterServerAddr").String()
	plan.MasterServerUser = root.Get("masterServerUser").String()
	plan.MasterServerPass = root.Get("masterServerPass").String()
	plan.Security.CertificateID = root.Get("security.certificateId").String()

	return plan, nil
}
