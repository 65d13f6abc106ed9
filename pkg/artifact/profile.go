package artifact

import (
	"encoding/json"
	"fmt"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/stats"
)

// ProfileFile holds per-column statistics of the training partition, written
// under DataDir next to the partitions.
const ProfileFile = "profile.json"

// WriteProfile writes profiles keyed by column name.
func WriteProfile(path string, profiles map[string]stats.Profile) error {
	b, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: encode profile: %w", err)
	}
	return writeAtomic(path, append(b, '\n'))
}
