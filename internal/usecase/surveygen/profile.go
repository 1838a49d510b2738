package surveygen

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"qsurvey/internal/errs"
)

// Profile is an optional TOML file that overrides the configured stage
// temperatures and the default item count for a batch of runs. Zero values
// leave the configured value in place.
type Profile struct {
	ItemCount   int     `toml:"item_count"`
	Analysis    float64 `toml:"analysis_temp"`
	Selection   float64 `toml:"selection_temp"`
	Generation  float64 `toml:"generation_temp"`
	Refinement  float64 `toml:"refinement_temp"`
	Consolidate float64 `toml:"consolidate_temp"`
}

func LoadProfile(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, errs.Wrapf(err, "read profile %s", path)
	}
	var p Profile
	if err := toml.Unmarshal(raw, &p); err != nil {
		return Profile{}, errs.Wrapf(err, "parse profile %s", path)
	}
	return p, nil
}

// Apply overlays non-zero profile values onto the given temperatures.
func (p Profile) Apply(temps StageTemperatures) StageTemperatures {
	if p.Analysis > 0 {
		temps.Analysis = p.Analysis
	}
	if p.Selection > 0 {
		temps.Selection = p.Selection
	}
	if p.Generation > 0 {
		temps.Generation = p.Generation
	}
	if p.Refinement > 0 {
		temps.Refinement = p.Refinement
	}
	if p.Consolidate > 0 {
		temps.Consolidate = p.Consolidate
	}
	return temps
}
