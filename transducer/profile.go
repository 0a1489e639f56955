package transducer

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Profile describes which UI event families the transducer emits for a
// particular audience. Lifecycle events (start, error, finish, tripwire
// data) are always emitted: suppressing them would break the terminal event
// guarantee. Suppressed families still fold into run buffers so snapshots
// stay complete.
type Profile struct {
	// Text controls text-start/delta/end emission.
	Text bool `yaml:"text"`
	// Reasoning controls reasoning-start/delta/end emission.
	Reasoning bool `yaml:"reasoning"`
	// Tools controls tool-input-available/tool-output-* emission.
	Tools bool `yaml:"tools"`
	// Sources controls source-url/source-document emission.
	Sources bool `yaml:"sources"`
	// Files controls file emission.
	Files bool `yaml:"files"`
	// Data controls custom data passthrough emission.
	Data bool `yaml:"data"`
	// Workflows controls nested run snapshot (data-workflow/data-network)
	// emission.
	Workflows bool `yaml:"workflows"`
}

// DefaultProfile returns a profile that emits every event family. This is
// the profile used by end-user chat views.
func DefaultProfile() Profile {
	return Profile{
		Text:      true,
		Reasoning: true,
		Tools:     true,
		Sources:   true,
		Files:     true,
		Data:      true,
		Workflows: true,
	}
}

// TextOnlyProfile returns a profile that emits only assistant text, suitable
// for minimal transcript views.
func TextOnlyProfile() Profile {
	return Profile{Text: true}
}

// ParseProfile decodes a YAML profile document. Services typically deploy
// audience profiles as configuration; absent keys default to false, so
// configs list only the families they want.
func ParseProfile(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	return p, nil
}
