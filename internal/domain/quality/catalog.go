// Package quality holds the static ISO/IEC 25010 quality model: nine top-level
// characteristics and their sub-characteristics. The catalogue is reference
// data only; survey questions keep free-text attribute labels and are never
// validated against it.
package quality

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type Characteristic struct {
	ID                 string              `yaml:"id"`
	Name               string              `yaml:"name"`
	NameEn             string              `yaml:"name_en"`
	Definition         string              `yaml:"definition"`
	SubCharacteristics []SubCharacteristic `yaml:"subcharacteristics"`
}

type SubCharacteristic struct {
	Name             string   `yaml:"name"`
	NameEn           string   `yaml:"name_en"`
	Definition       string   `yaml:"definition"`
	Keywords         []string `yaml:"keywords"`
	ExampleQuestions []string `yaml:"example_questions"`
}

type Catalog struct {
	Characteristics []Characteristic `yaml:"characteristics"`
}

var (
	loadedCatalog Catalog
	loadErr       error
	loadOnce      sync.Once
)

// Load parses the embedded catalogue once and returns the shared immutable copy.
func Load() (Catalog, error) {
	loadOnce.Do(func() {
		var c Catalog
		if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
			loadErr = fmt.Errorf("parse embedded quality catalog: %w", err)
			return
		}
		if len(c.Characteristics) != 9 {
			loadErr = fmt.Errorf("quality catalog must define 9 characteristics, got %d", len(c.Characteristics))
			return
		}
		loadedCatalog = c
	})

	return loadedCatalog, loadErr
}

// CharacteristicNames returns the nine names as "기능적합성 (Functional Suitability)".
func (c Catalog) CharacteristicNames() []string {
	names := make([]string, 0, len(c.Characteristics))
	for _, ch := range c.Characteristics {
		names = append(names, fmt.Sprintf("%s (%s)", ch.Name, ch.NameEn))
	}
	return names
}

// PromptList renders the numbered characteristic list used in stage prompts.
func (c Catalog) PromptList() string {
	var b strings.Builder
	for i, ch := range c.Characteristics {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, ch.Name, ch.NameEn)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ReferenceText renders the full catalogue as plain Korean prose, one block per
// characteristic, suitable for seeding a retrieval store.
func (c Catalog) ReferenceText() string {
	var b strings.Builder
	for _, ch := range c.Characteristics {
		fmt.Fprintf(&b, "%s (%s): %s\n", ch.Name, ch.NameEn, ch.Definition)
		for _, sub := range ch.SubCharacteristics {
			fmt.Fprintf(&b, "- %s (%s): %s\n", sub.Name, sub.NameEn, sub.Definition)
			if len(sub.Keywords) > 0 {
				fmt.Fprintf(&b, "  키워드: %s\n", strings.Join(sub.Keywords, ", "))
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FindCharacteristic matches by Korean or English name, ignoring case and spacing.
func (c Catalog) FindCharacteristic(name string) (Characteristic, bool) {
	needle := normalizeName(name)
	if needle == "" {
		return Characteristic{}, false
	}
	for _, ch := range c.Characteristics {
		if normalizeName(ch.Name) == needle || normalizeName(ch.NameEn) == needle {
			return ch, true
		}
	}
	return Characteristic{}, false
}

func normalizeName(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}
