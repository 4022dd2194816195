package quiz

import (
	"fmt"
	"strings"
)

// Category is one of the fixed personality archetypes a playthrough can resolve to.
type Category uint8

const (
	Timekeeper Category = iota
	CreativeSparkle
	MasterChef
	Gamemaster
	HarmonyKeeper
	FamilyConnector
	CelebrationFirecracker
	KnowledgeKeeper

	numCategories int = iota
)

// DefaultCategory is shown when the result view is reached without a resolved category.
const DefaultCategory = HarmonyKeeper

var categoryNames = [numCategories]string{
	"timekeeper",
	"creativeSparkle",
	"masterChef",
	"gamemaster",
	"harmonyKeeper",
	"familyConnector",
	"celebrationFirecracker",
	"knowledgeKeeper",
}

// older records and the result metadata call the harmony keeper "chillGuy"
var categoryAliases = map[string]Category{
	"chillguy": HarmonyKeeper,
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, numCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// NumCategories is the size of the closed category set.
func NumCategories() int { return numCategories }

func (c Category) Valid() bool { return int(c) < numCategories }

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
	return categoryNames[c]
}

// ParseCategory accepts the camelCase key of a category, case-insensitively.
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, name := range categoryNames {
		if strings.ToLower(name) == key {
			return Category(i), nil
		}
	}
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown personality category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid personality category %d", uint8(c))
	}
	return []byte(categoryNames[c]), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
