package quiz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	got, err := ParseCategory(" CHILLGUY ")
	require.NoError(t, err)
	assert.Equal(t, HarmonyKeeper, got)

	_, err = ParseCategory("wizard")
	assert.Error(t, err)
}

func TestCategoryJSONUsesNames(t *testing.T) {
	b, err := json.Marshal(map[string]Category{"result": CelebrationFirecracker})
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":"celebrationFirecracker"}`, string(b))

	var out struct {
		Result Category `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"result":"chillGuy"}`), &out))
	assert.Equal(t, HarmonyKeeper, out.Result)

	_, err = json.Marshal(Category(42))
	assert.Error(t, err)
}

func TestDefaultCategoryIsHarmonyKeeper(t *testing.T) {
	assert.Equal(t, "harmonyKeeper", DefaultCategory.String())
	assert.Equal(t, 8, NumCategories())
}
