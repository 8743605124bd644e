package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayload_StringFlatAndNested(t *testing.T) {
	p := Payload{
		"itemId": "package_1",
		"npc":    map[string]interface{}{"id": "mayor"},
	}
	assert.Equal(t, "package_1", p.String("item_id", "itemId"))
	assert.Equal(t, "mayor", p.String("npcId", "npc.id"))
	assert.Equal(t, "", p.String("missing", "npc.name"))
}

func TestPayload_StringSkipsEmptyValues(t *testing.T) {
	p := Payload{"npcId": "", "npc_id": "mayor"}
	assert.Equal(t, "mayor", p.String("npcId", "npc_id"))
}

func TestPayload_NumbersRenderAsIDs(t *testing.T) {
	p := Payload{"itemId": float64(7), "ratio": 1.5}
	assert.Equal(t, "7", p.String("itemId"))
	assert.Equal(t, "1.5", p.String("ratio"))
}

func TestPayload_Int(t *testing.T) {
	p := Payload{"quantity": float64(3), "count": "5"}
	n, ok := p.Int("quantity")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = p.Int("missing", "count")
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	_, ok = p.Int("missing")
	assert.False(t, ok)
}

func TestPayload_IntOutOfRange(t *testing.T) {
	p := Payload{
		"huge":   "9223372036854775807",
		"big":    float64(1e20),
		"wide":   int64(1) << 40,
		"amount": float64(2),
	}
	_, ok := p.Int("huge")
	assert.False(t, ok)
	_, ok = p.Int("big")
	assert.False(t, ok)
	_, ok = p.Int("wide")
	assert.False(t, ok)

	n, ok := p.Int("huge", "big", "wide", "amount")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
}

func TestPayload_Strings(t *testing.T) {
	p := Payload{
		"abilities": []interface{}{"build", "dig"},
		"ability":   "fly",
	}
	assert.Equal(t, []string{"build", "dig"}, p.Strings("abilities"))
	assert.Equal(t, []string{"fly"}, p.Strings("abilitiesUsed", "ability"))
	assert.Nil(t, p.Strings("nothing"))
}

func TestAsPayload(t *testing.T) {
	assert.Equal(t, "x", AsPayload(map[string]interface{}{"a": "x"}).String("a"))
	assert.Equal(t, "x", AsPayload(Payload{"a": "x"}).String("a"))
	assert.Empty(t, AsPayload(42))
}
