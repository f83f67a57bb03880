package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studydex/internal/model"
)

func readFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "backup.json"))
	require.NoError(t, err)
	return data
}

func TestImportFixture(t *testing.T) {
	s, err := Import(readFixture(t))
	require.NoError(t, err)

	assert.True(t, s.Ledger.Coins.Equal(decimal.RequireFromString("4.5")))
	assert.True(t, s.Ledger.TotalStudyHours.Equal(decimal.RequireFromString("12.5")))
	require.Len(t, s.Collection.Owned, 2)

	eevee := s.Collection.Owned[0]
	assert.Equal(t, "Fluffy", eevee.Nickname)
	assert.True(t, eevee.IsFavorite)
	assert.Equal(t, time.Date(2024, 3, 9, 14, 2, 11, 250_000_000, time.UTC), eevee.CaughtAt)
	assert.Empty(t, s.Collection.Owned[1].Nickname)

	assert.Equal(t, []int{1, 2, 133}, s.Collection.Discovered)
	require.Len(t, s.Trades, 1)
	assert.Equal(t, int64(1710000000000), s.Trades[0].Timestamp.UnixMilli())
	assert.True(t, s.Settings.DarkMode)
	assert.Equal(t, "2024-03-10", s.LastLoginDate)
}

func TestExportImportRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 30, 15, 123_456_789, time.FixedZone("x", 3600))
	s := model.NewState(now)
	s.Ledger.Coins = decimal.RequireFromString("7.25")
	s.Ledger.TotalStudyHours = decimal.RequireFromString("19.25")
	s.Collection.Owned = []model.OwnedInstance{
		{InstanceID: "a", SpeciesID: 25, Nickname: "Sparky", IsFavorite: true, CaughtAt: model.Timestamp(now)},
		{InstanceID: "b", SpeciesID: 4, CaughtAt: model.Timestamp(now.Add(time.Hour))},
	}
	s.Collection.Discovered = []int{1, 4, 25}
	s.Trades = []model.TradeRecord{{Timestamp: model.Timestamp(now.Add(-time.Hour))}}
	s.Settings.Scale = 1.25

	data, err := Export(s)
	require.NoError(t, err)
	back, err := Import(data)
	require.NoError(t, err)

	assert.True(t, back.Ledger.Coins.Equal(s.Ledger.Coins))
	assert.True(t, back.Ledger.TotalStudyHours.Equal(s.Ledger.TotalStudyHours))
	back.Ledger, s.Ledger = model.Ledger{}, model.Ledger{}
	assert.Equal(t, s, back)

	again, err := Export(back)
	require.NoError(t, err)
	var first, second map[string]any
	require.NoError(t, json.Unmarshal(data, &first))
	require.NoError(t, json.Unmarshal(again, &second))
	delete(first, "coins")
	delete(first, "totalStudyHours")
	delete(second, "coins")
	delete(second, "totalStudyHours")
	assert.Equal(t, first, second)
}

func TestExportShape(t *testing.T) {
	data, err := Export(model.NewState(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{"coins", "totalStudyHours", "ownedPokemon", "seenPokemon", "trades", "settings", "lastLoginDate"} {
		assert.Contains(t, doc, key)
	}
	assert.JSONEq(t, `[]`, string(doc["ownedPokemon"]))
	assert.JSONEq(t, `[]`, string(doc["seenPokemon"]))
	assert.JSONEq(t, `[]`, string(doc["trades"]))
	assert.JSONEq(t, `0`, string(doc["coins"]))
	assert.JSONEq(t, `"2024-01-02"`, string(doc["lastLoginDate"]))
}

func TestImportRejectsMalformedDocuments(t *testing.T) {
	valid := func() map[string]any {
		var doc map[string]any
		require.NoError(t, json.Unmarshal(readFixture(t), &doc))
		return doc
	}
	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{name: "missing coins", mutate: func(d map[string]any) { delete(d, "coins") }, field: "coins"},
		{name: "missing trades", mutate: func(d map[string]any) { delete(d, "trades") }, field: "trades"},
		{name: "null owned", mutate: func(d map[string]any) { d["ownedPokemon"] = nil }, field: "ownedPokemon"},
		{name: "negative coins", mutate: func(d map[string]any) { d["coins"] = -1 }, field: "coins"},
		{name: "coins as text", mutate: func(d map[string]any) { d["coins"] = "lots" }},
		{name: "empty instance id", mutate: func(d map[string]any) {
			d["ownedPokemon"].([]any)[0].(map[string]any)["instanceId"] = ""
		}, field: "ownedPokemon[0]"},
		{name: "duplicate instance id", mutate: func(d map[string]any) {
			owned := d["ownedPokemon"].([]any)
			owned[1].(map[string]any)["instanceId"] = owned[0].(map[string]any)["instanceId"]
		}, field: "ownedPokemon[1]"},
		{name: "zero species", mutate: func(d map[string]any) {
			d["ownedPokemon"].([]any)[1].(map[string]any)["speciesId"] = 0
		}, field: "ownedPokemon[1]"},
		{name: "bad caughtAt", mutate: func(d map[string]any) {
			d["ownedPokemon"].([]any)[0].(map[string]any)["caughtAt"] = "yesterday"
		}, field: "ownedPokemon[0].caughtAt"},
		{name: "negative seen", mutate: func(d map[string]any) { d["seenPokemon"] = []any{1, -2} }, field: "seenPokemon[1]"},
		{name: "negative trade", mutate: func(d map[string]any) { d["trades"] = []any{map[string]any{"timestamp": -5}} }, field: "trades[0]"},
		{name: "bad login date", mutate: func(d map[string]any) { d["lastLoginDate"] = "10/03/2024" }, field: "lastLoginDate"},
		{name: "empty settings", mutate: func(d map[string]any) { d["settings"] = map[string]any{} }, field: "settings.dailyTarget"},
		{name: "settings without scale", mutate: func(d map[string]any) {
			delete(d["settings"].(map[string]any), "scale")
		}, field: "settings.scale"},
		{name: "zero daily target", mutate: func(d map[string]any) { d["settings"].(map[string]any)["dailyTarget"] = 0 }, field: "settings"},
		{name: "scale out of range", mutate: func(d map[string]any) { d["settings"].(map[string]any)["scale"] = 99 }, field: "settings"},
		{name: "named theme colour", mutate: func(d map[string]any) { d["settings"].(map[string]any)["themeColor"] = "blue" }, field: "settings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			tt.mutate(doc)
			data, err := json.Marshal(doc)
			require.NoError(t, err)

			_, err = Import(data)
			require.ErrorIs(t, err, ErrMalformedImport)
			var malformed *MalformedError
			require.ErrorAs(t, err, &malformed)
			if tt.field != "" {
				assert.Equal(t, tt.field, malformed.Field)
			}
		})
	}
}

func TestImportRejectsNonJSON(t *testing.T) {
	for _, input := range []string{"", "not json", "[1,2,3]", `{"coins": 1`} {
		_, err := Import([]byte(input))
		assert.ErrorIs(t, err, ErrMalformedImport, input)
	}
}

func TestImportAddsOwnedSpeciesToDiscovered(t *testing.T) {
	doc := `{"coins":0,"totalStudyHours":0,"ownedPokemon":[{"instanceId":"a","speciesId":9,"isFavorite":false,"caughtAt":"2024-01-01T00:00:00Z"}],
"seenPokemon":[],"trades":[],"settings":{"dailyTarget":3,"themeColor":"#3b82f6","scale":1,"darkMode":false},"lastLoginDate":"2024-01-01"}`
	s, err := Import([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []int{9}, s.Collection.Discovered)
}
