package filter

import (
	"testing"
	"time"

	"restaurant-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	// Wednesday
	return time.Date(2026, 3, 18, 10, 30, 0, 0, time.UTC)
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
	}{
		{WindowToday, "2026-03-18", "2026-03-19"},
		{WindowYesterday, "2026-03-17", "2026-03-18"},
		{WindowThisWeek, "2026-03-16", "2026-03-23"},
		{WindowLastWeek, "2026-03-09", "2026-03-16"},
		{WindowLast7Days, "2026-03-12", "2026-03-19"},
		{WindowThisMonth, "2026-03-01", "2026-04-01"},
		{WindowLastMonth, "2026-02-01", "2026-03-01"},
		{WindowLast30Days, "2026-02-17", "2026-03-19"},
		{WindowThisYear, "2026-01-01", "2027-01-01"},
		{"2026-03-02", "2026-03-02", "2026-03-03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := Window(tt.name, fixedNow(), time.UTC)
			require.True(t, ok)
			assert.Equal(t, tt.start, start.Format("2006-01-02"))
			assert.Equal(t, tt.end, end.Format("2006-01-02"))
		})
	}

	_, _, ok := Window("fortnight", fixedNow(), time.UTC)
	assert.False(t, ok)
}

func TestWindow_SundayBelongsToPreviousWeek(t *testing.T) {
	sunday := time.Date(2026, 3, 22, 12, 0, 0, 0, time.UTC)
	start, _, ok := Window(WindowThisWeek, sunday, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "2026-03-16", start.Format("2006-01-02"))
}

func TestApply_TodayBoundaries(t *testing.T) {
	e := Evaluator{Now: fixedNow(), Location: time.UTC}
	docs := []models.Document{
		{"id": "late-yesterday", "createdAt": "2026-03-17T23:59:59.999Z"},
		{"id": "midnight", "createdAt": "2026-03-18T00:00:00Z"},
		{"id": "late-today", "createdAt": "2026-03-18T23:59:59.999Z"},
		{"id": "tomorrow", "createdAt": "2026-03-19T00:00:00Z"},
	}

	out, err := e.Apply(docs, map[string]interface{}{"createdAt": "today"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "midnight", out[0].ID())
	assert.Equal(t, "late-today", out[1].ID())
}

func TestApply_WindowUsesConfiguredZone(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	e := Evaluator{Now: fixedNow(), Location: kolkata}
	docs := []models.Document{
		// 2026-03-18 01:00 IST
		{"id": "early", "createdAt": "2026-03-17T19:30:00Z"},
		// 2026-03-17 23:00 IST
		{"id": "before", "createdAt": "2026-03-17T17:30:00Z"},
	}

	out, err := e.Apply(docs, map[string]interface{}{"createdAt": "today"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "early", out[0].ID())
}

func TestApply_Equality(t *testing.T) {
	e := Evaluator{Now: fixedNow(), Location: time.UTC}
	docs := []models.Document{
		{"id": "a", "name": "5", "status": "AVAILABLE", "capacity": float64(4)},
		{"id": "b", "name": "6", "status": "occupied", "capacity": float64(2)},
	}

	tests := []struct {
		name    string
		filters map[string]interface{}
		want    []string
	}{
		{"string vs number", map[string]interface{}{"name": 5}, []string{"a"}},
		{"case insensitive", map[string]interface{}{"status": "OCCUPIED"}, []string{"b"}},
		{"list membership", map[string]interface{}{"name": []interface{}{"5", "6"}}, []string{"a", "b"}},
		{"gt", map[string]interface{}{"capacity": map[string]interface{}{"$gt": 3}}, []string{"a"}},
		{"ne", map[string]interface{}{"status": map[string]interface{}{"$ne": "available"}}, []string{"b"}},
		{"in", map[string]interface{}{"status": map[string]interface{}{"$in": []interface{}{"AVAILABLE"}}}, []string{"a"}},
		{"no filters", nil, []string{"a", "b"}},
		{"no match", map[string]interface{}{"name": "9"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Apply(docs, tt.filters)
			require.NoError(t, err)
			ids := []string{}
			for _, d := range out {
				ids = append(ids, d.ID())
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestApply_FieldComparison(t *testing.T) {
	e := Evaluator{Now: fixedNow(), Location: time.UTC}
	docs := []models.Document{
		{"id": "low", "quantity": float64(2), "reorderLevel": float64(5)},
		{"id": "edge", "quantity": float64(5), "reorderLevel": float64(5)},
		{"id": "fine", "quantity": float64(20), "reorderLevel": float64(5)},
		{"id": "untracked", "quantity": float64(1)},
	}

	out, err := e.Apply(docs, map[string]interface{}{"quantity": map[string]interface{}{"$lteField": "reorderLevel"}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "low", out[0].ID())
	assert.Equal(t, "edge", out[1].ID())
}

func TestApply_UnknownComparator(t *testing.T) {
	e := Evaluator{Now: fixedNow(), Location: time.UTC}
	_, err := e.Apply(nil, map[string]interface{}{"quantity": map[string]interface{}{"$regex": "x"}})
	assert.Error(t, err)
}

func TestValues_ExpandsLists(t *testing.T) {
	doc := models.Document{
		"items": []interface{}{
			map[string]interface{}{"name": "Delhi Burger"},
			map[string]interface{}{"name": "Fries"},
		},
	}

	assert.Equal(t, []interface{}{"Delhi Burger", "Fries"}, Values(doc, "items.name"))
	assert.Empty(t, Values(doc, "items.price"))

	e := Evaluator{Now: fixedNow(), Location: time.UTC}
	out, err := e.Apply([]models.Document{doc}, map[string]interface{}{"items.name": "fries"})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestHasListTarget(t *testing.T) {
	assert.True(t, HasListTarget(map[string]interface{}{"name": []interface{}{"1", "2"}}))
	assert.True(t, HasListTarget(map[string]interface{}{"name": map[string]interface{}{"$in": []interface{}{"1"}}}))
	assert.False(t, HasListTarget(map[string]interface{}{"name": "1"}))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "today", Label("today"))
	assert.Equal(t, "this week", Label("this_week"))
	assert.Equal(t, "in the last 7 days", Label("last_7_days"))
	assert.Equal(t, "on 2026-03-02", Label("2026-03-02"))
	assert.Equal(t, "", Label(""))
}
