package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "Delhi Burger", "Delhi Burger"},
		{"script removed", `<script>alert(1)</script>Paneer`, "Paneer"},
		{"tags stripped", "<b>Masala</b> Dosa", "Masala Dosa"},
		{"quotes and ampersand dropped", `Fish & "Chips" 'n'`, "Fish  Chips n"},
		{"angle brackets dropped", "a < b > c", "a  b  c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, String(tt.in))
		})
	}
}

func TestMap_Nested(t *testing.T) {
	in := map[string]interface{}{
		"customerName": "<i>Asha</i>",
		"capacity":     6,
		"items": []interface{}{
			map[string]interface{}{"name": "<b>Tea</b>", "quantity": 2},
		},
	}

	out := Map(in)

	assert.Equal(t, "Asha", out["customerName"])
	assert.Equal(t, 6, out["capacity"])
	item := out["items"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Tea", item["name"])
	assert.Equal(t, "<i>Asha</i>", in["customerName"])
}
