package salon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchService(t *testing.T) {
	db := loadTestDB(t, Options{})

	tests := []struct {
		query string
		want  string
	}{
		// bare haircut requests
		{"стрижка", "SVC001"},
		{"Хочу подстричься", "SVC001"},
		{"мужская стрижка", "SVC001"},
		{"corte de pelo", "SVC001"},
		{"haircut please", "SVC001"},
		{"стрижка бороды", "SVC002"},
		{"corte y barba", "SVC002"},
		{"женская стрижка", "SVC016"},
		{"corte para mujer", "SVC016"},
		{"стрижка для ребёнка", "SVC003"},
		{"corte niña", "SVC003"},
		{"haircut for a kid", "SVC003"},
		{"стрижка для девочки с бородой", "SVC002"},
		// exact code and name
		{"SVC021", "SVC021"},
		{"svc017", "SVC017"},
		{"Arreglo de barba", "SVC004"},
		{"secado y peinado", "SVC017"},
		// keyword and fragment
		{"barba", "SVC002"},
		{"Mechas balayage", "SVC020"},
		{"mechas balayage (pelo corto)", "SVC020"},
		{"baño de color", "SVC021"},
		{"BANO DE COLOR", "SVC021"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := db.MatchService(tt.query)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Code)
		})
	}
}

func TestMatchService_NoMatch(t *testing.T) {
	db := loadTestDB(t, Options{})
	for _, q := range []string{"", "   ", "маникюр", "SVC999", "стрижка горячими ножницами"} {
		assert.Nil(t, db.MatchService(q), q)
	}
}

func TestMatchService_DeclaredDefaults(t *testing.T) {
	db := loadTestDB(t, Options{DefaultServices: map[string]string{TagMenCuts: "SVC002"}})
	assert.Equal(t, "SVC002", db.MatchService("стрижка").Code)
}

func TestMatchService_NoHaircutDefault(t *testing.T) {
	db, err := Build(Sources{
		Facts:    "Hours: Mon-Fri: 09:00-18:00",
		Services: "— Color:\nSVC100 — Baño de color — 30 € — 60 min",
	}, Options{})
	require.NoError(t, err)
	assert.Nil(t, db.MatchService("стрижка"))
	assert.Equal(t, "SVC100", db.MatchService("baño de color").Code)
}

func TestMatchServices(t *testing.T) {
	db := loadTestDB(t, Options{})
	matched, missing := db.MatchServices([]string{"SVC001", "маникюр", "", "barba"})
	require.Len(t, matched, 2)
	assert.Equal(t, "SVC001", matched[0].Code)
	assert.Equal(t, "SVC002", matched[1].Code)
	assert.Equal(t, []string{"маникюр"}, missing)
}
