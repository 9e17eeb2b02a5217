package salon

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStoreFacts(t *testing.T) {
	text, err := os.ReadFile("testdata/kb_facts.txt")
	require.NoError(t, err)

	store, warnings := ParseStoreFacts(string(text))
	assert.Empty(t, warnings)
	assert.Equal(t, DefaultStoreName, store.Name)
	assert.Equal(t, "Calle del Coso 12, 50001 Zaragoza", store.Address)
	assert.Equal(t, "+34 976 123 456", store.Phone)
	assert.Equal(t, "hola@betran-estilistas.es", store.Email)
	assert.Equal(t, DefaultTimezone, store.Timezone)
	assert.Equal(t, []string{"09:30-13:30", "16:00-20:00"}, store.Hours["Wed"])
	assert.Equal(t, []string{"09:00-14:00"}, store.Hours["Sat"])
	assert.ElementsMatch(t, []string{"Mon", "Sun"}, store.ClosedDays)
	assert.Equal(t, "@betranestilistas", store.Socials["instagram"])
	assert.Equal(t, "естественный уход и точная техника", store.Notes["philosophy"])
	assert.NotEmpty(t, store.Notes["community"])
}

func TestParseStoreFacts_LocalizedLabels(t *testing.T) {
	store, _ := ParseStoreFacts("Nombre: Peluquería Sol\n" +
		"Zona horaria: Atlantic/Canary\n" +
		"Dirección: Calle Mayor 1.\n" +
		"Teléfono: 928 000 000\n" +
		"Horario: Mon-Sat: 10:00-19:00; Sun: cerrado\n")

	assert.Equal(t, "Peluquería Sol", store.Name)
	assert.Equal(t, "Atlantic/Canary", store.Timezone)
	assert.Equal(t, "Calle Mayor 1", store.Address)
	assert.Equal(t, "928 000 000", store.Phone)
	assert.Empty(t, store.Email)
	assert.Equal(t, []string{"10:00-19:00"}, store.Hours["Mon"])
	assert.True(t, store.IsClosedDay("Sun"))
}

func TestStoreInfo_IsHoliday(t *testing.T) {
	store := StoreInfo{Holidays: []string{"2025-12-25"}}
	assert.True(t, store.IsHoliday("2025-12-25"))
	assert.True(t, store.IsHoliday("2025-12-25T10:00:00+01:00"))
	assert.False(t, store.IsHoliday("2025-12-26"))
}
