package salon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTestdata(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestParseCatalog(t *testing.T) {
	services, warnings := ParseCatalog(readTestdata(t, ServicesFile))
	require.Len(t, services, 9)

	first := services[0]
	assert.Equal(t, "SVC001", first.Code)
	assert.Equal(t, "Corte caballero", first.Name)
	assert.Equal(t, "Caballeros", first.Category)
	assert.Equal(t, "18 €", first.PriceText)
	require.NotNil(t, first.PriceAmount)
	assert.InDelta(t, 18.0, *first.PriceAmount, 0.001)
	assert.Equal(t, 30, first.Duration())

	byCode := make(map[string]Service)
	for _, s := range services {
		byCode[s.Code] = s
	}
	assert.Equal(t, "Niños", byCode["SVC003"].Category)
	assert.Nil(t, byCode["SVC020"].PriceAmount, "price with a prefix has no amount")
	require.NotNil(t, byCode["SVC021"].PriceAmount)
	assert.InDelta(t, 35.5, *byCode["SVC021"].PriceAmount, 0.001)
	svc020 := byCode["SVC020"]
	assert.Equal(t, 120, svc020.Duration())

	svc030 := byCode["SVC030"]
	assert.False(t, svc030.Schedulable())
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "SVC030")
}

func TestParseCatalog_DuplicateCodeLastWins(t *testing.T) {
	text := `— Cortes:
SVC001 — Corte caballero — 18 € — 30 min
SVC 002 — Corte + barba — 25 € — 45 min
svc001 — Corte clásico — 20 € — 40 min`

	services, warnings := ParseCatalog(text)
	require.Len(t, services, 2)
	assert.Equal(t, "svc001", services[0].Code)
	assert.Equal(t, "Corte clásico", services[0].Name)
	assert.Equal(t, 40, services[0].Duration())
	assert.Equal(t, "SVC002", services[1].Code, "spaces are removed from codes")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "duplicate")
}

func TestParseCatalog_IgnoresShortLines(t *testing.T) {
	services, _ := ParseCatalog("SVC001 — Corte — 18 €\nplain text\n\n")
	assert.Empty(t, services)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"18 €", ptr(18.0)},
		{"22,50 EUR", ptr(22.5)},
		{"35.5eur", ptr(35.5)},
		{"desde 80 €", nil},
		{"consultar", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := ParsePrice(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, tt.in)
			continue
		}
		require.NotNil(t, got, tt.in)
		assert.InDelta(t, *tt.want, *got, 0.001, tt.in)
	}
}

func TestClassifyService(t *testing.T) {
	tests := []struct {
		category, name string
		want           []string
	}{
		{"Caballeros", "Corte caballero", []string{"men_cuts"}},
		{"Caballeros", "Corte + barba", []string{"barber_beard", "men_cuts"}},
		{"Niños", "Corte niño (hasta 10 años)", []string{"kids"}},
		{"Señoras", "Corte señora", []string{"women_cuts"}},
		{"Color", "Mechas balayage", []string{"color", "highlights"}},
		{"Tratamientos", "Tratamiento enzimoterapia", []string{"smoothing", "treatments"}},
		{"Peinados", "Trenza de raíz", []string{"braids", "styling"}},
		{"Men", "Skin fade", []string{"men_cuts"}},
		{"Women", "Blow dry", []string{"women_cuts"}},
		{"General", "Consulta", []string{TagGeneralist}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyService(tt.category, tt.name), tt.name)
	}
}

func ptr[T any](v T) *T { return &v }
