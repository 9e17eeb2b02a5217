package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("N8N_PASSWORD", "s3cret")
	t.Setenv("GCAL_CALENDAR_MAP", "")
	path := writeConfig(t, `
knowledge:
  dir: ../salon/testdata
  holidays: ["2025-12-25"]
  staff:
    ruben:
      weekly_days_off: [Tue]
calendar:
  enabled: true
  cache_ttl_seconds: 120
  calendars:
    ana: ana@example.com
booking:
  base_url: http://n8n:5678
  user: agent
  password: ${N8N_PASSWORD}
  paths:
    book: /webhook/book
contacts:
  path: `+filepath.Join(dir, "nested", "contacts.db")+`
logging:
  level: DEBUG
  pretty: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Booking.Password)
	assert.Equal(t, "/webhook/book", cfg.Booking.Paths.Book)
	assert.Equal(t, "/api/booking/cancel", cfg.Booking.Paths.Cancel)
	assert.Equal(t, "/api/booking/find-by-phone", cfg.Booking.Paths.FindByPhone)
	assert.Equal(t, map[string]string{"ana": "ana@example.com"}, cfg.Calendar.Calendars)
	assert.Equal(t, 2*time.Minute, cfg.CalendarCacheTTL())
	assert.Equal(t, 3*time.Second, cfg.CalendarTimeout())
	assert.Equal(t, 10*time.Second, cfg.BookingTimeout())
	assert.Equal(t, 30*time.Second, cfg.ReloadInterval())
	assert.Equal(t, ":8080", cfg.API.Addr)
	assert.Equal(t, 8090, cfg.Monitoring.HealthCheckPort)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel())
	assert.False(t, cfg.PrettyLogs())
	assert.DirExists(t, filepath.Join(dir, "nested"))
	assert.Equal(t, filepath.Join(dir, "nested", "backups"), cfg.Contacts.Backup.Dir)
	assert.False(t, cfg.Contacts.Backup.Enabled)

	db, err := cfg.LoadKnowledge()
	require.NoError(t, err)
	assert.True(t, db.StaffMember("ana").Bookable())
	assert.False(t, db.StaffMember("ruben").Bookable())
	assert.Contains(t, db.StaffMember("ruben").WeeklyDaysOff, "Tue")
	assert.True(t, db.Store.IsHoliday("2025-12-25"))
	assert.Len(t, cfg.KnowledgePaths(), 5)
}

func TestLoad_CalendarMapFromEnv(t *testing.T) {
	t.Setenv("GCAL_CALENDAR_MAP", `{"ruben":"ruben@example.com","lucia":"lucia@example.com"}`)
	path := writeConfig(t, `
calendar:
  calendars:
    ana: ana@example.com
contacts:
  path: `+filepath.Join(t.TempDir(), "contacts.db")+`
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ruben": "ruben@example.com", "lucia": "lucia@example.com"}, cfg.Calendar.Calendars)
	assert.True(t, cfg.PrettyLogs())
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel())
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "knowledge: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("bad calendar map", func(t *testing.T) {
		t.Setenv("GCAL_CALENDAR_MAP", "ana=cal")
		_, err := Load(writeConfig(t, "app:\n  name: test\n"))
		assert.ErrorContains(t, err, "GCAL_CALENDAR_MAP")
	})
}

func TestCalendarCacheTTL(t *testing.T) {
	var cfg Config
	assert.Equal(t, time.Minute, cfg.CalendarCacheTTL())
	cfg.Calendar.CacheTTLSeconds = -1
	assert.Zero(t, cfg.CalendarCacheTTL())
}

func TestLoadKnowledge_Structured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  name: Test Salon
  timezone: Europe/Madrid
  hours:
    Mon: ["10:00-18:00"]
services:
  - code: SVC001
    name: Corte
    duration_min: 30
staff:
  - name: Ana
    summary: универсал
`), 0o600))

	var cfg Config
	cfg.Knowledge.Structured = path
	cfg.Calendar.Calendars = map[string]string{"ana": "cal-ana"}

	db, err := cfg.LoadKnowledge()
	require.NoError(t, err)
	assert.Equal(t, "Test Salon", db.Store.Name)
	require.NotNil(t, db.StaffMember("ana"))
	assert.True(t, db.StaffMember("ana").Bookable())
	assert.Equal(t, []string{path}, cfg.KnowledgePaths())
}
