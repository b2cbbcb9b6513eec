package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/core"
	"subtrack/internal/seed"
)

// setupEnv points the CLI at a fresh SQLite file and a stub rate server.
func setupEnv(t *testing.T) {
	t.Helper()
	fxServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"amount":1.0,"base":"USD","rates":{"KRW":1350}}`))
	}))
	t.Cleanup(fxServer.Close)

	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "subtrack.db"))
	t.Setenv("FX_CACHE", "sqlite")
	t.Setenv("FX_BASE_URL", fxServer.URL)
	t.Setenv("AMQP_URL", "")
	t.Setenv("SEED_FILE", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	t.Setenv("LOG_LEVEL", "error")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	currencyFlag, seedForce, listAll, upcomingDays, reportYear = "", false, false, 0, 0

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedAndList(t *testing.T) {
	setupEnv(t)

	out, err := runCLI(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No subscriptions found.")

	out, err = runCLI(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("Seeded %d subscriptions.", len(seed.Demo())))

	out, err = runCLI(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing seeded")

	out, err = runCLI(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	for _, s := range seed.Demo() {
		assert.Contains(t, out, s.Name)
	}
	assert.Contains(t, out, "₩99,000")
	assert.Contains(t, out, "$15.99")
}

func TestReports(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "seed")
	require.NoError(t, err)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "breakdown in dollars",
			args: []string{"report", "breakdown", "--year", "2024", "--currency", "usd"},
			want: []string{"2024", "USD", "January", "December", "Total"},
		},
		{
			name: "year to date",
			args: []string{"report", "ytd", "--currency", "KRW"},
			want: []string{"CATEGORY", "TOTAL", "₩"},
		},
		{
			name: "current month",
			args: []string{"report", "month"},
			want: []string{"CATEGORY", "TOTAL"},
		},
		{
			name: "upcoming payments",
			args: []string{"upcoming", "--days", "31", "--currency", "USD"},
			want: []string{"DATE", "Total"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.args...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestInvalidCurrency(t *testing.T) {
	setupEnv(t)

	_, err := runCLI(t, "report", "ytd", "--currency", "EUR")
	assert.ErrorIs(t, err, core.ErrInvalidCurrency)
}

func TestFXCommands(t *testing.T) {
	setupEnv(t)

	out, err := runCLI(t, "fx", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "1 USD = 1,350 KRW")
	assert.Contains(t, out, "Source:  Frankfurter")
	assert.Contains(t, out, "State:   fresh")

	out, err = runCLI(t, "fx", "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "State:   fresh")
}
