package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteoboard/meteoboard/internal/cli"
	"github.com/meteoboard/meteoboard/internal/registry"
	"github.com/meteoboard/meteoboard/internal/stationconfig"
	"github.com/meteoboard/meteoboard/internal/weather/render"
)

type stubFetcher map[string]any

func (f stubFetcher) Fetch(_ context.Context, url string) (any, error) {
	payload, ok := f[url]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return payload, nil
}

func newRegistry(t *testing.T, fetcher registry.Fetcher) *registry.Service {
	t.Helper()
	svc, err := registry.NewService(registry.ServiceConfig{
		Store:   stationconfig.NewStore(stationconfig.StoreConfig{Backend: stationconfig.NewMemoryBackend(nil), Logger: zerolog.Nop()}),
		Fetcher: fetcher,
		Logger:  zerolog.Nop(),
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func runMenu(t *testing.T, reg *registry.Service, lang, input string) string {
	t.Helper()
	var out bytes.Buffer
	menu := cli.New(cli.Config{
		Registry: reg,
		Renderer: render.Renderer{Width: 80},
		Language: lang,
		In:       strings.NewReader(input),
		Out:      &out,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, menu.Run(context.Background()))
	return out.String()
}

func lines(in ...string) string {
	return strings.Join(in, "\n") + "\n"
}

func TestMenu_Quit(t *testing.T) {
	out := runMenu(t, newRegistry(t, stubFetcher{}), "", lines("0"))

	assert.Contains(t, out, "MENU PRINCIPAL")
	assert.Contains(t, out, "1. Voir la météo")
	assert.Contains(t, out, "Au revoir !")
}

func TestMenu_EndOfInput(t *testing.T) {
	out := runMenu(t, newRegistry(t, stubFetcher{}), "", "")
	assert.Contains(t, out, "Au revoir !")
}

func TestMenu_InvalidChoice(t *testing.T) {
	out := runMenu(t, newRegistry(t, stubFetcher{}), "", lines("9", "x", "0"))
	assert.Equal(t, 2, strings.Count(out, "Choix invalide."))
}

func TestMenu_ViewRefreshAndShow(t *testing.T) {
	reg := newRegistry(t, stubFetcher{
		stationconfig.MontaudranURL: map[string]any{"results": []any{
			map[string]any{"heure_de_paris": "2025-01-01T10:00:00+00:00", "temperature_en_degre_c": 12.5, "humidite": 80, "pression": 101300},
		}},
	})

	out := runMenu(t, reg, "", lines(
		"1", // view weather
		"1", // first station
		"2", // refresh
		"1", // show
		"0", // back
		"0", // quit
	))

	assert.Contains(t, out, "STATION: Toulouse - Montaudran")
	assert.Contains(t, out, "1 mesure(s) chargée(s) pour Toulouse - Montaudran.")
	assert.Contains(t, out, "DATE: 01/01/2025")
	assert.Contains(t, out, "1013.0")

	st, ok := reg.FindByName("Toulouse - Montaudran")
	require.True(t, ok)
	assert.Equal(t, 1, st.MeasurementCount())
}

func TestMenu_RefreshFailureContinues(t *testing.T) {
	reg := newRegistry(t, stubFetcher{})

	out := runMenu(t, reg, "", lines("1", "2", "2", "0", "0"))

	assert.Contains(t, out, "Échec du rafraîchissement")
	assert.Contains(t, out, "Au revoir !")
}

func TestMenu_RefreshAll(t *testing.T) {
	reg := newRegistry(t, stubFetcher{
		stationconfig.CompansURL: map[string]any{"results": []any{}},
	})

	out := runMenu(t, reg, "en", lines("r", "0"))

	assert.Contains(t, out, "1 station(s) refreshed, 1 failed.")
	assert.Contains(t, out, "Toulouse - Montaudran: ")
}

func TestMenu_ChangeURL(t *testing.T) {
	reg := newRegistry(t, stubFetcher{})

	out := runMenu(t, reg, "", lines("1", "1", "3", "http://moved", "0", "0"))

	assert.Contains(t, out, "URL mise à jour.")
	st, ok := reg.FindByName("Toulouse - Montaudran")
	require.True(t, ok)
	assert.Equal(t, "http://moved", st.URL)
}

func TestMenu_AddStation(t *testing.T) {
	reg := newRegistry(t, stubFetcher{})

	out := runMenu(t, reg, "", lines("2", "2", "France", "Lyon", "Bron", "http://bron", "0", "0"))

	assert.Contains(t, out, "Test de l'URL...")
	assert.Contains(t, out, "Attention: l'URL ne répond pas correctement (")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "Station ajoutée.", "an unreachable URL does not block the add")
	st, ok := reg.FindByName("Bron")
	require.True(t, ok)
	assert.Equal(t, "Lyon", st.CityName())
	assert.Equal(t, 3, reg.Len())
}

func TestMenu_AddStationReachableURL(t *testing.T) {
	reg := newRegistry(t, stubFetcher{"http://bron": map[string]any{"results": []any{}}})

	out := runMenu(t, reg, "en", lines("2", "2", "France", "Lyon", "Bron", "http://bron", "0", "0"))

	assert.Contains(t, out, "Checking the URL...")
	assert.NotContains(t, out, "Warning:")
	assert.Contains(t, out, "Station added.")
	assert.Equal(t, 3, reg.Len())
}

func TestMenu_AddCountryAndCity(t *testing.T) {
	reg := newRegistry(t, stubFetcher{})

	out := runMenu(t, reg, "", lines(
		"2",
		"10", "Espagne", // add country
		"9", "2", "Madrid", // add city to the second country
		"10", "", // empty name
		"0", "0",
	))

	assert.Contains(t, out, "Pays ajouté.")
	assert.Contains(t, out, "2. Espagne")
	assert.Contains(t, out, "Ville ajoutée.")
	assert.Contains(t, out, "Erreur: ")

	countries := reg.Countries()
	require.Len(t, countries, 2)
	assert.Equal(t, "Espagne", countries[1].Name)

	cities := reg.Cities(countries[1].ID)
	require.Len(t, cities, 1)
	assert.Equal(t, "Madrid", cities[0].Name)
	assert.Equal(t, 2, reg.Len(), "no station is created")
}

func TestMenu_AddCityWithoutCountries(t *testing.T) {
	reg := newRegistry(t, stubFetcher{})
	_, err := reg.RemoveCountry(context.Background(), reg.Countries()[0].ID)
	require.NoError(t, err)

	out := runMenu(t, reg, "en", lines("2", "9", "0", "0"))

	assert.Contains(t, out, "No country configured.")
	assert.Empty(t, reg.Cities(""))
}

func TestMenu_AddStationValidation(t *testing.T) {
	reg := newRegistry(t, stubFetcher{})

	out := runMenu(t, reg, "", lines("2", "2", "France", "Lyon", "", "http://bron", "0", "0"))

	assert.Contains(t, out, "Erreur: ")
	assert.Equal(t, 2, reg.Len())
}

func TestMenu_RenameAndRemoveStation(t *testing.T) {
	reg := newRegistry(t, stubFetcher{})

	out := runMenu(t, reg, "", lines(
		"2",
		"3", "1", "Montaudran", // rename first station
		"4", "2", "n", // cancelled removal
		"4", "2", "o", // removal
		"0", "0",
	))

	assert.Contains(t, out, "Station renommée.")
	assert.Contains(t, out, "Annulé.")
	assert.Contains(t, out, "Supprimé.")

	require.Equal(t, 1, reg.Len())
	assert.Equal(t, "Montaudran", reg.Station(0).Name)
}

func TestMenu_RemoveCountryCascades(t *testing.T) {
	reg := newRegistry(t, stubFetcher{})

	out := runMenu(t, reg, "", lines("2", "7", "8", "1", "o", "5", "0", "0"))

	assert.Contains(t, out, "1. France")
	assert.Contains(t, out, "Aucune ville configurée.")
	assert.Zero(t, reg.Len())
	assert.Empty(t, reg.Countries())
}

func TestMenu_RemoveCity(t *testing.T) {
	reg := newRegistry(t, stubFetcher{})

	out := runMenu(t, reg, "en", lines("2", "6", "1", "y", "0", "0"))

	assert.Contains(t, out, "1. Toulouse (France)")
	assert.Contains(t, out, "Removed.")
	assert.Zero(t, reg.Len())
	assert.Len(t, reg.Countries(), 1)
}

func TestMenu_NoStations(t *testing.T) {
	reg := newRegistry(t, stubFetcher{})
	_, err := reg.RemoveCountry(context.Background(), reg.Countries()[0].ID)
	require.NoError(t, err)

	out := runMenu(t, reg, "", lines("1", "0"))
	assert.Contains(t, out, "Aucune station configurée.")
}

func TestTerminalWidth(t *testing.T) {
	assert.Equal(t, 132, cli.TerminalWidth(nil, 132))
	assert.Equal(t, render.DefaultWidth, cli.TerminalWidth(nil, 0))

	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, render.DefaultWidth, cli.TerminalWidth(f, 0), "regular files are not terminals")
}

var _ registry.Fetcher = stubFetcher{}
