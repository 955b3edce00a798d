// Package cli implements the interactive station menu.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/meteoboard/meteoboard/internal/registry"
	"github.com/meteoboard/meteoboard/internal/weather"
	"github.com/meteoboard/meteoboard/internal/weather/render"
)

// errQuit unwinds the menu stack when the user quits or input ends.
var errQuit = errors.New("quit")

// Config holds configuration for the menu.
type Config struct {
	Registry *registry.Service
	Renderer render.Renderer
	Language string
	In       io.Reader
	Out      io.Writer
	Logger   zerolog.Logger
}

// Menu is a line-oriented menu over the station registry. Data errors are
// printed and the loop continues; only quitting or end of input stops it.
type Menu struct {
	registry *registry.Service
	renderer render.Renderer
	msg      messages
	in       *bufio.Scanner
	out      io.Writer
	logger   zerolog.Logger
}

// New creates a menu.
func New(cfg Config) *Menu {
	renderer := cfg.Renderer
	if renderer.Labels == (render.Labels{}) {
		renderer.Labels = render.LabelsFor(cfg.Language)
	}
	return &Menu{
		registry: cfg.Registry,
		renderer: renderer,
		msg:      messagesFor(cfg.Language),
		in:       bufio.NewScanner(cfg.In),
		out:      cfg.Out,
		logger:   cfg.Logger,
	}
}

// Run shows the main menu until the user quits, input ends or ctx is done.
func (m *Menu) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		m.header(m.msg.MainTitle)
		m.printf("1. %s\n", m.msg.ViewWeather)
		m.printf("2. %s\n", m.msg.Configuration)
		m.printf("r. %s\n", m.msg.RefreshAll)
		m.printf("0. %s\n", m.msg.Quit)

		choice, err := m.prompt(m.msg.Choice)
		if err != nil {
			break
		}

		switch strings.ToLower(choice) {
		case "1":
			err = m.weatherMenu(ctx)
		case "2":
			err = m.configMenu(ctx)
		case "r":
			m.refreshAll(ctx)
		case "0":
			err = errQuit
		default:
			m.printf("%s\n", m.msg.InvalidChoice)
		}
		if errors.Is(err, errQuit) {
			break
		}
	}

	m.printf("\n%s\n", m.msg.Goodbye)
	return ctx.Err()
}

func (m *Menu) weatherMenu(ctx context.Context) error {
	m.header(m.msg.StationsTitle)
	st, err := m.pickStation()
	if err != nil || st == nil {
		return err
	}
	return m.stationMenu(ctx, st.Name)
}

// stationMenu looks the station up by name on every pass, since a
// refresh or URL change rebuilds the registry.
func (m *Menu) stationMenu(ctx context.Context, name string) error {
	for ctx.Err() == nil {
		st, ok := m.registry.FindByName(name)
		if !ok {
			m.printf("%s\n", m.msg.NotFound)
			return nil
		}

		m.header(strings.ToUpper(m.renderer.Labels.Station) + ": " + st.Name)
		m.printf("%s: %s\n", m.msg.City, m.orUnknown(st.CityName()))
		m.printf("%s: %s\n", m.msg.Country, m.orUnknown(st.CountryName()))
		m.printf("%s: %d\n\n", m.msg.Measurements, st.MeasurementCount())
		m.printf("1. %s\n", m.msg.ShowReadings)
		m.printf("2. %s\n", m.msg.RefreshStation)
		m.printf("3. %s\n", m.msg.ChangeURL)
		m.printf("0. %s\n", m.msg.Back)

		choice, err := m.prompt(m.msg.Choice)
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			if err := m.renderer.Station(m.out, st); err != nil {
				m.printf(m.msg.Error+"\n", err)
			}
		case "2":
			m.refresh(ctx, st)
		case "3":
			url, err := m.prompt(m.msg.URLPrompt)
			if err != nil {
				return err
			}
			m.report(m.registry.UpdateURL(ctx, name, url))(m.msg.URLUpdated)
		case "0":
			return nil
		default:
			m.printf("%s\n", m.msg.InvalidChoice)
		}
	}
	return nil
}

func (m *Menu) configMenu(ctx context.Context) error {
	for ctx.Err() == nil {
		m.header(m.msg.ConfigTitle)
		m.printf("1. %s\n", m.msg.ListStations)
		m.printf("2. %s\n", m.msg.AddStation)
		m.printf("3. %s\n", m.msg.RenameStation)
		m.printf("4. %s\n", m.msg.RemoveStation)
		m.printf("5. %s\n", m.msg.ListCities)
		m.printf("6. %s\n", m.msg.RemoveCity)
		m.printf("7. %s\n", m.msg.ListCountries)
		m.printf("8. %s\n", m.msg.RemoveCountry)
		m.printf("9. %s\n", m.msg.AddCity)
		m.printf("10. %s\n", m.msg.AddCountry)
		m.printf("0. %s\n", m.msg.Back)

		choice, err := m.prompt(m.msg.Choice)
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			m.listStations()
		case "2":
			err = m.addStation(ctx)
		case "3":
			err = m.renameStation(ctx)
		case "4":
			err = m.removeStation(ctx)
		case "5":
			m.listCities()
		case "6":
			err = m.removeCity(ctx)
		case "7":
			m.listCountries()
		case "8":
			err = m.removeCountry(ctx)
		case "9":
			err = m.addCity(ctx)
		case "10":
			err = m.addCountry(ctx)
		case "0":
			return nil
		default:
			m.printf("%s\n", m.msg.InvalidChoice)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Menu) listStations() []*weather.Station {
	stations := m.registry.Stations()
	if len(stations) == 0 {
		m.printf("%s\n", m.msg.NoStations)
		return nil
	}
	for i, st := range stations {
		m.printf("%d. %s (%s, %s)\n", i+1, st.Name, m.orUnknown(st.CityName()), m.orUnknown(st.CountryName()))
		m.printf("   %s\n", st.URL)
	}
	return stations
}

// pickStation lists the stations and reads a 1-based index. It returns a
// nil station when the user goes back or the choice is invalid.
func (m *Menu) pickStation() (*weather.Station, error) {
	stations := m.listStations()
	if len(stations) == 0 {
		return nil, nil
	}
	m.printf("0. %s\n", m.msg.Back)

	i, err := m.promptIndex(m.msg.StationNumber, len(stations))
	if err != nil || i < 0 {
		return nil, err
	}
	return stations[i], nil
}

func (m *Menu) addStation(ctx context.Context) error {
	var fields [4]string
	prompts := []string{m.msg.CountryPrompt, m.msg.CityPrompt, m.msg.NamePrompt, m.msg.URLPrompt}
	for i, p := range prompts {
		v, err := m.prompt(p)
		if err != nil {
			return err
		}
		fields[i] = v
	}

	// The station is added even when its URL does not answer.
	if url := fields[3]; fields[2] != "" && url != "" {
		m.printf("%s\n", m.msg.CheckingURL)
		if err := m.registry.CheckURL(ctx, url); err != nil {
			m.printf(m.msg.URLUnreachable+"\n", err)
		}
	}

	_, err := m.registry.Add(ctx, fields[0], fields[1], fields[2], fields[3])
	if err != nil {
		m.printf(m.msg.Error+"\n", err)
		return nil
	}
	m.printf("%s\n", m.msg.Added)
	return nil
}

func (m *Menu) renameStation(ctx context.Context) error {
	st, err := m.pickStation()
	if err != nil || st == nil {
		return err
	}
	name, err := m.prompt(m.msg.NewNamePrompt)
	if err != nil {
		return err
	}
	m.report(m.registry.Rename(ctx, st.Name, name))(m.msg.Renamed)
	return nil
}

func (m *Menu) removeStation(ctx context.Context) error {
	st, err := m.pickStation()
	if err != nil || st == nil {
		return err
	}
	if ok, err := m.confirm(); !ok || err != nil {
		return err
	}
	m.report(m.registry.Remove(ctx, st.Name))(m.msg.Removed)
	return nil
}

func (m *Menu) listCities() int {
	cities := m.registry.Cities("")
	if len(cities) == 0 {
		m.printf("%s\n", m.msg.NoCities)
	}
	for i, c := range cities {
		m.printf("%d. %s (%s)\n", i+1, c.Name, m.orUnknown(c.Country))
	}
	return len(cities)
}

func (m *Menu) removeCity(ctx context.Context) error {
	n := m.listCities()
	if n == 0 {
		return nil
	}
	i, err := m.promptIndex(m.msg.CityNumber, n)
	if err != nil || i < 0 {
		return err
	}
	if ok, err := m.confirm(); !ok || err != nil {
		return err
	}
	m.report(m.registry.RemoveCity(ctx, m.registry.Cities("")[i].ID))(m.msg.Removed)
	return nil
}

func (m *Menu) addCity(ctx context.Context) error {
	n := m.listCountries()
	if n == 0 {
		return nil
	}
	i, err := m.promptIndex(m.msg.CountryNumber, n)
	if err != nil || i < 0 {
		return err
	}
	name, err := m.prompt(m.msg.CityNamePrompt)
	if err != nil {
		return err
	}
	if _, err := m.registry.AddCity(ctx, m.registry.Countries()[i].ID, name); err != nil {
		m.printf(m.msg.Error+"\n", err)
		return nil
	}
	m.printf("%s\n", m.msg.CityAdded)
	return nil
}

func (m *Menu) addCountry(ctx context.Context) error {
	name, err := m.prompt(m.msg.NewCountry)
	if err != nil {
		return err
	}
	if _, err := m.registry.AddCountry(ctx, name); err != nil {
		m.printf(m.msg.Error+"\n", err)
		return nil
	}
	m.printf("%s\n", m.msg.CountryAdded)
	return nil
}

func (m *Menu) listCountries() int {
	countries := m.registry.Countries()
	if len(countries) == 0 {
		m.printf("%s\n", m.msg.NoCountries)
	}
	for i, c := range countries {
		m.printf("%d. %s\n", i+1, c.Name)
	}
	return len(countries)
}

func (m *Menu) removeCountry(ctx context.Context) error {
	n := m.listCountries()
	if n == 0 {
		return nil
	}
	i, err := m.promptIndex(m.msg.CountryNumber, n)
	if err != nil || i < 0 {
		return err
	}
	if ok, err := m.confirm(); !ok || err != nil {
		return err
	}
	m.report(m.registry.RemoveCountry(ctx, m.registry.Countries()[i].ID))(m.msg.Removed)
	return nil
}

func (m *Menu) refresh(ctx context.Context, st *weather.Station) {
	n, err := m.registry.Refresh(ctx, st)
	if err != nil {
		m.printf(m.msg.RefreshFailed+"\n", err)
		return
	}
	m.printf(m.msg.Refreshed+"\n", n, st.Name)
}

func (m *Menu) refreshAll(ctx context.Context) {
	summary := m.registry.RefreshAll(ctx)
	for _, res := range summary.Results {
		if res.Error != "" {
			m.printf("  %s: %s\n", res.Station, res.Error)
		}
	}
	m.printf(m.msg.RefreshSummary+"\n", summary.Successful, summary.Failed)
}

// report prints err, a not-found notice, or done.
func (m *Menu) report(found bool, err error) func(done string) {
	return func(done string) {
		switch {
		case err != nil:
			m.printf(m.msg.Error+"\n", err)
		case !found:
			m.printf("%s\n", m.msg.NotFound)
		default:
			m.printf("%s\n", done)
		}
	}
}

func (m *Menu) confirm() (bool, error) {
	answer, err := m.prompt(m.msg.Confirm)
	if err != nil {
		return false, err
	}
	if strings.EqualFold(answer, m.msg.ConfirmYes) {
		return true, nil
	}
	m.printf("%s\n", m.msg.Cancelled)
	return false, nil
}

// promptIndex reads a 1-based choice and returns it 0-based, or -1 for
// "0" and invalid input.
func (m *Menu) promptIndex(prompt string, n int) (int, error) {
	choice, err := m.prompt(prompt)
	if err != nil {
		return -1, err
	}
	i, convErr := strconv.Atoi(choice)
	switch {
	case convErr != nil || i < 0 || i > n:
		m.printf("%s\n", m.msg.InvalidChoice)
		return -1, nil
	case i == 0:
		return -1, nil
	}
	return i - 1, nil
}

// prompt writes p and reads one trimmed line. End of input is errQuit.
func (m *Menu) prompt(p string) (string, error) {
	m.printf("%s", p)
	if !m.in.Scan() {
		if err := m.in.Err(); err != nil {
			m.logger.Warn().Err(err).Msg("reading input failed")
		}
		return "", errQuit
	}
	return strings.TrimSpace(m.in.Text()), nil
}

func (m *Menu) header(title string) {
	width := m.renderer.Width
	if width <= 0 {
		width = render.DefaultWidth
	}
	rule := strings.Repeat("=", width)
	m.printf("\n%s\n%s\n%s\n", rule, title, rule)
}

func (m *Menu) orUnknown(s string) string {
	if s == "" {
		return m.msg.Unknown
	}
	return s
}

func (m *Menu) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(m.out, format, args...)
}
