package cli

import "strings"

// messages holds the menu strings of one language.
type messages struct {
	MainTitle     string
	ViewWeather   string
	Configuration string
	RefreshAll    string
	Quit          string
	Back          string
	Choice        string
	InvalidChoice string
	Goodbye       string

	StationsTitle  string
	NoStations     string
	StationNumber  string
	ShowReadings   string
	RefreshStation string
	ChangeURL      string
	Measurements   string
	City           string
	Country        string
	Unknown        string

	ConfigTitle    string
	ListStations   string
	AddStation     string
	RenameStation  string
	RemoveStation  string
	ListCities     string
	RemoveCity     string
	ListCountries  string
	RemoveCountry  string
	AddCity        string
	AddCountry     string
	NoCities       string
	NoCountries    string
	CityNumber     string
	CountryNumber  string
	CountryPrompt  string
	CityPrompt     string
	NamePrompt     string
	NewNamePrompt  string
	CityNamePrompt string
	NewCountry     string
	URLPrompt      string
	CheckingURL    string
	URLUnreachable string
	Confirm        string
	ConfirmYes     string
	Cancelled      string
	Added          string
	CityAdded      string
	CountryAdded   string
	Renamed        string
	Removed        string
	URLUpdated     string
	NotFound       string
	Refreshed      string
	RefreshFailed  string
	RefreshSummary string
	Error          string
}

var frenchMessages = messages{
	MainTitle:     "MENU PRINCIPAL",
	ViewWeather:   "Voir la météo",
	Configuration: "Configuration",
	RefreshAll:    "Rafraîchir toutes les stations",
	Quit:          "Quitter le programme",
	Back:          "Retour",
	Choice:        "Entrez votre choix: ",
	InvalidChoice: "Choix invalide.",
	Goodbye:       "Au revoir !",

	StationsTitle:  "SÉLECTION DE LA STATION MÉTÉO",
	NoStations:     "Aucune station configurée.",
	StationNumber:  "Numéro de la station: ",
	ShowReadings:   "Afficher les mesures",
	RefreshStation: "Rafraîchir les données",
	ChangeURL:      "Modifier l'URL",
	Measurements:   "Mesures",
	City:           "Ville",
	Country:        "Pays",
	Unknown:        "Inconnu",

	ConfigTitle:    "CONFIGURATION",
	ListStations:   "Lister les stations",
	AddStation:     "Ajouter une station",
	RenameStation:  "Renommer une station",
	RemoveStation:  "Supprimer une station",
	ListCities:     "Lister les villes",
	RemoveCity:     "Supprimer une ville",
	ListCountries:  "Lister les pays",
	RemoveCountry:  "Supprimer un pays",
	AddCity:        "Ajouter une ville",
	AddCountry:     "Ajouter un pays",
	NoCities:       "Aucune ville configurée.",
	NoCountries:    "Aucun pays configuré.",
	CityNumber:     "Numéro de la ville: ",
	CountryNumber:  "Numéro du pays: ",
	CountryPrompt:  "Pays: ",
	CityPrompt:     "Ville: ",
	NamePrompt:     "Nom de la station: ",
	NewNamePrompt:  "Nouveau nom: ",
	CityNamePrompt: "Nom de la ville: ",
	NewCountry:     "Nom du pays: ",
	URLPrompt:      "URL de l'API: ",
	CheckingURL:    "Test de l'URL...",
	URLUnreachable: "Attention: l'URL ne répond pas correctement (%v). La station est ajoutée quand même.",
	Confirm:        "Confirmer la suppression (o/n)? ",
	ConfirmYes:     "o",
	Cancelled:      "Annulé.",
	Added:          "Station ajoutée.",
	CityAdded:      "Ville ajoutée.",
	CountryAdded:   "Pays ajouté.",
	Renamed:        "Station renommée.",
	Removed:        "Supprimé.",
	URLUpdated:     "URL mise à jour.",
	NotFound:       "Introuvable.",
	Refreshed:      "%d mesure(s) chargée(s) pour %s.",
	RefreshFailed:  "Échec du rafraîchissement: %v",
	RefreshSummary: "%d station(s) rafraîchie(s), %d en échec.",
	Error:          "Erreur: %v",
}

var englishMessages = messages{
	MainTitle:     "MAIN MENU",
	ViewWeather:   "View weather",
	Configuration: "Configuration",
	RefreshAll:    "Refresh all stations",
	Quit:          "Quit",
	Back:          "Back",
	Choice:        "Enter your choice: ",
	InvalidChoice: "Invalid choice.",
	Goodbye:       "Goodbye!",

	StationsTitle:  "WEATHER STATION SELECTION",
	NoStations:     "No station configured.",
	StationNumber:  "Station number: ",
	ShowReadings:   "Show measurements",
	RefreshStation: "Refresh data",
	ChangeURL:      "Change URL",
	Measurements:   "Measurements",
	City:           "City",
	Country:        "Country",
	Unknown:        "Unknown",

	ConfigTitle:    "CONFIGURATION",
	ListStations:   "List stations",
	AddStation:     "Add a station",
	RenameStation:  "Rename a station",
	RemoveStation:  "Remove a station",
	ListCities:     "List cities",
	RemoveCity:     "Remove a city",
	ListCountries:  "List countries",
	RemoveCountry:  "Remove a country",
	AddCity:        "Add a city",
	AddCountry:     "Add a country",
	NoCities:       "No city configured.",
	NoCountries:    "No country configured.",
	CityNumber:     "City number: ",
	CountryNumber:  "Country number: ",
	CountryPrompt:  "Country: ",
	CityPrompt:     "City: ",
	NamePrompt:     "Station name: ",
	NewNamePrompt:  "New name: ",
	CityNamePrompt: "City name: ",
	NewCountry:     "Country name: ",
	URLPrompt:      "API URL: ",
	CheckingURL:    "Checking the URL...",
	URLUnreachable: "Warning: the URL did not answer correctly (%v). The station is added anyway.",
	Confirm:        "Confirm removal (y/n)? ",
	ConfirmYes:     "y",
	Cancelled:      "Cancelled.",
	Added:          "Station added.",
	CityAdded:      "City added.",
	CountryAdded:   "Country added.",
	Renamed:        "Station renamed.",
	Removed:        "Removed.",
	URLUpdated:     "URL updated.",
	NotFound:       "Not found.",
	Refreshed:      "%d measurement(s) loaded for %s.",
	RefreshFailed:  "Refresh failed: %v",
	RefreshSummary: "%d station(s) refreshed, %d failed.",
	Error:          "Error: %v",
}

func messagesFor(lang string) messages {
	if strings.HasPrefix(strings.ToLower(lang), "en") {
		return englishMessages
	}
	return frenchMessages
}
