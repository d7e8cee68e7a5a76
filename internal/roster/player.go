package roster

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// Column headers used by the league registration export.
const (
	ColEvalID          = "Evaluation ID"
	ColFirstName       = "Player First Name"
	ColLastName        = "Player Last Name"
	ColAccountLastName = "Account Last Name"
	ColStreet          = "Street Address"
	ColCity            = "City"
	ColState           = "State"
	ColPostalCode      = "Postal Code"
	ColBirthDate       = "Player Birth Date"
	ColGender          = "Player Gender"
	ColJerseySize      = "Jersey Size"
	ColAllergies       = "Player Allergies"
	ColEmail           = "User Email"
	ColPhone           = "Cellphone"
)

// divisionColumns are tried in order; registration exports are not consistent.
var divisionColumns = []string{"Division", "division", "Player Division", "Player Division Name"}

var knownColumns = []string{
	ColEvalID, ColFirstName, ColLastName, ColAccountLastName, ColStreet, ColCity, ColState,
	ColPostalCode, ColBirthDate, ColGender, ColJerseySize, ColAllergies, ColEmail, ColPhone,
}

var birthDateLayouts = []string{
	"1/2/2006",
	"01/02/2006",
	"2006-01-02",
	"1/2/06",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC3339,
}

// Player is one registered player. Core fields are fixed at ingest; Division
// changes during assignment and Drafted changes with picks and undos.
type Player struct {
	ID              string            `json:"id"`
	Index           int               `json:"index"`
	EvalID          string            `json:"evalId"`
	FirstName       string            `json:"firstName"`
	LastName        string            `json:"lastName"`
	AccountLastName string            `json:"accountLastName"`
	Street          string            `json:"street"`
	City            string            `json:"city"`
	State           string            `json:"state"`
	PostalCode      string            `json:"postalCode"`
	BirthDate       string            `json:"birthDate"`
	Gender          string            `json:"gender"`
	JerseySize      string            `json:"jerseySize"`
	Allergies       string            `json:"allergies"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	Age             int               `json:"age"`
	Division        string            `json:"division"`
	Drafted         bool              `json:"drafted"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// Address joins the address columns the way the roster export prints them.
func (p Player) Address() string {
	return strings.TrimSpace(p.Street + ", " + p.City + ", " + p.State + " " + p.PostalCode)
}

// FromRecords builds players from header-keyed records. Ids are assigned by
// position so the same file always yields the same ids.
func FromRecords(records []map[string]string, clock clockwork.Clock) []Player {
	now := clock.Now()
	players := make([]Player, 0, len(records))
	for idx, rec := range records {
		players = append(players, fromRecord(idx, rec, now))
	}
	return players
}

func fromRecord(idx int, rec map[string]string, now time.Time) Player {
	p := Player{
		ID:              PlayerID(idx),
		Index:           idx,
		EvalID:          rec[ColEvalID],
		FirstName:       rec[ColFirstName],
		LastName:        rec[ColLastName],
		AccountLastName: rec[ColAccountLastName],
		Street:          rec[ColStreet],
		City:            rec[ColCity],
		State:           rec[ColState],
		PostalCode:      rec[ColPostalCode],
		BirthDate:       rec[ColBirthDate],
		Gender:          rec[ColGender],
		JerseySize:      rec[ColJerseySize],
		Allergies:       rec[ColAllergies],
		Email:           rec[ColEmail],
		Phone:           rec[ColPhone],
	}
	p.Age = AgeOn(p.BirthDate, now)

	for _, col := range divisionColumns {
		if v, ok := rec[col]; ok {
			p.Division = NormalizeDivision(v)
			break
		}
	}

	for k, v := range rec {
		if slices.Contains(knownColumns, k) || slices.Contains(divisionColumns, k) {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]string)
		}
		p.Extra[k] = v
	}
	return p
}

// PlayerID is the stable id for the player at ingest position idx.
func PlayerID(idx int) string {
	return "player-" + strconv.Itoa(idx)
}

func NormalizeDivision(raw string) string {
	return strings.TrimSpace(raw)
}

// AgeOn returns the age in whole years at now, or 0 when birthDate is blank or
// cannot be parsed.
func AgeOn(birthDate string, now time.Time) int {
	birthDate = strings.TrimSpace(birthDate)
	if birthDate == "" {
		return 0
	}
	var birth time.Time
	parsed := false
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, birthDate); err == nil {
			birth, parsed = t, true
			break
		}
	}
	if !parsed {
		return 0
	}

	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
