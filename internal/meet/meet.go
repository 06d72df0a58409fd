package meet

import (
	"strconv"
	"time"
)

// Level is the organisational level of a competition.
type Level string

const (
	LevelNational      Level = "NATIONAL"
	LevelRegional      Level = "REGIONAL"
	LevelDepartemental Level = "DEPARTEMENTAL"
	LevelInternational Level = "INTERNATIONAL"
)

// Gender is the single-letter gender used by swimmers and qualification grids.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// Competition is a swim meet listed on the live-results site.
type Competition struct {
	Level     Level      `json:"level" validate:"oneof=NATIONAL REGIONAL DEPARTEMENTAL INTERNATIONAL"`
	ID        string     `json:"ffnId" validate:"required"`
	Name      string     `json:"name" validate:"required"`
	PoolSize  int        `json:"poolsize" validate:"gt=0"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	Location  string     `json:"location,omitempty"`
	Image     string     `json:"image,omitempty" validate:"omitempty,url"`
	Entries   int        `json:"nbEntries" validate:"gte=0"`
	Swimmers  int        `json:"nbSwimmers" validate:"gte=0"`
}

// Club is a structure (club) taking part in a competition.
type Club struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// Swimmer is a competitor. Gender, club and birth year are only filled
// after the detail page has been fetched.
type Swimmer struct {
	ID        string `json:"id" validate:"required"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"`
	Gender    Gender `json:"gender,omitempty" validate:"omitempty,gender"`
	ClubID    string `json:"clubId,omitempty"`
	ClubName  string `json:"clubName,omitempty"`
	BirthYear int    `json:"birthYear,omitempty" validate:"omitempty,gte=1900"`
	Link      string `json:"link,omitempty"`
}

// Detailed reports whether the swimmer came from a detail page.
func (s *Swimmer) Detailed() bool {
	return s.Gender != ""
}

// EngagementKind discriminates the entries of a swimmer timeline.
type EngagementKind string

const (
	KindSession EngagementKind = "session"
	KindRace    EngagementKind = "race"
)

// Engagement is one entry of a swimmer's timeline. Races follow the session
// they belong to.
type Engagement struct {
	ID     string         `json:"id" validate:"required"`
	Kind   EngagementKind `json:"kind" validate:"oneof=session race"`
	Time   string         `json:"time,omitempty" validate:"omitempty,hhmm"`
	Label  string         `json:"label" validate:"required"`
	Meta   string         `json:"meta,omitempty"`
	Date   string         `json:"date,omitempty"`
	RaceID string         `json:"raceId,omitempty"`
}

// ProgramParams are the opaque identifiers of a race in the meet program.
type ProgramParams struct {
	CategoryID  string `json:"cat_id" validate:"required"`
	EventID     string `json:"epr_id" validate:"required"`
	TypeID      string `json:"typ_id" validate:"required"`
	EventNumber string `json:"num_epreuve" validate:"required"`
	Alea        string `json:"alea,omitempty"`
	Language    string `json:"langue,omitempty"`
}

// SeriesType tells individual heats apart from relays.
type SeriesType string

const (
	SeriesSimple SeriesType = "simple"
	SeriesRelay  SeriesType = "relay"
)

// LaneSwimmer is one lane of a heat.
type LaneSwimmer struct {
	Name        string `json:"name" validate:"required"`
	Year        string `json:"year,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	Club        string `json:"club,omitempty"`
	LastChrono  string `json:"lastChrono"`
}

// Series is a heat as listed on the program page.
type Series struct {
	Type      SeriesType    `json:"type" validate:"oneof=simple relay"`
	Number    string        `json:"nb"`
	MaxNumber string        `json:"maxNb"`
	Race      string        `json:"race" validate:"required"`
	Time      string        `json:"time"`
	Swimmers  []LaneSwimmer `json:"swimmers" validate:"dive"`
}

// SeriesList is every heat of one race.
type SeriesList struct {
	Race   string     `json:"race"`
	Type   SeriesType `json:"type"`
	Series []Series   `json:"series"`
}

// LaneView is a lane as presented to the caller.
type LaneView struct {
	Lane       int    `json:"lane"`
	Name       string `json:"name"`
	Club       string `json:"club"`
	EntryTime  string `json:"entryTime"`
	IsSelected bool   `json:"isSelected"`
}

// HeatView is a heat as presented to the caller.
type HeatView struct {
	SeriesNumber    int        `json:"seriesNumber"`
	IsSwimmerSeries bool       `json:"isSwimmerSeries"`
	Swimmers        []LaneView `json:"swimmers"`
}

// SeriesView is the heat listing of a race centred on one swimmer.
type SeriesView struct {
	Race               string     `json:"race"`
	TotalSeries        int        `json:"totalSeries"`
	SwimmerSeriesIndex int        `json:"swimmerSeriesIndex"`
	Type               SeriesType `json:"type"`
	Series             []HeatView `json:"series"`
}

// Split is one intermediate time of a result.
type Split struct {
	Distance   string `json:"distance"`
	Split      string `json:"split,omitempty"`
	Cumulative string `json:"cumulative,omitempty"`
}

// RaceResultEntry is one line of a race result. Rank, Time and Points are
// nil for disqualified or absent swimmers.
type RaceResultEntry struct {
	Rank          *int    `json:"rank"`
	SwimmerID     string  `json:"swimmerId" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	BirthYear     string  `json:"birthYear,omitempty"`
	Nationality   string  `json:"nationality,omitempty"`
	Club          string  `json:"club,omitempty"`
	Time          *string `json:"time"`
	Points        *int    `json:"points"`
	Reaction      string  `json:"reaction,omitempty"`
	Qualification string  `json:"qualification,omitempty"`
	Remark        string  `json:"remark,omitempty"`
	Splits        []Split `json:"splits"`
}

// RaceResults is the result sheet of one race.
type RaceResults struct {
	RaceID        string            `json:"raceId"`
	CompetitionID string            `json:"competId"`
	RaceName      string            `json:"raceName"`
	RaceDate      string            `json:"raceDate,omitempty"`
	Results       []RaceResultEntry `json:"results"`
}

// SwimmerResult is a race result narrowed to one swimmer.
type SwimmerResult struct {
	Race    *RaceResults     `json:"race"`
	Swimmer *RaceResultEntry `json:"swimmer"`
}

// Race is one entry of a competition race list.
type Race struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// QualificationTime is one cell of a qualification grid.
type QualificationTime struct {
	Grid       string `json:"grid" validate:"required"`
	Race       string `json:"race" validate:"required"`
	Gender     Gender `json:"gender" validate:"gender"`
	Age        *int   `json:"age,omitempty"`
	BirthYear  *int   `json:"birthYear,omitempty"`
	Time       string `json:"time" validate:"required"`
	Qualifiers *int   `json:"qualifiers,omitempty"`
}

// Key is the uniqueness key of a grid cell.
func (q *QualificationTime) Key() string {
	year := "none"
	if q.BirthYear != nil {
		year = strconv.Itoa(*q.BirthYear)
	}
	return q.Grid + "|" + q.Race + "|" + string(q.Gender) + "|" + year
}

// QualificationGrid is a full qualification grid for one season.
type QualificationGrid struct {
	GridID         string              `json:"grid"`
	Name           string              `json:"name,omitempty"`
	Season         string              `json:"season,omitempty"`
	SeasonYear     int                 `json:"seasonYear,omitempty"`
	Qualifications []QualificationTime `json:"qualifications"`
}

// GridEvent is a qualification grid advertised by the archive site.
type GridEvent struct {
	Slug string `json:"slug" validate:"required"`
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required,url"`
}
