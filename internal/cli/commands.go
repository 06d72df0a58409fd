package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/ffn-meets/internal/calendar"
	"github.com/pfrederiksen/ffn-meets/internal/logger"
	"github.com/pfrederiksen/ffn-meets/internal/meet"
	"github.com/pfrederiksen/ffn-meets/internal/qualification"
	"github.com/pfrederiksen/ffn-meets/internal/scraper"
	"github.com/pfrederiksen/ffn-meets/internal/series"
)

func (a *app) print(cmd *cobra.Command, v any, render func(table.Writer)) error {
	return WriteOutput(cmd.OutOrStdout(), v, a.format, render)
}

func parseLevel(s string) (meet.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "N", "NATIONAL":
		return meet.LevelNational, nil
	case "R", "REGIONAL":
		return meet.LevelRegional, nil
	case "D", "DEPARTEMENTAL":
		return meet.LevelDepartemental, nil
	case "I", "INTERNATIONAL":
		return meet.LevelInternational, nil
	}
	return "", scraper.Invalid(fmt.Sprintf("unknown level: %s", s), nil)
}

func renderCompetitions(comps []meet.Competition) func(table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"ID", "Name", "Level", "Location", "Pool", "Start", "End"})
		for _, c := range comps {
			end := "-"
			if c.EndDate != nil {
				end = c.EndDate.Format("02/01/2006")
			}
			t.AppendRow(table.Row{c.ID, c.Name, c.Level, orDash(c.Location), c.PoolSize, c.StartDate.Format("02/01/2006"), end})
		}
		t.AppendFooter(table.Row{"Total", len(comps)})
	}
}

func newCompetitionsCmd(a *app) *cobra.Command {
	var id, name, location, level, sortOrder string

	cmd := &cobra.Command{
		Use:   "competitions",
		Short: "List competitions of the live site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := a.scrapers.Competitions

			if id != "" {
				c, err := s.GetByID(ctx, id)
				if err != nil {
					return err
				}
				return a.print(cmd, c, renderCompetitions([]meet.Competition{*c}))
			}

			var (
				comps []meet.Competition
				err   error
			)
			switch {
			case name != "":
				comps, err = s.SearchByName(ctx, name)
			case location != "":
				comps, err = s.SearchByLocation(ctx, location)
			case level != "":
				var l meet.Level
				if l, err = parseLevel(level); err == nil {
					comps, err = s.ByLevel(ctx, l)
				}
			default:
				comps, err = s.GetAll(ctx)
			}
			if err != nil {
				return err
			}
			sortCompetitions(comps, SortOrder(strings.ToLower(sortOrder)))
			return a.print(cmd, comps, renderCompetitions(comps))
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Show one competition")
	cmd.Flags().StringVar(&name, "name", "", "Filter on name")
	cmd.Flags().StringVar(&location, "location", "", "Filter on city")
	cmd.Flags().StringVar(&level, "level", "", "Filter on level: N, R, D or I")
	cmd.Flags().StringVar(&sortOrder, "sort", "", "Sort by date, level or name (default: page order)")
	cmd.MarkFlagsMutuallyExclusive("id", "name", "location", "level")
	return cmd
}

func renderClubs(clubs []meet.Club) func(table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"ID", "Name"})
		for _, c := range clubs {
			t.AppendRow(table.Row{c.ID, c.Name})
		}
		t.AppendFooter(table.Row{"Total", len(clubs)})
	}
}

func newClubsCmd(a *app) *cobra.Command {
	var id, name string

	cmd := &cobra.Command{
		Use:   "clubs COMPETITION_ID",
		Short: "List the clubs of a competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := a.scrapers.Clubs

			var (
				club *meet.Club
				err  error
			)
			switch {
			case id != "":
				club, err = s.GetByID(ctx, args[0], id)
			case name != "":
				club, err = s.FindByName(ctx, args[0], name)
				if err == nil && club == nil {
					err = scraper.NotFound("Club")
				}
			default:
				clubs, err := s.GetAll(ctx, args[0])
				if err != nil {
					return err
				}
				return a.print(cmd, clubs, renderClubs(clubs))
			}
			if err != nil {
				return err
			}
			return a.print(cmd, club, renderClubs([]meet.Club{*club}))
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Show one club")
	cmd.Flags().StringVar(&name, "name", "", "Find a club by name")
	cmd.MarkFlagsMutuallyExclusive("id", "name")
	return cmd
}

func renderSwimmers(swimmers []meet.Swimmer) func(table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"ID", "Last name", "First name", "Gender", "Born", "Club"})
		for _, s := range swimmers {
			born := "-"
			if s.BirthYear > 0 {
				born = strconv.Itoa(s.BirthYear)
			}
			t.AppendRow(table.Row{s.ID, s.LastName, s.FirstName, orDash(string(s.Gender)), born, orDash(s.ClubName)})
		}
		t.AppendFooter(table.Row{"Total", len(swimmers)})
	}
}

func newSwimmersCmd(a *app) *cobra.Command {
	var id, first, last, club string
	var detailed bool

	cmd := &cobra.Command{
		Use:   "swimmers COMPETITION_ID",
		Short: "List or search the swimmers of a competition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := a.scrapers.Swimmers

			if id != "" {
				sw, err := s.GetByID(ctx, args[0], id)
				if err != nil {
					return err
				}
				return a.print(cmd, sw, renderSwimmers([]meet.Swimmer{*sw}))
			}

			var (
				swimmers []meet.Swimmer
				err      error
			)
			switch {
			case first != "" || last != "":
				swimmers, err = s.Search(ctx, args[0], first, last)
			case club != "":
				swimmers, err = s.GetByClub(ctx, args[0], club)
			case detailed:
				swimmers, err = s.GetAllDetailed(ctx, args[0])
			default:
				swimmers, err = s.GetAll(ctx, args[0])
			}
			if err != nil {
				return err
			}
			return a.print(cmd, swimmers, renderSwimmers(swimmers))
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Show one swimmer with details")
	cmd.Flags().StringVar(&first, "first", "", "Search by first name")
	cmd.Flags().StringVar(&last, "last", "", "Search by last name")
	cmd.Flags().StringVar(&club, "club", "", "List the swimmers of a club id")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Fetch every detail page")
	return cmd
}

func newProgramCmd(a *app) *cobra.Command {
	var date, at string

	cmd := &cobra.Command{
		Use:   "program COMPETITION_ID",
		Short: "Resolve the race running at a date and time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.scrapers.Series.GetProgram(cmd.Context(), args[0], date, at)
			if err != nil {
				return err
			}
			return a.print(cmd, p, keyValues(
				"cat_id", p.CategoryID,
				"epr_id", p.EventID,
				"typ_id", p.TypeID,
				"num_epreuve", p.EventNumber,
			))
		},
	}

	cmd.Flags().StringVar(&date, "date", "", `Day label, e.g. "Jeudi 18 Décembre"`)
	cmd.Flags().StringVar(&at, "time", "", `Start time, e.g. "08h55"`)
	cmd.MarkFlagRequired("date")
	cmd.MarkFlagRequired("time")
	return cmd
}

func newSeriesCmd(a *app) *cobra.Command {
	var date, at, race, meta string

	cmd := &cobra.Command{
		Use:   "series COMPETITION_ID",
		Short: "Show the heats of a race around a swimmer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := a.scrapers.Series.GetSeries(cmd.Context(), series.Query{
				CompetitionID: args[0],
				Race:          race,
				Meta:          meta,
				Date:          date,
				Time:          at,
			})
			if view == nil {
				return scraper.NotFound("Séries")
			}
			return a.print(cmd, view, func(t table.Writer) {
				t.SetTitle(fmt.Sprintf("%s (%d séries)", view.Race, view.TotalSeries))
				t.AppendHeader(table.Row{"Série", "Couloir", "Nom", "Club", "Temps", ""})
				for _, h := range view.Series {
					for _, l := range h.Swimmers {
						mark := ""
						if l.IsSelected {
							mark = "◀"
						}
						t.AppendRow(table.Row{h.SeriesNumber, l.Lane, l.Name, orDash(l.Club), orDash(l.EntryTime), mark})
					}
					t.AppendSeparator()
				}
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", `Day label, e.g. "Jeudi 18 Décembre"`)
	cmd.Flags().StringVar(&at, "time", "", `Start time, e.g. "08h55"`)
	cmd.Flags().StringVar(&race, "race", "", "Race label used when the page names none")
	cmd.Flags().StringVar(&meta, "meta", "", `Engagement meta, e.g. "série 3 • couloir 4"`)
	cmd.MarkFlagRequired("date")
	cmd.MarkFlagRequired("time")
	return cmd
}

func renderResults(r *meet.RaceResults) func(table.Writer) {
	return func(t table.Writer) {
		title := r.RaceName
		if r.RaceDate != "" {
			title += " (" + r.RaceDate + ")"
		}
		t.SetTitle(title)
		t.AppendHeader(table.Row{"Rang", "Nom", "Né", "Club", "Temps", "Points", "Qualif", "Rem"})
		for _, e := range r.Results {
			t.AppendRow(table.Row{intOrDash(e.Rank), e.Name, orDash(e.BirthYear), orDash(e.Club), strOrDash(e.Time), intOrDash(e.Points), orDash(e.Qualification), orDash(e.Remark)})
		}
	}
}

func newResultsCmd(a *app) *cobra.Command {
	var swimmerID string

	cmd := &cobra.Command{
		Use:   "results COMPETITION_ID RACE_ID",
		Short: "Show the results of a race",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.scrapers.Results
			if swimmerID == "" {
				r, err := s.GetByRace(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return a.print(cmd, r, renderResults(r))
			}

			r, err := s.GetBySwimmer(cmd.Context(), args[0], args[1], swimmerID)
			if err != nil {
				return err
			}
			if r.Swimmer == nil {
				return scraper.NotFound("Résultat du nageur")
			}
			narrowed := *r.Race
			narrowed.Results = []meet.RaceResultEntry{*r.Swimmer}
			return a.print(cmd, r, renderResults(&narrowed))
		},
	}

	cmd.Flags().StringVar(&swimmerID, "swimmer", "", "Only show this swimmer's line")
	return cmd
}

func newRacesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "races COMPETITION_ID",
		Short: "List the races that have results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			races, err := a.scrapers.Results.ListRaces(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(cmd, races, func(t table.Writer) {
				t.AppendHeader(table.Row{"ID", "Name"})
				for _, r := range races {
					t.AppendRow(table.Row{r.ID, r.Name})
				}
				t.AppendFooter(table.Row{"Total", len(races)})
			})
		},
	}
}

func renderQualifications(qs []meet.QualificationTime) func(table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"Épreuve", "Sexe", "Âge", "Année", "Temps", "Qualifiés"})
		for _, q := range qs {
			t.AppendRow(table.Row{q.Race, q.Gender, intOrDash(q.Age), intOrDash(q.BirthYear), q.Time, intOrDash(q.Qualifiers)})
		}
	}
}

func newQualificationCmd(a *app) *cobra.Command {
	var l qualification.Lookup
	var gender string

	cmd := &cobra.Command{
		Use:   "qualification",
		Short: "Look up qualification times",
		Long: `Look up qualification times for a swimmer.
With --race the single matching time is shown, otherwise every time that
applies to the swimmer's gender and age.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l.Gender = meet.Gender(strings.ToUpper(gender))
			s := a.scrapers.Qualifications

			if l.Race != "" {
				q, err := s.GetQualificationTime(cmd.Context(), l)
				if err != nil {
					return err
				}
				return a.print(cmd, q, renderQualifications([]meet.QualificationTime{*q}))
			}
			qs, err := s.GetQualificationsForAge(cmd.Context(), l)
			if err != nil {
				return err
			}
			return a.print(cmd, qs, renderQualifications(qs))
		},
	}

	cmd.Flags().StringVar(&l.Grid, "grid", "", "Grid id (default from config)")
	cmd.Flags().StringVar(&l.Race, "race", "", `Race, e.g. "50 NL" or "100 Papillon"`)
	cmd.Flags().StringVar(&gender, "gender", "", "F or M")
	cmd.Flags().IntVar(&l.BirthYear, "birth-year", 0, "Birth year of the swimmer")
	cmd.Flags().IntVar(&l.Age, "age", 0, "Age of the swimmer")
	cmd.Flags().IntVar(&l.Season, "season", 0, "Closing year of the season (default latest)")
	cmd.MarkFlagRequired("gender")

	cmd.AddCommand(newQualificationEventsCmd(a), newQualificationRacesCmd(a))
	return cmd
}

func newQualificationEventsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the available qualification grids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := a.scrapers.Qualifications.GetAvailableEvents(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, events, func(t table.Writer) {
				t.AppendHeader(table.Row{"ID", "Slug", "Name"})
				for _, e := range events {
					t.AppendRow(table.Row{e.ID, e.Slug, e.Name})
				}
			})
		},
	}
}

func newQualificationRacesCmd(a *app) *cobra.Command {
	var grid string
	var season int

	cmd := &cobra.Command{
		Use:   "races",
		Short: "List the races of a qualification grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			races, err := a.scrapers.Qualifications.GetRaces(cmd.Context(), grid, season)
			if err != nil {
				return err
			}
			return a.print(cmd, races, func(t table.Writer) {
				t.AppendHeader(table.Row{"Épreuve"})
				for _, r := range races {
					t.AppendRow(table.Row{r})
				}
			})
		},
	}

	cmd.Flags().StringVar(&grid, "grid", "", "Grid id (default from config)")
	cmd.Flags().IntVar(&season, "season", 0, "Closing year of the season (default latest)")
	return cmd
}

func renderEngagements(es []meet.Engagement) func(table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"Heure", "Engagement", "Détail", "Épreuve"})
		for _, e := range es {
			if e.Kind == meet.KindSession {
				t.AppendSeparator()
				t.AppendRow(table.Row{orDash(e.Time), strings.ToUpper(e.Label), e.Meta, ""})
				continue
			}
			t.AppendRow(table.Row{orDash(e.Time), "  " + e.Label, orDash(e.Meta), orDash(e.RaceID)})
		}
	}
}

func newEngagementsCmd(a *app) *cobra.Command {
	var ics bool

	cmd := &cobra.Command{
		Use:   "engagements COMPETITION_ID SWIMMER_ID",
		Short: "Show a swimmer's timeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			es, err := a.scrapers.Engagements.GetAll(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if !ics {
				return a.print(cmd, es, renderEngagements(es))
			}

			// The competition only dates the day labels; fall back to today.
			comp := meet.Competition{ID: args[0], StartDate: time.Now()}
			if c, err := a.scrapers.Competitions.GetByID(ctx, args[0]); err == nil {
				comp = *c
			} else {
				logger.Warn("competition not listed, dating races from today", logger.Fields{
					"competId": args[0],
					"error":    err.Error(),
				})
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), calendar.GenerateICS(comp, es))
			return err
		},
	}
	cmd.Flags().BoolVar(&ics, "ics", false, "Write the races as an iCalendar feed")

	cmd.AddCommand(&cobra.Command{
		Use:   "get ENGAGEMENT_ID",
		Short: "Show one engagement by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.scrapers.Engagements.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(cmd, e, renderEngagements([]meet.Engagement{*e}))
		},
	})
	return cmd
}
