package engine

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pr0mega/BCLLDraft/internal/division"
	"github.com/pr0mega/BCLLDraft/internal/roster"
)

var ErrNoActiveDraft = errors.New("no draft in progress")
var ErrDraftExhausted = errors.New("draft order has no slot left")
var ErrPlayerUnavailable = errors.New("player is not available")
var ErrNothingToUndo = errors.New("no pick to undo")
var ErrDivisionHasNoTeams = errors.New("division has no teams")
var ErrConfirmationRequired = errors.New("confirmation required")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrPlayerAlreadyDrafted = errors.New("player already drafted")
var ErrWrongStep = errors.New("not allowed at this step")
var ErrUnknownStep = errors.New("unknown step")
var ErrDivisionLocked = errors.New("division is being drafted")
var ErrStepTransition = errors.New("step change not allowed")
var ErrUnsupportedCommand = errors.New("unsupported command")

// Step is the setup stage shown to the admin.
type Step string

const (
	StepUpload Step = "upload"
	StepAssign Step = "assign"
	StepTeams  Step = "teams"
	StepOrder  Step = "order"
	StepDraft  Step = "draft"
)

var steps = []Step{StepUpload, StepAssign, StepTeams, StepOrder, StepDraft}

// stepMoves lists the steps the admin may navigate to from each step. Upload is
// only reached by a reset and left by loading players.
var stepMoves = map[Step][]Step{
	StepAssign: {StepTeams},
	StepTeams:  {StepAssign, StepOrder},
	StepOrder:  {StepTeams, StepDraft},
	StepDraft:  {StepTeams, StepOrder},
}

// State is everything the admin controls and the display mirrors.
type State struct {
	Step      Step                `json:"step"`
	Players   roster.Index        `json:"players"`
	Divisions []division.Division `json:"divisions"`
	Draft     *Session            `json:"draftState"`
	Log       []LogEntry          `json:"draftLog"`
}

type CommandType string

const (
	CmdLoadPlayers     CommandType = "LoadPlayers"
	CmdAssignDivision  CommandType = "AssignDivision"
	CmdSetTeams        CommandType = "SetTeams"
	CmdSetDraftOrder   CommandType = "SetDraftOrder"
	CmdResetDraftOrder CommandType = "ResetDraftOrder"
	CmdSetStep         CommandType = "SetStep"
	CmdStartDivision   CommandType = "StartDivision"
	CmdDraftPlayer     CommandType = "DraftPlayer"
	CmdUndoLastPick    CommandType = "UndoLastPick"
	CmdRestartDivision CommandType = "RestartDivision"
	CmdResetApp        CommandType = "ResetApp"
)

/*
	CmdStartDivision   -> EvtDraftStarted
	CmdDraftPlayer     -> EvtPlayerDrafted -> EvtSiblingAssigned* -> EvtDraftExhausted (last slot used)
	CmdUndoLastPick    -> EvtPickUndone
	CmdRestartDivision -> EvtDivisionRestarted -> EvtDraftStarted
	CmdResetApp        -> EvtAppReset
	setup commands     -> EvtPlayersLoaded | EvtDivisionAssigned | EvtTeamsSet | EvtDraftOrderSet | EvtStepChanged
*/

// Command is one admin action. At is stamped by the caller so Apply stays pure.
// Divisions is only read by CmdResetApp and replaces the stock divisions.
type Command struct {
	Type      CommandType
	Division  string
	PlayerID  string
	Players   []roster.Player
	Teams     map[string][]string
	Counts    map[string]int
	Order     []string
	Step      Step
	Confirm   bool
	Divisions []division.Division
	At        time.Time
}

type EventType string

const (
	EvtPlayersLoaded     EventType = "PlayersLoaded"
	EvtDivisionAssigned  EventType = "DivisionAssigned"
	EvtTeamsSet          EventType = "TeamsSet"
	EvtDraftOrderSet     EventType = "DraftOrderSet"
	EvtStepChanged       EventType = "StepChanged"
	EvtDraftStarted      EventType = "DraftStarted"
	EvtPlayerDrafted     EventType = "PlayerDrafted"
	EvtSiblingAssigned   EventType = "SiblingAssigned"
	EvtDraftExhausted    EventType = "DraftExhausted"
	EvtPickUndone        EventType = "PickUndone"
	EvtDivisionRestarted EventType = "DivisionRestarted"
	EvtAppReset          EventType = "AppReset"
)

type Event struct {
	Type     EventType
	Division string
	Team     string
	PlayerID string
	Round    int
	Pick     int
}

// Apply runs cmd against s. s is never modified; on error the returned state is
// s itself and callers treat the command as ignored.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdLoadPlayers:
		return loadPlayers(s, cmd)
	case CmdAssignDivision:
		return assignDivision(s, cmd)
	case CmdSetTeams:
		return setTeams(s, cmd)
	case CmdSetDraftOrder:
		return setDraftOrder(s, cmd)
	case CmdResetDraftOrder:
		return resetDraftOrder(s, cmd)
	case CmdSetStep:
		return setStep(s, cmd)
	case CmdStartDivision:
		return startDivision(s, cmd)
	case CmdDraftPlayer:
		return draftPlayer(s, cmd)
	case CmdUndoLastPick:
		return undoLastPick(s)
	case CmdRestartDivision:
		return restartDivision(s, cmd)
	case CmdResetApp:
		return resetApp(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func loadPlayers(s State, cmd Command) ([]Event, State, error) {
	if s.Step != StepUpload || s.Draft != nil || len(s.Log) > 0 {
		return nil, s, ErrWrongStep
	}
	next := s.Clone()
	next.Players = roster.Index(slices.Clone(cmd.Players))
	next.Step = StepAssign
	return []Event{{Type: EvtPlayersLoaded}}, next, nil
}

func assignDivision(s State, cmd Command) ([]Event, State, error) {
	p, ok := s.Players.Find(cmd.PlayerID)
	if !ok {
		return nil, s, ErrUnknownPlayer
	}
	if p.Drafted {
		return nil, s, ErrPlayerAlreadyDrafted
	}
	name := roster.NormalizeDivision(cmd.Division)
	if _, ok := division.Find(s.Divisions, name); !ok {
		return nil, s, fmt.Errorf("%s: %w", name, division.ErrUnknownDivision)
	}
	// The pool of a live session is fixed; nobody moves in or out of it.
	if s.Draft != nil && (p.Division == s.Draft.Division || name == s.Draft.Division) {
		return nil, s, fmt.Errorf("%s: %w", s.Draft.Division, ErrDivisionLocked)
	}
	next := s.Clone()
	next.Players = next.Players.WithDivision(p.ID, name)
	return []Event{{Type: EvtDivisionAssigned, Division: name, PlayerID: p.ID}}, next, nil
}

func setTeams(s State, cmd Command) ([]Event, State, error) {
	divs, err := division.SetTeams(s.Divisions, cmd.Teams, cmd.Counts)
	if err != nil {
		return nil, s, err
	}
	next := s.Clone()
	next.Divisions = divs
	next.Step = StepOrder
	return []Event{{Type: EvtTeamsSet}}, next, nil
}

func setDraftOrder(s State, cmd Command) ([]Event, State, error) {
	divs, err := division.SetDraftOrder(s.Divisions, cmd.Division, cmd.Order)
	if err != nil {
		return nil, s, err
	}
	next := s.Clone()
	next.Divisions = divs
	return []Event{{Type: EvtDraftOrderSet, Division: cmd.Division}}, next, nil
}

func resetDraftOrder(s State, cmd Command) ([]Event, State, error) {
	divs, err := division.ResetDraftOrder(s.Divisions, cmd.Division)
	if err != nil {
		return nil, s, err
	}
	next := s.Clone()
	next.Divisions = divs
	return []Event{{Type: EvtDraftOrderSet, Division: cmd.Division}}, next, nil
}

func setStep(s State, cmd Command) ([]Event, State, error) {
	if !slices.Contains(steps, cmd.Step) {
		return nil, s, ErrUnknownStep
	}
	if cmd.Step != s.Step && !slices.Contains(stepMoves[s.Step], cmd.Step) {
		return nil, s, fmt.Errorf("%s to %s: %w", s.Step, cmd.Step, ErrStepTransition)
	}
	next := s.Clone()
	next.Step = cmd.Step
	return []Event{{Type: EvtStepChanged}}, next, nil
}

func startDivision(s State, cmd Command) ([]Event, State, error) {
	div, ok := division.Find(s.Divisions, cmd.Division)
	if !ok {
		return nil, s, fmt.Errorf("%s: %w", cmd.Division, division.ErrUnknownDivision)
	}
	if div.Skipped() {
		return nil, s, fmt.Errorf("%s: %w", div.Name, ErrDivisionHasNoTeams)
	}

	next := s.Clone()
	next.Draft = newSession(div.Name, div.PickOrder(), s.Players.Undrafted(div.Name))
	next.Step = StepDraft
	return []Event{{Type: EvtDraftStarted, Division: div.Name}}, next, nil
}

func draftPlayer(s State, cmd Command) ([]Event, State, error) {
	if s.Draft == nil {
		return nil, s, ErrNoActiveDraft
	}
	teamIndex, ok := s.Draft.slot(s.Draft.CurrentPick)
	if !ok {
		return nil, s, ErrDraftExhausted
	}
	pos := s.Draft.availableIndex(cmd.PlayerID)
	if pos < 0 {
		return nil, s, ErrPlayerUnavailable
	}

	next := s.Clone()
	d := next.Draft
	team := &d.Teams[teamIndex]
	round, pick := d.CurrentRound, d.CurrentPick+1

	player := d.Available[pos]
	d.Available = slices.Delete(d.Available, pos, pos+1)
	player.Drafted = true
	team.Roster = append(team.Roster, player)
	picked := []roster.Player{player}

	events := []Event{{Type: EvtPlayerDrafted, Division: d.Division, Team: team.Name, PlayerID: player.ID, Round: round, Pick: pick}}

	siblingIDs := []string{}
	siblingEvalIDs := []string{}
	group := roster.GroupOf(roster.FindSiblings(s.Players), player.ID)
	for _, id := range group {
		if id == player.ID {
			continue
		}
		i := d.availableIndex(id)
		if i < 0 {
			continue
		}
		sib := d.Available[i]
		d.Available = slices.Delete(d.Available, i, i+1)
		sib.Drafted = true
		team.Roster = append(team.Roster, sib)
		picked = append(picked, sib)
		siblingIDs = append(siblingIDs, sib.ID)
		siblingEvalIDs = append(siblingEvalIDs, sib.EvalID)
		events = append(events, Event{Type: EvtSiblingAssigned, Division: d.Division, Team: team.Name, PlayerID: sib.ID, Round: round, Pick: pick})
	}

	d.PickHistory = append(d.PickHistory, PickRecord{
		Round:      round,
		Pick:       pick,
		Team:       team.Name,
		Player:     player.EvalID,
		PlayerID:   player.ID,
		Siblings:   siblingEvalIDs,
		SiblingIDs: siblingIDs,
		At:         cmd.At,
	})
	d.CurrentPick++
	d.CurrentRound = RoundFor(d.CurrentPick, len(d.Teams))

	entry := LogEntry{At: cmd.At, Division: d.Division, Round: round, Pick: pick, Team: team.Name, Players: make([]LogPlayer, 0, len(picked))}
	for _, p := range picked {
		entry.Players = append(entry.Players, LogPlayer{ID: p.ID, EvalID: p.EvalID, FirstName: p.FirstName, LastName: p.LastName})
	}
	next.Log = append(next.Log, entry)
	next.Players = next.Players.WithDrafted(append([]string{player.ID}, siblingIDs...), true)

	if _, ok := d.slot(d.CurrentPick); !ok {
		events = append(events, Event{Type: EvtDraftExhausted, Division: d.Division})
	}
	return events, next, nil
}

func undoLastPick(s State) ([]Event, State, error) {
	if s.Draft == nil || len(s.Draft.PickHistory) == 0 {
		return nil, s, ErrNothingToUndo
	}
	// The receiving team comes from the order table, not the record.
	teamIndex, ok := s.Draft.slot(s.Draft.CurrentPick - 1)
	if !ok {
		return nil, s, ErrNothingToUndo
	}

	next := s.Clone()
	d := next.Draft
	last := d.PickHistory[len(d.PickHistory)-1]
	ids := append([]string{last.PlayerID}, last.SiblingIDs...)

	team := &d.Teams[teamIndex]
	kept := make([]roster.Player, 0, len(team.Roster))
	for _, p := range team.Roster {
		if slices.Contains(ids, p.ID) {
			p.Drafted = false
			d.Available = append(d.Available, p)
			continue
		}
		kept = append(kept, p)
	}
	team.Roster = kept
	roster.SortByIndex(d.Available)

	d.CurrentPick--
	d.CurrentRound = RoundFor(d.CurrentPick, len(d.Teams))
	d.PickHistory = d.PickHistory[:len(d.PickHistory)-1]
	if len(next.Log) > 0 {
		next.Log = next.Log[:len(next.Log)-1]
	}
	next.Players = next.Players.WithDrafted(ids, false)

	return []Event{{Type: EvtPickUndone, Division: d.Division, Team: team.Name, PlayerID: last.PlayerID, Round: last.Round, Pick: last.Pick}}, next, nil
}

func restartDivision(s State, cmd Command) ([]Event, State, error) {
	if s.Draft == nil {
		return nil, s, ErrNoActiveDraft
	}
	if !cmd.Confirm {
		return nil, s, ErrConfirmationRequired
	}
	name := s.Draft.Division
	div, ok := division.Find(s.Divisions, name)
	if !ok {
		return nil, s, fmt.Errorf("%s: %w", name, division.ErrUnknownDivision)
	}
	if div.Skipped() {
		return nil, s, fmt.Errorf("%s: %w", name, ErrDivisionHasNoTeams)
	}

	next := s.Clone()
	next.Players = next.Players.WithDivisionReset(name)
	next.Draft = newSession(name, div.PickOrder(), next.Players.InDivision(name))
	log := make([]LogEntry, 0, len(next.Log))
	for _, e := range next.Log {
		if e.Division != name {
			log = append(log, e)
		}
	}
	next.Log = log

	return []Event{
		{Type: EvtDivisionRestarted, Division: name},
		{Type: EvtDraftStarted, Division: name},
	}, next, nil
}

func resetApp(s State, cmd Command) ([]Event, State, error) {
	if !cmd.Confirm {
		return nil, s, ErrConfirmationRequired
	}
	divs := cmd.Divisions
	if len(divs) == 0 {
		divs = division.Defaults()
	}
	return []Event{{Type: EvtAppReset}}, NewEmptyState(divs), nil
}
