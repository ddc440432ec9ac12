// Package tui is a terminal player for the story API.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

// API is the subset of the story API the player uses.
type API interface {
	ListStories(ctx context.Context) ([]string, error)
	Start(ctx context.Context, storyName string, maxChoices int) (*story.Turn, error)
	Continue(ctx context.Context, storyName, sessionID, choiceText string) (*story.Turn, error)
}

type state int

const (
	stateSelectStory state = iota
	stateLoading
	statePlaying
	stateEnded
)

const requestTimeout = 2 * time.Minute

// item implements list.Item for stories and choices.
type item struct {
	title string
	desc  string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

type storiesLoadedMsg struct {
	names []string
}

type turnMsg struct {
	turn *story.Turn
}

type errMsg struct {
	err error
}

// App is the bubbletea model driving one play-through at a time.
type App struct {
	api        API
	maxChoices int

	state     state
	storyName string
	sessionID string
	turn      *story.Turn
	errorMsg  string

	stories list.Model
	choices list.Model
	input   textinput.Model
	spinner spinner.Model
	typing  bool

	width  int
	height int
}

// NewApp creates the player. maxChoices is the budget requested for new sessions.
func NewApp(api API, maxChoices int) *App {
	stories := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	stories.Title = "⬡ CHOOSE AN EPIC"
	stories.SetShowStatusBar(false)
	stories.SetFilteringEnabled(false)

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	choices := list.New(nil, delegate, 80, 8)
	choices.Title = "What do you do?"
	choices.SetShowStatusBar(false)
	choices.SetFilteringEnabled(false)
	choices.SetShowHelp(false)

	input := textinput.New()
	input.Placeholder = "Write your own choice"
	input.CharLimit = 200

	return &App{
		api:        api,
		maxChoices: maxChoices,
		state:      stateLoading,
		stories:    stories,
		choices:    choices,
		input:      input,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:      80,
		height:     24,
	}
}

// Init loads the story list.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.loadStories())
}

// Update handles messages for the player.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.stories.SetSize(msg.Width-4, msg.Height-6)
		a.choices.SetSize(msg.Width-4, 8)
		a.input.Width = msg.Width - 8
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case storiesLoadedMsg:
		items := make([]list.Item, len(msg.names))
		for i, name := range msg.names {
			items[i] = item{title: name, desc: fmt.Sprintf("%d choices", a.maxChoices)}
		}
		a.stories.SetItems(items)
		a.state = stateSelectStory
		return a, nil

	case turnMsg:
		a.errorMsg = ""
		a.applyTurn(msg.turn)
		return a, nil

	case errMsg:
		a.errorMsg = msg.err.Error()
		if a.turn == nil {
			a.state = stateSelectStory
		} else {
			a.state = statePlaying
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.state {
	case stateSelectStory:
		if msg.String() == "enter" {
			selected, ok := a.stories.SelectedItem().(item)
			if !ok {
				return a, nil
			}
			return a.begin(selected.title)
		}
		var cmd tea.Cmd
		a.stories, cmd = a.stories.Update(msg)
		return a, cmd

	case statePlaying:
		if a.typing {
			return a.handleTyping(msg)
		}
		switch msg.String() {
		case "q":
			return a, tea.Quit
		case "i":
			a.typing = true
			return a, a.input.Focus()
		case "enter":
			selected, ok := a.choices.SelectedItem().(item)
			if !ok {
				return a, nil
			}
			return a.choose(selected.title)
		}
		var cmd tea.Cmd
		a.choices, cmd = a.choices.Update(msg)
		return a, cmd

	case stateEnded:
		switch msg.String() {
		case "q", "esc":
			return a, tea.Quit
		case "n":
			a.reset()
			return a, nil
		}
	}

	return a, nil
}

func (a *App) handleTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.typing = false
		a.input.Blur()
		return a, nil
	case "enter":
		text := strings.TrimSpace(a.input.Value())
		if text == "" {
			return a, nil
		}
		a.typing = false
		a.input.Blur()
		a.input.Reset()
		return a.choose(text)
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) begin(name string) (tea.Model, tea.Cmd) {
	a.storyName = name
	a.sessionID = ""
	a.turn = nil
	a.errorMsg = ""
	a.state = stateLoading
	return a, tea.Batch(a.spinner.Tick, a.startStory(name))
}

func (a *App) choose(choice string) (tea.Model, tea.Cmd) {
	a.errorMsg = ""
	a.state = stateLoading
	return a, tea.Batch(a.spinner.Tick, a.continueStory(choice))
}

func (a *App) reset() {
	a.storyName = ""
	a.sessionID = ""
	a.turn = nil
	a.errorMsg = ""
	a.state = stateSelectStory
}

func (a *App) applyTurn(turn *story.Turn) {
	if turn.SessionID != "" {
		a.sessionID = turn.SessionID
	}
	a.turn = turn

	items := make([]list.Item, len(turn.Choices))
	for i, choice := range turn.Choices {
		items[i] = item{title: choice}
	}
	a.choices.SetItems(items)
	a.choices.Select(0)

	if turn.ChoicesRemaining <= 0 || turn.IsEnding() {
		a.state = stateEnded
		return
	}
	a.state = statePlaying
}

func (a *App) loadStories() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		names, err := a.api.ListStories(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return storiesLoadedMsg{names: names}
	}
}

func (a *App) startStory(name string) tea.Cmd {
	maxChoices := a.maxChoices
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		turn, err := a.api.Start(ctx, name, maxChoices)
		if err != nil {
			return errMsg{err: err}
		}
		return turnMsg{turn: turn}
	}
}

func (a *App) continueStory(choice string) tea.Cmd {
	name, id := a.storyName, a.sessionID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		turn, err := a.api.Continue(ctx, name, id, choice)
		if err != nil {
			return errMsg{err: err}
		}
		return turnMsg{turn: turn}
	}
}
