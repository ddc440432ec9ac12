package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

var moodColors = map[string]lipgloss.Color{
	story.MoodNeutral: lipgloss.Color("#888888"),
	story.MoodTense:   lipgloss.Color("#FF6B6B"),
	story.MoodHappy:   lipgloss.Color("#6BCB77"),
}

// View renders the player.
func (a *App) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFD479")).
		MarginBottom(1)
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1)

	header := titleStyle.Render("⬡ Z SAGA")
	if a.storyName != "" {
		header = titleStyle.Render(fmt.Sprintf("⬡ Z SAGA · %s", a.storyName))
	}

	var body, help string
	switch a.state {
	case stateLoading:
		body = fmt.Sprintf("%s The storyteller is thinking...", a.spinner.View())
	case stateSelectStory:
		body = a.stories.View()
		help = "enter: start · q: quit"
	case statePlaying:
		body = a.renderTurn()
		if a.typing {
			body = fmt.Sprintf("%s\n\n%s", body, a.input.View())
			help = "enter: submit · esc: back to choices"
		} else {
			body = fmt.Sprintf("%s\n\n%s", body, a.choices.View())
			help = "enter: choose · i: write your own · q: quit"
		}
	case stateEnded:
		body = a.renderTurn()
		help = "n: new story · q: quit"
	}

	if a.errorMsg != "" {
		errBlock := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF6B6B")).
			Padding(0, 1).
			Render(fmt.Sprintf("⚠ %s", a.errorMsg))
		body = fmt.Sprintf("%s\n\n%s", body, errBlock)
	}

	return fmt.Sprintf("%s\n%s\n%s", header, body, helpStyle.Render(help))
}

func (a *App) renderTurn() string {
	if a.turn == nil {
		return ""
	}
	width := a.width - 4
	if width < 40 {
		width = 40
	}
	textStyle := lipgloss.NewStyle().Width(width)
	introStyle := textStyle.Italic(true).Foreground(lipgloss.Color("#A0A0FF"))
	sectionTitle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6BCB77"))

	turn := a.turn
	var sections []string
	if turn.Introduction != nil && *turn.Introduction != "" {
		sections = append(sections, introStyle.Render(*turn.Introduction))
	}
	sections = append(sections, textStyle.Render(turn.Text))

	mood := turn.DisplayMood()
	badge := lipgloss.NewStyle().Foreground(moodColors[mood]).Render("● " + mood)
	sections = append(sections, fmt.Sprintf("%s   %d choices remaining", badge, turn.ChoicesRemaining))

	if turn.CulturalInfo != nil && *turn.CulturalInfo != "" {
		info := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#555555")).
			Padding(0, 1).
			Width(width - 4).
			Render(fmt.Sprintf("%s\n%s", sectionTitle.Render("Cultural note"), *turn.CulturalInfo))
		sections = append(sections, info)
	}

	if a.state == stateEnded {
		ending := sectionTitle.Render("The End")
		if turn.StorySimilarity != nil {
			ending = fmt.Sprintf("%s · %.0f%% faithful to the epic", ending, *turn.StorySimilarity*100)
		}
		sections = append(sections, ending)
	}

	return strings.Join(sections, "\n\n")
}
