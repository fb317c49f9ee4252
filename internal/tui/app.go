// Package tui provides the interactive terminal UI for Focal.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/focal/internal/engine"
	"github.com/fentz26/focal/internal/model"
	"github.com/fentz26/focal/internal/server"
	"github.com/fentz26/focal/internal/store"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	taskItemStyle = lipgloss.NewStyle().
			Padding(0, 2)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	filterStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	scoreStyle = lipgloss.NewStyle().
			Foreground(cyanColor)

	urgencyOverdue  = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	urgencyUrgent   = lipgloss.NewStyle().Foreground(warningColor)
	urgencyActive   = lipgloss.NewStyle().Foreground(successColor)
	urgencyUpcoming = lipgloss.NewStyle().Foreground(cyanColor)
	urgencyNone     = lipgloss.NewStyle().Foreground(mutedColor)

	doneStyle = lipgloss.NewStyle().Foreground(successColor).Strikethrough(true)
)

type viewMode string

const (
	modeDo   viewMode = "do"
	modePlan viewMode = "plan"
)

// App is the main TUI application model.
type App struct {
	service     *server.Service
	tasks       []model.ComputedTask
	diagnostics []string
	places      []model.Place
	selectedIdx int
	filterIdx   int
	mode        viewMode
	input       textinput.Model
	typing      bool
	message     string
	width       int
	height      int
	loading     bool
}

// New creates a new TUI application.
func New(service *server.Service) *App {
	ti := textinput.New()
	ti.Placeholder = "New task title"
	ti.CharLimit = 256
	ti.Width = 60

	return &App{
		service: service,
		mode:    modeDo,
		input:   ti,
		loading: true,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type tasksLoadedMsg struct {
	result engine.Result
}

type placesLoadedMsg struct {
	places []model.Place
}

type actionDoneMsg struct {
	message string
}

type errMsg struct {
	err error
}

// filterID returns the place filter for the current cycle position.
// Index 0 is the All filter; the rest walk the place list.
func (a *App) filterID() string {
	if a.filterIdx == 0 || a.filterIdx > len(a.places) {
		return model.FilterAll
	}
	return a.places[a.filterIdx-1].ID
}

func (a *App) filterLabel() string {
	if a.filterIdx == 0 || a.filterIdx > len(a.places) {
		return "All"
	}
	return a.places[a.filterIdx-1].Name
}

func (a *App) fetchTasks() tea.Cmd {
	service, filter, mode := a.service, a.filterID(), a.mode
	return func() tea.Msg {
		var result engine.Result
		var err error
		if mode == modePlan {
			result, err = service.Plan(filter, false, 0)
		} else {
			result, err = service.DoList(filter, 0)
		}
		if err != nil {
			return errMsg{err}
		}
		return tasksLoadedMsg{result}
	}
}

func (a *App) fetchPlaces() tea.Cmd {
	service := a.service
	return func() tea.Msg {
		places, err := service.ListPlaces()
		if err != nil {
			return errMsg{err}
		}
		return placesLoadedMsg{places}
	}
}

func (a *App) completeSelected() tea.Cmd {
	if a.selectedIdx >= len(a.tasks) {
		return nil
	}
	service, task := a.service, a.tasks[a.selectedIdx]
	return func() tea.Msg {
		if _, err := service.CompleteTask(task.ID, 0); err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{fmt.Sprintf("Completed %q", task.Title)}
	}
}

func (a *App) acknowledgeAll() tea.Cmd {
	service := a.service
	return func() tea.Msg {
		n, err := service.Acknowledge()
		if err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{fmt.Sprintf("Acknowledged %d finished tasks", n)}
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.fetchPlaces(), a.fetchTasks())
}

func (a *App) addTask(title string) tea.Cmd {
	service := a.service
	placeID := ""
	if a.filterIdx > 0 && a.filterIdx <= len(a.places) {
		placeID = a.places[a.filterIdx-1].ID
	}
	return func() tea.Msg {
		task, err := service.CreateTask(store.CreateTaskParams{Title: title, PlaceID: placeID})
		if err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{fmt.Sprintf("Added %q", task.Title)}
	}
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.typing {
			switch msg.String() {
			case "esc":
				a.typing = false
				a.input.Blur()
				a.input.SetValue("")
				return a, nil
			case "enter":
				title := strings.TrimSpace(a.input.Value())
				a.typing = false
				a.input.Blur()
				a.input.SetValue("")
				if title == "" {
					return a, nil
				}
				return a, a.addTask(title)
			}
			var cmd tea.Cmd
			a.input, cmd = a.input.Update(msg)
			return a, cmd
		}

		switch msg.String() {
		case "n":
			a.typing = true
			a.input.Focus()
			return a, textinput.Blink
		case "ctrl+c", "q":
			return a, tea.Quit

		case "up", "k":
			if a.selectedIdx > 0 {
				a.selectedIdx--
			}

		case "down", "j":
			if a.selectedIdx < len(a.tasks)-1 {
				a.selectedIdx++
			}

		case "tab":
			a.filterIdx = (a.filterIdx + 1) % (len(a.places) + 1)
			a.selectedIdx = 0
			return a, a.fetchTasks()

		case "p":
			if a.mode == modeDo {
				a.mode = modePlan
			} else {
				a.mode = modeDo
			}
			a.selectedIdx = 0
			return a, a.fetchTasks()

		case "c", "enter":
			return a, a.completeSelected()

		case "a":
			return a, a.acknowledgeAll()

		case "r":
			return a, a.fetchTasks()
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case tasksLoadedMsg:
		a.loading = false
		a.tasks = msg.result.Tasks
		a.diagnostics = msg.result.Diagnostics
		if a.selectedIdx >= len(a.tasks) {
			a.selectedIdx = maxInt(0, len(a.tasks)-1)
		}

	case placesLoadedMsg:
		a.places = msg.places

	case actionDoneMsg:
		a.message = msg.message
		return a, a.fetchTasks()

	case errMsg:
		a.message = "Error: " + msg.err.Error()
	}

	return a, nil
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	header := titleStyle.Render("Focal")
	if a.mode == modePlan {
		header += "  " + filterStyle.Render("plan")
	}
	header += "  " + filterStyle.Render(fmt.Sprintf("Place: [%s]", a.filterLabel()))
	b.WriteString(header + "\n")
	if a.width > 0 {
		b.WriteString(strings.Repeat("─", a.width) + "\n")
	}

	b.WriteString(a.renderTaskList())

	if a.typing {
		b.WriteString("\n" + inputBoxStyle.Render(a.input.View()))
	}

	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message))
	}
	for _, d := range a.diagnostics {
		b.WriteString("\n" + filterStyle.Render("! "+d))
	}

	status := fmt.Sprintf(" Tasks: %d | ↑↓:nav | Tab:place | n:new | p:plan | c:complete | a:acknowledge | r:refresh | q:quit", len(a.tasks))
	b.WriteString("\n" + statusBarStyle.Width(maxInt(a.width, len(status))).Render(status))

	return b.String()
}

func (a *App) renderTaskList() string {
	if a.loading {
		return "\n  Loading...\n"
	}
	if len(a.tasks) == 0 {
		return "\n  " + filterStyle.Render("Nothing to do here.") + "\n"
	}

	var b strings.Builder
	for i, t := range a.tasks {
		line := fmt.Sprintf("%s %s %s",
			scoreStyle.Render(fmt.Sprintf("%7.3f", t.Score)),
			urgencyBadge(t.Urgency),
			taskTitle(t),
		)
		if i == a.selectedIdx {
			b.WriteString(selectedStyle.Render(line))
		} else {
			b.WriteString(taskItemStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func taskTitle(t model.ComputedTask) string {
	if t.Status == model.TaskStatusDone {
		return doneStyle.Render(t.Title)
	}
	return t.Title
}

func urgencyBadge(u model.UrgencyStatus) string {
	switch u {
	case model.UrgencyOverdue:
		return urgencyOverdue.Render("● overdue ")
	case model.UrgencyUrgent:
		return urgencyUrgent.Render("● urgent  ")
	case model.UrgencyActive:
		return urgencyActive.Render("● active  ")
	case model.UrgencyUpcoming:
		return urgencyUpcoming.Render("● upcoming")
	default:
		return urgencyNone.Render("·         ")
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
