package tui

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/views/datasets"
	"github.com/custodia-labs/goldsmith/internal/adapters/driving/tui/views/goldens"
	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	// datasetsView lists saved datasets.
	datasetsView *datasets.View

	// goldensView browses the goldens of the open dataset.
	goldensView *goldens.View

	statusBar *status.Bar

	// currentView tracks which view is active.
	currentView messages.ViewType

	// previousView is restored when leaving the help view.
	previousView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingDatasetService)
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	ctx := context.Background()

	a := &App{
		ports:        ports,
		ctx:          ctx,
		styles:       s,
		keymap:       km,
		datasetsView: datasets.NewView(ctx, s, ports.Datasets),
		goldensView:  goldens.NewView(s, km),
		statusBar:    status.NewBar(s, km),
		currentView:  messages.ViewDatasets,
	}
	a.syncStatus()
	return a, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.datasetsView = datasets.NewView(ctx, a.styles, a.ports.Datasets)
	return a
}

// WithDataset opens the app on the goldens of ds instead of the dataset list.
func (a *App) WithDataset(ds *domain.Dataset) *App {
	a.goldensView.SetDataset(ds)
	a.currentView = messages.ViewGoldens
	a.syncStatus()
	return a
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("goldsmith"),
		a.datasetsView.Init(),
	)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case messages.DatasetsLoaded:
		a.datasetsView, cmd = a.datasetsView.Update(msg)
		a.err = msg.Err
		a.syncStatus()
		return a, cmd

	case messages.DatasetDeleted:
		a.datasetsView, cmd = a.datasetsView.Update(msg)
		a.err = msg.Err
		if msg.Err == nil {
			a.statusBar.SetMessage("deleted " + msg.ID)
		}
		a.syncStatus()
		return a, cmd

	case messages.DatasetSelected:
		a.statusBar.SetState(status.StateLoading)
		return a, a.loadDataset(msg.ID)

	case messages.DatasetLoaded:
		a.err = msg.Err
		if msg.Err == nil {
			a.goldensView.SetDataset(msg.Dataset)
			a.currentView = messages.ViewGoldens
		}
		a.syncStatus()
		return a, nil

	case messages.ViewChanged:
		a.switchTo(msg.View)
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.syncStatus()
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	return a, nil
}

// handleKeyMsg routes key presses to the active view, handling global keys first.
func (a *App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	keyStr := msg.String()

	if keyStr == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.currentView {
	case messages.ViewHelp:
		if keymap.Matches(keyStr, a.keymap.Back) || keymap.Matches(keyStr, a.keymap.Help) {
			a.switchTo(a.previousView)
		} else if keymap.Matches(keyStr, a.keymap.Quit) {
			return a, tea.Quit
		}
		return a, nil

	case messages.ViewGoldens:
		// The filter input owns every key while it has focus
		if a.goldensView.Filtering() {
			a.goldensView, cmd = a.goldensView.Update(msg)
			a.syncStatus()
			return a, cmd
		}
		switch {
		case keymap.Matches(keyStr, a.keymap.Back) && !a.goldensView.Capturing():
			a.switchTo(messages.ViewDatasets)
			return a, a.datasetsView.Init()
		case keymap.Matches(keyStr, a.keymap.Quit):
			return a, tea.Quit
		case keymap.Matches(keyStr, a.keymap.Help):
			a.switchTo(messages.ViewHelp)
			return a, nil
		}
		a.goldensView, cmd = a.goldensView.Update(msg)
		a.syncStatus()
		return a, cmd

	case messages.ViewDatasets:
		// A pending delete confirmation consumes the next key
		if a.datasetsView.Confirming() == "" {
			switch {
			case keymap.Matches(keyStr, a.keymap.Quit):
				return a, tea.Quit
			case keymap.Matches(keyStr, a.keymap.Help):
				a.switchTo(messages.ViewHelp)
				return a, nil
			}
		}
		a.statusBar.SetMessage("")
		a.datasetsView, cmd = a.datasetsView.Update(msg)
		a.syncStatus()
		return a, cmd
	}

	return a, nil
}

// loadDataset returns a command that fetches a dataset with its goldens.
func (a *App) loadDataset(id string) tea.Cmd {
	return func() tea.Msg {
		ds, err := a.ports.Datasets.Get(a.ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				err = fmt.Errorf("dataset %s no longer exists", id)
			}
			return messages.DatasetLoaded{Err: err}
		}
		return messages.DatasetLoaded{Dataset: ds}
	}
}

func (a *App) switchTo(view messages.ViewType) {
	if view == messages.ViewHelp && a.currentView != messages.ViewHelp {
		a.previousView = a.currentView
	}
	a.currentView = view
	a.statusBar.SetMessage("")
	a.syncStatus()
}

// syncStatus mirrors the active view and last error into the status bar.
func (a *App) syncStatus() {
	if a.err != nil {
		a.statusBar.SetState(status.StateError)
		a.statusBar.SetMessage(a.err.Error())
		return
	}
	if a.statusBar.State() == status.StateError {
		a.statusBar.SetMessage("")
	}

	switch a.currentView {
	case messages.ViewDatasets:
		a.statusBar.SetState(status.StateDatasets)
		a.statusBar.SetCount(len(a.datasetsView.Datasets()))
	case messages.ViewGoldens:
		a.statusBar.SetState(status.StateGoldens)
		a.statusBar.SetCount(a.goldensView.List().Count())
		if ds := a.goldensView.Dataset(); ds != nil {
			a.statusBar.SetMessage(cmp.Or(ds.Name, ds.ID))
		}
	case messages.ViewHelp:
		a.statusBar.SetState(status.StateHelp)
	}
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewGoldens:
		body = a.goldensView.View()
	case messages.ViewHelp:
		body = a.viewHelp()
	default:
		body = a.datasetsView.View()
	}

	return body + "\n" + a.statusBar.View()
}

// viewHelp renders the help view from the key map.
func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n")

	for _, group := range a.keymap.FullHelp() {
		b.WriteString("\n")
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "  %-10s %s\n", h.Key, h.Desc)
		}
	}

	b.WriteString("\n")
	b.WriteString(a.styles.Help.Render("[esc] back"))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && a.ctx.Err() != nil {
		return nil
	}
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	// One line is reserved for the status bar
	a.datasetsView.SetDimensions(width, height-1)
	a.goldensView.SetDimensions(width, height-1)
	a.statusBar.SetWidth(width)
}
