package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// tab is the active view
type tab int

const (
	tabDashboard tab = iota
	tabMedications
	tabAnalytics
	tabDrone
	tabHelp
)

var tabNames = []string{"Dashboard", "Medications", "Analytics", "Drone", "Help"}

const refreshEvery = 2 * time.Second

// Messages
type (
	dashboardMsg   *Dashboard
	medicationsMsg []tableRow
	adherenceMsg   *AdherenceReport
	errMsg         struct{ err error }
	tickMsg        time.Time
)

type tableRow = table.Row

// Model is the terminal dashboard's bubbletea model
type Model struct {
	client *Client

	active    tab
	dashboard *Dashboard
	adherence *AdherenceReport
	medsTable table.Model
	spin      spinner.Model
	helpView  string

	width  int
	height int
	err    error
}

func NewModel(client *Client) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	cols := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Dosage", Width: 10},
		{Title: "Frequency", Width: 18},
		{Title: "Stock", Width: 6},
		{Title: "Status", Width: 8},
	}
	mt := table.New(table.WithColumns(cols), table.WithHeight(10), table.WithFocused(true))

	return Model{
		client:    client,
		spin:      sp,
		medsTable: mt,
		helpView:  renderHelp(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// refresh fetches whatever the active tab needs
func (m Model) refresh() tea.Cmd {
	client := m.client
	switch m.active {
	case tabMedications:
		return func() tea.Msg {
			meds, err := client.Medications()
			if err != nil {
				return errMsg{err}
			}
			rows := make([]tableRow, 0, len(meds))
			for i := range meds {
				rows = append(rows, medicationRow(&meds[i]))
			}
			return medicationsMsg(rows)
		}
	case tabAnalytics:
		return func() tea.Msg {
			report, err := client.Adherence("30d")
			if err != nil {
				return errMsg{err}
			}
			return adherenceMsg(report)
		}
	default:
		return func() tea.Msg {
			d, err := client.Dashboard()
			if err != nil {
				return errMsg{err}
			}
			return dashboardMsg(d)
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.active = (m.active + 1) % tab(len(tabNames))
			return m, m.refresh()
		case "shift+tab", "left", "h":
			m.active = (m.active + tab(len(tabNames)) - 1) % tab(len(tabNames))
			return m, m.refresh()
		case "1", "2", "3", "4", "5":
			m.active = tab(msg.String()[0] - '1')
			return m, m.refresh()
		case "r":
			return m, m.refresh()
		case "d":
			if m.active == tabDrone || m.active == tabDashboard {
				client := m.client
				return m, func() tea.Msg {
					if _, err := client.RequestDelivery(); err != nil {
						return errMsg{err}
					}
					d, err := client.Dashboard()
					if err != nil {
						return errMsg{err}
					}
					return dashboardMsg(d)
				}
			}
		}
		if m.active == tabMedications {
			var cmd tea.Cmd
			m.medsTable, cmd = m.medsTable.Update(msg)
			return m, cmd
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())

	case dashboardMsg:
		m.dashboard = msg
		m.err = nil
		return m, nil

	case medicationsMsg:
		m.medsTable.SetRows(msg)
		m.err = nil
		return m, nil

	case adherenceMsg:
		m.adherence = msg
		m.err = nil
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}
