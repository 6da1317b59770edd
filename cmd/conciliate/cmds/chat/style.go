package chat

import "github.com/charmbracelet/lipgloss"

type Style struct {
	SeekerTurn    lipgloss.Style
	ResponderTurn lipgloss.Style
	SystemTurn    lipgloss.Style
	Closing       lipgloss.Style
	Input         lipgloss.Style
	DisabledInput lipgloss.Style
	StatusBar     lipgloss.Style
	Notice        lipgloss.Style
	Help          lipgloss.Style
}

type BorderColors struct {
	Seeker    string
	Responder string
	System    string
	Focused   string
	Disabled  string
}

func DefaultStyles() *Style {
	lightModeColors := BorderColors{
		Seeker:    "#87AFD7",
		Responder: "#FFB6C1", // Light pink
		System:    "#CCCCCC",
		Focused:   "#FFFF99", // Light yellow
		Disabled:  "#DDDDDD",
	}

	darkModeColors := BorderColors{
		Seeker:    "#5F87AF",
		Responder: "#DD7090", // Desaturated pink for dark mode
		System:    "#444444",
		Focused:   "#DDDD77", // Desaturated yellow for dark mode
		Disabled:  "#333333",
	}

	bordered := func(light, dark string) lipgloss.Style {
		return lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.AdaptiveColor{Light: light, Dark: dark})
	}

	return &Style{
		SeekerTurn:    bordered(lightModeColors.Seeker, darkModeColors.Seeker),
		ResponderTurn: bordered(lightModeColors.Responder, darkModeColors.Responder),
		SystemTurn:    bordered(lightModeColors.System, darkModeColors.System),
		Closing: lipgloss.NewStyle().Border(lipgloss.ThickBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.AdaptiveColor{Light: lightModeColors.Responder, Dark: darkModeColors.Responder}),
		Input:         bordered(lightModeColors.Focused, darkModeColors.Focused),
		DisabledInput: bordered(lightModeColors.Disabled, darkModeColors.Disabled),
		StatusBar:     lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Notice:        lipgloss.NewStyle().Italic(true).Padding(0, 1),
		Help:          lipgloss.NewStyle().Faint(true).Padding(0, 1),
	}
}
