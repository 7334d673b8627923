// Package styles provides shared lipgloss styles for CLI and TUI components.
package styles

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Palette defines a minimal semantic theme palette.
type Palette struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Background lipgloss.Color
	Surface    lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

// DefaultTheme is the name of the default theme.
const DefaultTheme = "tokyo-night"

// themes holds the built-in named palettes.
var themes = map[string]Palette{
	"tokyo-night": {
		Primary:    lipgloss.Color("#7aa2f7"),
		Secondary:  lipgloss.Color("#7dcfff"),
		Foreground: lipgloss.Color("#c0caf5"),
		Muted:      lipgloss.Color("#565f89"),
		Background: lipgloss.Color("#1a1b26"),
		Surface:    lipgloss.Color("#3b4261"),
		Success:    lipgloss.Color("#9ece6a"),
		Warning:    lipgloss.Color("#e0af68"),
		Error:      lipgloss.Color("#f7768e"),
	},
	"gruvbox": {
		Primary:    lipgloss.Color("#83a598"),
		Secondary:  lipgloss.Color("#8ec07c"),
		Foreground: lipgloss.Color("#ebdbb2"),
		Muted:      lipgloss.Color("#665c54"),
		Background: lipgloss.Color("#282828"),
		Surface:    lipgloss.Color("#3c3836"),
		Success:    lipgloss.Color("#b8bb26"),
		Warning:    lipgloss.Color("#fabd2f"),
		Error:      lipgloss.Color("#fb4934"),
	},
}

// ThemeNames returns sorted names of all built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPalette returns the palette for the given theme name.
func GetPalette(name string) (Palette, bool) {
	p, ok := themes[name]
	return p, ok
}

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

// Shared styles, rebuilt by SetTheme.
var (
	CardStyle           lipgloss.Style
	CardTitleStyle      lipgloss.Style
	CardMetaStyle       lipgloss.Style
	TextMutedStyle      lipgloss.Style
	TextPrimaryStyle    lipgloss.Style
	StatusBarStyle      lipgloss.Style
	HelpStyle           lipgloss.Style
	ConfirmMessageStyle lipgloss.Style
	ErrorStyle          lipgloss.Style
	ModalStyle          lipgloss.Style

	kindStyles map[string]lipgloss.Style
	kindOther  lipgloss.Style
)

func init() {
	SetTheme(themes[DefaultTheme])
}

// SetTheme applies a palette and rebuilds all shared styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	CardStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Surface).
		Padding(1, 2)
	CardTitleStyle = lipgloss.NewStyle().Foreground(p.Foreground).Bold(true)
	CardMetaStyle = lipgloss.NewStyle().Foreground(p.Muted)
	TextMutedStyle = lipgloss.NewStyle().Foreground(p.Muted)
	TextPrimaryStyle = lipgloss.NewStyle().Foreground(p.Primary)
	StatusBarStyle = lipgloss.NewStyle().Foreground(p.Muted)
	HelpStyle = lipgloss.NewStyle().Foreground(p.Muted)
	ConfirmMessageStyle = lipgloss.NewStyle().Foreground(p.Warning)
	ErrorStyle = lipgloss.NewStyle().Foreground(p.Error)
	ModalStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Primary).
		Padding(1, 2)

	kindStyles = map[string]lipgloss.Style{
		"TODO":  lipgloss.NewStyle().Foreground(p.Primary).Bold(true),
		"FIXME": lipgloss.NewStyle().Foreground(p.Error).Bold(true),
		"BUG":   lipgloss.NewStyle().Foreground(p.Error).Bold(true),
		"HACK":  lipgloss.NewStyle().Foreground(p.Warning).Bold(true),
		"XXX":   lipgloss.NewStyle().Foreground(p.Warning).Bold(true),
		"NOTE":  lipgloss.NewStyle().Foreground(p.Secondary).Bold(true),
	}
	kindOther = lipgloss.NewStyle().Foreground(p.Foreground).Bold(true)
}

// KindStyle returns the badge style for an annotation kind.
func KindStyle(kind string) lipgloss.Style {
	if s, ok := kindStyles[kind]; ok {
		return s
	}
	return kindOther
}
