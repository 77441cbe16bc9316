// Package color holds botctl's terminal styles.
//
// Styles are lipgloss styles built from adaptive colors, so they read well on
// dark and light terminals. lipgloss already honors NO_COLOR and degrades to
// the terminal's color profile.
package color
