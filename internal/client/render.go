package client

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

var (
	userAvatarStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("255")).
			Padding(0, 1)

	assistantAvatarStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("255")).
				Background(lipgloss.Color("30")).
				Padding(0, 1)

	userContentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Padding(0, 1)

	assistantContentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255")).
				Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)
)

// Initial returns the upper-cased first letter of name, "?" when there is none.
func Initial(name string) string {
	name = strings.TrimSpace(name)
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

// RenderMessage renders one chat entry with the avatar of its author.
func RenderMessage(msg Message, userName string) string {
	if msg.Role == "user" {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			userAvatarStyle.Render(Initial(userName)),
			userContentStyle.Render(msg.Content),
		)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		assistantAvatarStyle.Render("AI"),
		assistantContentStyle.Render(msg.Content),
	)
}

// RenderConversation renders a header followed by every message.
func RenderConversation(user *User, chats []Message) string {
	name := ""
	if user != nil {
		name = user.Name
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("You are talking to a ChatBot"))
	b.WriteString("\n")
	if len(chats) == 0 {
		b.WriteString(emptyStyle.Render("No messages yet"))
		b.WriteString("\n")
		return b.String()
	}
	for _, msg := range chats {
		b.WriteString(RenderMessage(msg, name))
		b.WriteString("\n")
	}
	return b.String()
}
