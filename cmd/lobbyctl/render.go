package main

import (
	"io"
	"strconv"

	"github.com/cwrk-planet/lobby-chat/internal/domain"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func renderLobbies(w io.Writer, lobbies []lobby) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name", "Owner", "Created"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, l := range lobbies {
		owner := "-"
		if l.OwnerID > 0 {
			owner = strconv.FormatInt(l.OwnerID, 10)
		}
		table.Append([]string{
			strconv.FormatInt(l.ID, 10),
			l.Name,
			owner,
			l.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	table.Render()
}

// printer writes chat events to the terminal. self is the local user id,
// whose own messages are dimmed.
type printer struct {
	w    io.Writer
	self int64
}

func (p printer) message(m domain.ChatMessage) {
	ts := m.Timestamp.Local().Format("15:04:05")
	name := color.Cyan.Sprint(m.Username)
	if m.UserID == p.self {
		name = color.Gray.Sprint(m.Username)
	}
	color.Fprintf(p.w, "%s %s: %s\n", color.Gray.Sprint(ts), name, m.Content)
}

func (p printer) joined(username string) {
	color.Fprintln(p.w, color.Green.Sprintf("* %s joined", username))
}

func (p printer) left(username string) {
	color.Fprintln(p.w, color.Yellow.Sprintf("* %s left", username))
}

func (p printer) failure(err error) {
	color.Fprintln(p.w, color.Red.Sprintf("! %v", err))
}
