package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/statecraft"
	"github.com/aretw0/statecraft/pkg/machines/navigation"
	"github.com/aretw0/statecraft/pkg/machines/syncing"
)

// StatusMarkdown renders the state of every machine as a markdown document.
func StatusMarkdown(sys *statecraft.System) string {
	var sb strings.Builder
	sb.WriteString("# statecraft\n\n")

	net := sys.Network.Snapshot()
	sb.WriteString("## Network\n\n")
	sb.WriteString(fmt.Sprintf("**%s** (connection delay %s)\n\n", net.State, net.Context.Delay()))

	sb.WriteString("## Navigation\n\n")
	nav := sys.Navigation.Snapshot().Context
	sb.WriteString(fmt.Sprintf("Slide %d of %d: `%s`\n\n", nav.Index()+1, len(navigation.Slides()), sys.Navigation.Path()))

	sb.WriteString("## Form\n\n")
	sb.WriteString("| Field | Value | Edited by | Revisions |\n|---|---|---|---|\n")
	for _, f := range sys.Form.Snapshot().Context.Fields {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d |\n", f.Label, escape(f.Value), orDash(f.EditedBy), len(f.History)))
	}
	sb.WriteString("\n")

	docs := sys.Sync.Snapshot()
	sb.WriteString("## Documents\n\n")
	sb.WriteString(fmt.Sprintf("**%s**: %d synced, %d syncing, %d pending\n\n",
		docs.State,
		docs.Context.Count(syncing.StatusSynced),
		docs.Context.Count(syncing.StatusSyncing),
		docs.Context.Count(syncing.StatusPending),
	))
	sb.WriteString("| Title | Status |\n|---|---|\n")
	for _, d := range docs.Context.Documents {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", escape(d.Title), d.Status))
	}
	sb.WriteString("\n")

	friends := sys.Friends()
	messages := 0
	for _, f := range friends {
		messages += len(f.Messages)
	}
	sb.WriteString("## Messages\n\n")
	sb.WriteString(fmt.Sprintf("%d friends, %d messages\n\n", len(friends), messages))

	sb.WriteString("## Notifications\n\n")
	items := sys.Notifications()
	if len(items) == 0 {
		sb.WriteString("_none_\n")
	}
	for _, t := range items {
		sb.WriteString(fmt.Sprintf("- **%s** %s _(%s)_\n", t.Severity, escape(t.Message), t.State))
	}
	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
