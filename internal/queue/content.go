package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/DeploymentBot3000/DeploymentBot/internal/model"
	"github.com/DeploymentBot3000/DeploymentBot/internal/platform"
)

func mention(userID string) string {
	return "<@" + userID + ">"
}

func formatEntries(entries []*model.QueueEntry) string {
	if len(entries) == 0 {
		return "` - `"
	}

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, mention(e.UserID))
	}

	return strings.Join(parts, ", ")
}

func panelContent(next time.Time, hosts, players []*model.QueueEntry) string {
	var b strings.Builder

	b.WriteString("# HOT DROP QUEUE\n\n")
	fmt.Fprintf(&b, "Next deployment: %s\n\n", next.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Hosts (%d):** %s\n", len(hosts), formatEntries(hosts))
	fmt.Fprintf(&b, "**Divers (%d):** %s\n", len(players), formatEntries(players))

	return b.String()
}

func dropAnnouncementContent(code, hostID string, players []*model.QueueEntry, room platform.RoomRef) string {
	var b strings.Builder

	b.WriteString("# HOT DROP DEPLOYMENT\n\n")
	fmt.Fprintf(&b, "**Operation code: %s**\n", code)
	fmt.Fprintf(&b, "**Host:** %s\n", mention(hostID))
	fmt.Fprintf(&b, "**Divers:** %s\n", formatEntries(players))
	fmt.Fprintf(&b, "Voice: <#%s>\n\n", room.ID)
	b.WriteString("Drop now. Join the voice channel and follow your host.")

	return b.String()
}

func dropDirectContent(code string, room platform.RoomRef) string {
	return fmt.Sprintf(
		"Your hot drop is starting.\nOperation code: %s\nVoice channel: <#%s>\nJoin now.",
		code, room.ID)
}
