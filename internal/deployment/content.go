package deployment

import (
	"fmt"
	"strings"
	"time"
)

func mention(userID string) string {
	return "<@" + userID + ">"
}

func formatMembers(members []Member) string {
	if len(members) == 0 {
		return "` - `"
	}

	parts := make([]string, 0, len(members))
	for _, m := range members {
		parts = append(parts, fmt.Sprintf("%s %s", m.Role, mention(m.UserID)))
	}

	return strings.Join(parts, ", ")
}

func signupContent(d *Details, locked bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Operation: %s**\n", d.Title)
	fmt.Fprintf(&b, "Difficulty: %s\n", d.Difficulty)

	if d.Description != "" {
		fmt.Fprintf(&b, "%s\n", d.Description)
	}

	fmt.Fprintf(&b, "Start: %s\n", d.StartTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Host: %s\n", mention(d.Host.UserID))

	fireteam := make([]Member, 0, len(d.Fireteam))
	for _, m := range d.Fireteam {
		if m.UserID != d.Host.UserID {
			fireteam = append(fireteam, m)
		}
	}

	fmt.Fprintf(&b, "Assigned: %s\n", formatMembers(fireteam))
	fmt.Fprintf(&b, "Standby: %s\n", formatMembers(d.Backups))

	if locked {
		b.WriteString("\nThis deployment has started. Signups are closed.")
	} else {
		fmt.Fprintf(&b, "\n%s is looking for people to group up!", mention(d.Host.UserID))
	}

	return b.String()
}

func departureNoticeContent(d *Details, lead time.Duration) string {
	var b strings.Builder

	b.WriteString("# ATTENTION DIVERS\n\n")
	fmt.Fprintf(&b, "**Operation: %s**\n", d.Title)
	fmt.Fprintf(&b, "The operation starts in **%d minutes**.\n", int(lead.Minutes()))
	b.WriteString("Host, please open a communication channel in the next **5 minutes**.\n")
	b.WriteString("Assigned divers, please join ASAP. Standby divers, be ready to fill in.\n")
	b.WriteString("If you are late or can't make it, inform the deployment host ASAP.\n\n")
	fmt.Fprintf(&b, "**Difficulty:** %s\n", d.Difficulty)
	fmt.Fprintf(&b, "**Host:** %s\n", mention(d.Host.UserID))

	fireteam := make([]Member, 0, len(d.Fireteam))
	for _, m := range d.Fireteam {
		if m.UserID != d.Host.UserID {
			fireteam = append(fireteam, m)
		}
	}

	fmt.Fprintf(&b, "**Assigned divers:** %s\n", formatMembers(fireteam))
	fmt.Fprintf(&b, "**Standby divers:** %s\n", formatMembers(d.Backups))

	return b.String()
}

func startTimeChangeContent(oldDetails, newDetails *Details) string {
	return fmt.Sprintf(
		"A deployment you are signed up for has changed its start time.\nDeployment: %s\nPrevious start: %s\nNew start: %s\n",
		newDetails.Title,
		oldDetails.StartTime.UTC().Format(time.RFC3339),
		newDetails.StartTime.UTC().Format(time.RFC3339))
}

func deletedNoticeContent(d *Details, now time.Time) string {
	return fmt.Sprintf(
		"A deployment you were signed up for has been deleted.\nDeployment: %s\nIt was scheduled to start in %s.",
		d.Title,
		d.StartTime.Sub(now).Round(time.Minute))
}
