package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	data := map[string]Role{
		"Fireteam":    RoleFireteam,
		"fireteam":    RoleFireteam,
		"FIRETEAM":    RoleFireteam,
		"offense":     RoleFireteam,
		"Offense":     RoleFireteam,
		"Backup":      RoleBackup,
		"backup":      RoleBackup,
		"UNSPECIFIED": RoleUnspecified,
		"medic":       RoleUnspecified,
		"":            RoleUnspecified,
	}

	for in, want := range data {
		require.Equal(t, want, ParseRole(in), in)
	}
}

func TestRosterEntry_EffectiveRole(t *testing.T) {
	require.Equal(t, RoleBackup, (&RosterEntry{Kind: KindBackup, Role: RoleFireteam}).EffectiveRole())
	require.Equal(t, RoleFireteam, (&RosterEntry{Kind: KindFireteam, Role: RoleFireteam}).EffectiveRole())
	require.Equal(t, RoleUnspecified, (&RosterEntry{Kind: KindFireteam, Role: "legacy"}).EffectiveRole())

	var nilEntry *RosterEntry
	require.Equal(t, RoleUnspecified, nilEntry.EffectiveRole())
}
