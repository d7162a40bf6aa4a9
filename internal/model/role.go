package model

import "strings"

type Role string

const (
	RoleUnspecified Role = "UNSPECIFIED"
	RoleFireteam    Role = "Fireteam"
	RoleBackup      Role = "Backup"
)

// ParseRole maps free-form role text to a known role. The legacy
// "offense" value is folded into Fireteam, anything unknown gets the
// UNSPECIFIED sentinel so old rows never break an operation.
func ParseRole(s string) Role {
	if strings.EqualFold(s, "offense") {
		return RoleFireteam
	}

	for _, r := range []Role{RoleUnspecified, RoleFireteam, RoleBackup} {
		if strings.EqualFold(s, string(r)) {
			return r
		}
	}

	return RoleUnspecified
}
