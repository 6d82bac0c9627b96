package steam

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// steamIDBase is the offset between a SteamID64 and its 32-bit account id
const steamIDBase = 76561197960265728

var (
	// ErrInvalidSteamID is returned when a value cannot be interpreted as a
	// Steam identifier in any supported form
	ErrInvalidSteamID = errors.New("invalid steam id")

	reSteamID64 = regexp.MustCompile(`^\d{17}$`)
	reSteamID   = regexp.MustCompile(`^STEAM_0:([01]):(\d+)$`)
	reSteamID3  = regexp.MustCompile(`^\[U:1:(\d+)\]$`)
	reProfile   = regexp.MustCompile(`steamcommunity\.com/profiles/(\d{17})`)
)

// Identity holds the four correlated representations of one Steam account.
// They are always derived together from the SteamID64.
type Identity struct {
	SteamID64  string // 17-digit community id
	SteamID    string // legacy STEAM_0:Y:Z
	SteamID3   string // [U:1:accountid]
	ProfileURL string
}

// DeriveIdentity computes the legacy, id3 and profile-URL forms from a
// SteamID64.
func DeriveIdentity(steamID64 string) (Identity, error) {
	if !reSteamID64.MatchString(steamID64) {
		return Identity{}, ErrInvalidSteamID
	}
	id, err := strconv.ParseInt(steamID64, 10, 64)
	if err != nil {
		return Identity{}, ErrInvalidSteamID
	}

	y := id % 2
	z := (id - steamIDBase - y) / 2
	accountID := id - steamIDBase

	return Identity{
		SteamID64:  steamID64,
		SteamID:    fmt.Sprintf("STEAM_0:%d:%d", y, z),
		SteamID3:   fmt.Sprintf("[U:1:%d]", accountID),
		ProfileURL: fmt.Sprintf("https://steamcommunity.com/profiles/%s", steamID64),
	}, nil
}

// Normalize converts any of the textual Steam id forms (id64, legacy, id3,
// profile URL) to the canonical SteamID64.
func Normalize(s string) (string, error) {
	if reSteamID64.MatchString(s) {
		return s, nil
	}
	if m := reSteamID.FindStringSubmatch(s); m != nil {
		y, _ := strconv.ParseInt(m[1], 10, 64)
		z, _ := strconv.ParseInt(m[2], 10, 64)
		return strconv.FormatInt(z*2+steamIDBase+y, 10), nil
	}
	if m := reSteamID3.FindStringSubmatch(s); m != nil {
		accountID, _ := strconv.ParseInt(m[1], 10, 64)
		return strconv.FormatInt(accountID+steamIDBase, 10), nil
	}
	if m := reProfile.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	return "", ErrInvalidSteamID
}
