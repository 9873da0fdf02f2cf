package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Location is a shelf identified by city and room.
type Location struct {
	ID        uuid.UUID
	City      City
	Room      string
	QRPayload string
	QRCode    []byte
}

// Label renders the location the way keyboards show it ("Berlin: Room 5").
func (l Location) Label() string {
	return LocationLabel(l.City, l.Room)
}

// LocationLabel renders a (city, room) pair.
func LocationLabel(city City, room string) string {
	return string(city) + ": " + room
}

// ParseLocationLabel splits "City: room" on the first colon.
func ParseLocationLabel(s string) (City, string, bool) {
	cityPart, room, found := strings.Cut(s, ":")
	if !found {
		return "", "", false
	}
	city, ok := ParseCity(cityPart)
	room = strings.TrimSpace(room)
	if !ok || room == "" {
		return "", "", false
	}
	return city, room, true
}

// LocationPatch is a partial location update.
type LocationPatch struct {
	City *City
	Room *string
}

// LocationDeepLink is the deep-link payload for a location QR code.
func LocationDeepLink(botLink string, id uuid.UUID) string {
	return botLink + "?start=location_" + id.String()
}
