package rest

import "crypto/rand"

const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateRoomCode - generates a short code players type to join a room.
// Ambiguous characters (0/O, 1/I) are left out of the alphabet.
func GenerateRoomCode() (string, error) {
	b := make([]byte, roomCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	for i := range b {
		b[i] = roomCodeAlphabet[int(b[i])%len(roomCodeAlphabet)]
	}

	return string(b), nil
}
