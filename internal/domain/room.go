package domain

// RoomKey addresses a broadcast group. It is either a literal room name
// chosen by clients or a derived private pair key.
type RoomKey string

// PrivateRoomKey derives the room key for a two-party private chat.
// The ids are ordered before combining so both participants compute the
// same key regardless of direction.
func PrivateRoomKey(a, b UserID) RoomKey {
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	return RoomKey("private:" + string(lo) + ":" + string(hi))
}
