package entity

type Player struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Score     int    `json:"score"`
	Rank      int    `json:"rank,omitempty"`
	Connected bool   `json:"is_connected"`
}
