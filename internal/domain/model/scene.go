package model

// Scene is one visual and narration unit of a script, in playback order.
type Scene struct {
	Index     int    `json:"index"`
	Visual    string `json:"visual"`
	Narration string `json:"narration"`
}
