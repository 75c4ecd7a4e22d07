package r3events

// DisplayUpdate carries the rendered rows of the door display.
type DisplayUpdate struct {
	Line1 string   `json:"line1"`
	Line2 string   `json:"line2"`
	Rows  []string `json:"rows"`
	Ts    int64    `json:"ts"`
}
