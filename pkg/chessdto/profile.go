package chessdto

import "time"

type PlayerRecord struct {
	Nick       string    `json:"nick"`
	Checkmates int       `json:"checkmates"`
	Stalemates int       `json:"stalemates"`
	Draws      int       `json:"draws"`
	Games      int       `json:"games"`
	Losses     int       `json:"losses"`
	Unfinished int       `json:"unfinished"`
	BoardMode  string    `json:"bmode,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}
