package study

import "time"

// Run records one clustering of a domain stored in the study.
type Run struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	Metric    string    `json:"metric"`
	K         int       `json:"k"`
	Seed      int64     `json:"seed"`
	Inertia   float64   `json:"inertia"`
	Sizes     []int     `json:"sizes"`
	Column    string    `json:"column"`
	Source    string    `json:"source,omitempty"`
	Figure    string    `json:"figure,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
