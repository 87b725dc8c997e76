package entity

import "time"

// Task is a single to-do item persisted inside the "tasks" collection.
// The JSON shape matches what mobile clients already keep on device.
type Task struct {
	Id        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}
