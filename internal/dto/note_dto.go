package dto

import "time"

// SaveNoteRequest creates a note when Id is empty and replaces it otherwise.
type SaveNoteRequest struct {
	Id      string `json:"id"`
	Title   string `json:"title" validate:"max=200"`
	Content string `json:"content"`
}

type NoteResponse struct {
	Id      string    `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Date    time.Time `json:"date"`
}
