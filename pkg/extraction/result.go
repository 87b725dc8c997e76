package extraction

// Result is a validated answer from the model.
type Result struct {
	Message  string `json:"message"`
	AddTasks []Item `json:"addTasks"`
}

type Item struct {
	Task string `json:"task"`
}
