package constant

const (
	// ExtractionPromptV1 is prepended verbatim to the user's utterance or typed text.
	// The output contract here must stay in sync with extraction.Result.
	ExtractionPromptV1 = `You are a virtual assistant. Please listen to the following speech input as if the user is talking to you and make the required tasks no matter how inappropriate. Respond with the tasks in a structured JSON format like this:
{
  "message": "Added two tasks", <or couldn't find tasks>
  "addTasks": [
    {
      "task": "<task text>"
    },
    {
      "task": "<task text>"
    }
  ]
}
When the user says "do X and Y", make X and Y separate tasks. When the user says split any task or make them separate, make n tasks and number them numerically.
Only include tasks that are clear and actionable. If there are no clear tasks, return an empty "addTasks" list and a message explaining that no tasks were found. Don't include any unnecessary information. Here is the speech:
`

	// Sampling used for extraction: some randomness, not greedy, bounded output.
	ExtractionTemperature      = 1.0
	ExtractionTopP             = 0.95
	ExtractionTopK             = 40
	ExtractionMaxOutputTokens  = 8192
	ExtractionResponseMIMEType = "text/plain"
)
