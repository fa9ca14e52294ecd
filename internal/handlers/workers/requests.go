package workers

// TriggerCommandRequest represents a request to run a command on a worker
type TriggerCommandRequest struct {
	Command string `json:"command"`
}

// TriggerCommandResponse carries the worker's textual command result
type TriggerCommandResponse struct {
	Worker  string `json:"worker"`
	Command string `json:"command"`
	Result  string `json:"result"`
}
