package dto

// Error is the body of every non-2xx response.
type Error struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Status acknowledges a mutation that has nothing else to return.
type Status struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func Success(message string) Status {
	return Status{Status: "Success", Message: message}
}
