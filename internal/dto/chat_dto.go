package dto

import "time"

type QueryRequest struct {
	Question    string   `json:"question" validate:"required,min=1"`
	Model       string   `json:"model" validate:"omitempty,max=256"`
	Temperature *float64 `json:"temperature" validate:"omitempty,gte=0,lte=2"`
	// EnableInternetSearch overrides the server default for this request.
	EnableInternetSearch *bool `json:"enable_internet_search"`
	// Encrypted marks Question as AES-GCM encrypted; the answer comes back
	// encrypted the same way.
	Encrypted bool `json:"encrypted"`
}

// ChatTurn is one message of the transcript echoed back to the client.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type QueryResponse struct {
	Question  string     `json:"question"`
	UserId    string     `json:"user_id"`
	Answer    string     `json:"answer"`
	Model     string     `json:"model"`
	History   []ChatTurn `json:"history"`
	Encrypted bool       `json:"encrypted,omitempty"`
}

type AnalyzeRequest struct {
	Prompt      string                   `json:"prompt" validate:"required,min=1"`
	Details     []map[string]interface{} `json:"details"`
	Model       string                   `json:"model" validate:"omitempty,max=256"`
	Temperature *float64                 `json:"temperature" validate:"omitempty,gte=0,lte=2"`
}

type AnalyzeResponse struct {
	Prompt string `json:"prompt"`
	UserId string `json:"user_id"`
	Answer string `json:"answer"`
	Model  string `json:"model"`
}

type HistoryMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type HistoryResponse struct {
	UserId   string           `json:"user_id"`
	Messages []HistoryMessage `json:"messages"`
}

type ClearHistoryResponse struct {
	Deleted int64 `json:"deleted"`
}

type ModelsResponse struct {
	Models []string `json:"models"`
}
