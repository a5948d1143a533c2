// ocr/types.go
package ocr

type OcrParams struct {
	Model             string  `json:"model"`              // e.g. "typhoon-ocr"
	TaskType          string  `json:"task_type"`          // e.g. "default"
	MaxTokens         int     `json:"max_tokens"`         // e.g. 16000
	Temperature       float64 `json:"temperature"`        // e.g. 0.1
	TopP              float64 `json:"top_p"`              // e.g. 0.6
	RepetitionPenalty float64 `json:"repetition_penalty"` // e.g. 1.2
}

type OcrResponse struct {
	TotalPages      int         `json:"total_pages"`
	SuccessfulPages int         `json:"successful_pages"`
	FailedPages     int         `json:"failed_pages"`
	Results         []OcrResult `json:"results"`
	ProcessingTime  float64     `json:"processing_time"`
}

type OcrResult struct {
	Filename string      `json:"filename"`
	Success  bool        `json:"success"`
	Message  *OcrMessage `json:"message"`
	Error    any         `json:"error"`
}

type OcrMessage struct {
	Model   string      `json:"model"`
	Choices []OcrChoice `json:"choices"`
}

type OcrChoice struct {
	FinishReason string         `json:"finish_reason"`
	Message      OcrChatMessage `json:"message"`
}

type OcrChatMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// structured page content returned by some typhoon models
type ocrPage struct {
	NaturalText string `json:"natural_text"`
}
