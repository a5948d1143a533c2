package grpc

type HealthCheckRequest struct {
	Name string `json:"name"`
}

type HealthCheckResponse struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

type ExtractTextRequest struct {
	ImageData []byte `json:"image_data"`
}

type ExtractTextResponse struct {
	ExtractedText string `json:"extracted_text"`
}

type ExtractDocumentRequest struct {
	ImageData []byte `json:"image_data,omitempty"`
	Source    string `json:"source,omitempty"`
}

type ExtractLineRequest struct {
	Text string `json:"text"`
}

type ExtractLineResponse struct {
	Found    bool    `json:"found"`
	Merchant string  `json:"merchant,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

type CategorizeRequest struct {
	Merchant    string `json:"merchant"`
	Description string `json:"description"`
}

type CategorizeResponse struct {
	Category string `json:"category"`
}
