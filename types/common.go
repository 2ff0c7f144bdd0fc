package types

type TargetType = string

const (
	TargetTypeUser TargetType = "user"
)

// This represents an Imagen API Error
type ApiError struct {
	Context map[string]string `json:"context,omitempty" description:"Context of the error. Usually used for validation error contexts"`
	Message string            `json:"message" description:"Message of the error"`
}

// Acknowledgement body returned by the result webhook once a callback has
// been processed, including idempotent redeliveries
type WebhookAck struct {
	Success bool   `json:"success" description:"Whether the callback was processed"`
	Message string `json:"message,omitempty" description:"Optional human readable detail"`
}
