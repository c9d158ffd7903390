package llm

// APIError reports a transport failure, a non-2xx status, or a
// server-reported error when calling the configured LLM endpoint.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// InvalidResponseError reports a response envelope that could not be
// parsed, invalid JSON in the generated text, or recipe data that
// failed validation.
type InvalidResponseError struct {
	Message string
}

func (e *InvalidResponseError) Error() string {
	return e.Message
}
