package transcription

type Config struct {
	TranscribeURL string
	ImproveURL    string
}

type improveRequest struct {
	AudioDataURI          string `json:"audioDataUri"`
	OriginalTranscription string `json:"originalTranscription"`
}

type improveResponse struct {
	ImprovedTranscription *string `json:"improvedTranscription"`
}

// textResponse covers the upstream schemas seen in the wild: a "text" or
// "generated_text" field, possibly wrapped in a single-element array.
type textResponse struct {
	Text          *string `json:"text"`
	GeneratedText *string `json:"generated_text"`
}

func (r textResponse) value() (string, bool) {
	if r.Text != nil {
		return *r.Text, true
	}
	if r.GeneratedText != nil {
		return *r.GeneratedText, true
	}
	return "", false
}
