package model

// FAQEntry is one question of the chat widget in one language
type FAQEntry struct {
	ID       string   `json:"id"`
	Lang     string   `json:"lang"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"-"`
}

// FAQAnswer is the widget's reply to a free-text question
type FAQAnswer struct {
	Lang        string   `json:"lang"`
	Matched     bool     `json:"matched"`
	EntryID     string   `json:"entry_id,omitempty"`
	Question    string   `json:"question,omitempty"`
	Answer      string   `json:"answer"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// AskRequest is a chat widget question
type AskRequest struct {
	Question string `json:"question"`
	Lang     string `json:"lang,omitempty"` // overrides Accept-Language
}

const MaxQuestionLength = 500

// Validate checks if the question is valid
func (r *AskRequest) Validate() []FieldError {
	if r.Question == "" {
		return []FieldError{{Field: "question", Message: "question is required"}}
	}
	if len(r.Question) > MaxQuestionLength {
		return []FieldError{{Field: "question", Message: "question must be 500 characters or less"}}
	}
	return nil
}
