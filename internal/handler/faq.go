package handler

import (
	"net/http"

	"github.com/epicstrade/rifas/internal/model"
)

// FAQAPI is the chat widget knowledge base
type FAQAPI interface {
	Language(lang, acceptLanguage string) string
	List(lang string) []model.FAQEntry
	Answer(question, lang, acceptLanguage string) *model.FAQAnswer
}

// FAQHandler serves the public help widget
type FAQHandler struct {
	faq FAQAPI
}

// NewFAQHandler creates a new FAQ handler
func NewFAQHandler(faq FAQAPI) *FAQHandler {
	return &FAQHandler{faq: faq}
}

// List handles GET /v1/faq?lang=
func (h *FAQHandler) List(w http.ResponseWriter, r *http.Request) {
	lang := h.faq.Language(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	w.Header().Set("Content-Language", lang)
	w.Header().Set("Vary", "Accept-Language")
	WriteCollection(w, http.StatusOK, h.faq.List(lang), nil, nil)
}

// Ask handles POST /v1/faq/ask
func (h *FAQHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req model.AskRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	answer := h.faq.Answer(req.Question, req.Lang, r.Header.Get("Accept-Language"))
	w.Header().Set("Content-Language", answer.Lang)
	WriteData(w, http.StatusOK, answer, nil)
}
