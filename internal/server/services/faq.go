package services

import (
	"encoding/json"
	"fmt"
	"os"
)

type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

var defaultFAQ = []FAQItem{
	{Question: "How do I contact a seller?", Answer: "Open the vehicle page and start a chat. Messages are delivered to the seller in real time."},
	{Question: "Can I send photos?", Answer: "Yes. Attach a photo or a document from the chat screen; files are stored securely and shared as links."},
	{Question: "Can I delete a message?", Answer: "You can delete your own messages. The other participant sees that the message was deleted."},
	{Question: "What does pinning do?", Answer: "Pinned conversations stay at the top of your chat list."},
}

// FAQService serves the help-center entries.
type FAQService struct {
	items []FAQItem
}

// NewFAQService loads entries from the JSON file at path, a list of
// {question, answer} objects. An empty path serves the built-in list.
func NewFAQService(path string) (*FAQService, error) {
	if path == "" {
		return &FAQService{items: defaultFAQ}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read faq: %w", err)
	}
	var items []FAQItem
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("parse faq %s: %w", path, err)
	}
	return &FAQService{items: items}, nil
}

func (s *FAQService) List() []FAQItem {
	out := make([]FAQItem, len(s.items))
	copy(out, s.items)
	return out
}
