package api

import (
	"context"
	"encoding/json"
)

type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQ fetches the help-center entries.
func (c *Client) FAQ(ctx context.Context) ([]FAQItem, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/faq", &raw); err != nil {
		return nil, err
	}
	return decodeFAQ(raw), nil
}

// decodeFAQ accepts the payload shapes the backend has used over time, in
// order: a bare array, {data: []}, {faqs: []}, {items: []} and
// {data: {faqs: []}}. Anything else is an empty list.
func decodeFAQ(raw json.RawMessage) []FAQItem {
	var list []FAQItem
	if json.Unmarshal(raw, &list) == nil {
		return nonNil(list)
	}

	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return []FAQItem{}
	}
	for _, key := range []string{"data", "faqs", "items"} {
		if v, ok := obj[key]; ok && json.Unmarshal(v, &list) == nil {
			return nonNil(list)
		}
	}
	if v, ok := obj["data"]; ok {
		var nested struct {
			FAQs []FAQItem `json:"faqs"`
		}
		if json.Unmarshal(v, &nested) == nil {
			return nonNil(nested.FAQs)
		}
	}
	return []FAQItem{}
}

func nonNil(l []FAQItem) []FAQItem {
	if l == nil {
		return []FAQItem{}
	}
	return l
}
