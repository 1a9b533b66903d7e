package lark

import "encoding/json"

// Card element tags and header templates.
const (
	TagMarkdown  = "markdown"
	TagDiv       = "div"
	TagPlainText = "plain_text"

	TemplateBlue = "blue"
)

// Card is an interactive message card.
type Card struct {
	Config   CardConfig    `json:"config"`
	Header   *CardHeader   `json:"header,omitempty"`
	Elements []CardElement `json:"elements"`
}

// CardConfig holds rendering flags.
type CardConfig struct {
	WideScreenMode bool `json:"wide_screen_mode"`
}

// CardHeader is the coloured title bar.
type CardHeader struct {
	Title    CardText `json:"title"`
	Template string   `json:"template"`
}

// CardText is a tagged text node.
type CardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

// CardElement is a single body element.
type CardElement struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

// NewMarkdownCard builds the reply card: wide screen, one markdown element, no header.
func NewMarkdownCard(text string) Card {
	return Card{
		Config:   CardConfig{WideScreenMode: true},
		Elements: []CardElement{{Tag: TagMarkdown, Content: text}},
	}
}

// NewHeaderCard builds a broadcast card with a plain-text title and a single element.
func NewHeaderCard(title, template string, element CardElement) Card {
	return Card{
		Config: CardConfig{WideScreenMode: true},
		Header: &CardHeader{
			Title:    CardText{Tag: TagPlainText, Content: title},
			Template: template,
		},
		Elements: []CardElement{element},
	}
}

// JSONString encodes the card the way the reply API expects it: as a string field.
func (c Card) JSONString() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
