package content

import (
	"fmt"
	"strings"
)

type Type string

const (
	TypeText     Type = "text"
	TypeImageURL Type = "imageURL"
)

type Item interface {
	Type() Type
}

type Text struct {
	Text string
}

func (t *Text) Type() Type {
	return TypeText
}

type ImageURL struct {
	URL string
	// MediaType is optional; data URIs carry their own.
	MediaType string
}

func (iu *ImageURL) Type() Type {
	return TypeImageURL
}

type Content []Item

// FromText returns a new content item with the given text.
func FromText(text string) Content {
	return Content{
		&Text{Text: text},
	}
}

// Textf returns a new content item with the provided formatted text.
func Textf(format string, args ...any) Content {
	return FromText(fmt.Sprintf(format, args...))
}

// AddImage adds an image URL to the content.
func (c *Content) AddImage(imageURL, mediaType string) {
	*c = append(*c, &ImageURL{URL: imageURL, MediaType: mediaType})
}

// Append adds the text to the last content item if it's a text item, otherwise
// it adds a new text item to the end of the list.
func (c *Content) Append(text string) {
	if l := len(*c); l > 0 {
		if tc, ok := (*c)[l-1].(*Text); ok {
			tc.Text += text
			return
		}
	}
	*c = append(*c, &Text{Text: text})
}

// String joins all text items, skipping anything that isn't text.
func (c Content) String() string {
	var sb strings.Builder
	for _, item := range c {
		if t, ok := item.(*Text); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

// IsTextOnly reports whether every item is text. Empty content counts as text.
func (c Content) IsTextOnly() bool {
	for _, item := range c {
		if item.Type() != TypeText {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the content has no text and no other items.
func (c Content) IsEmpty() bool {
	return c.IsTextOnly() && strings.TrimSpace(c.String()) == ""
}
