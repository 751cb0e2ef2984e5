package email

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText renders the text alternative of an HTML email: one line per
// block element, with the letter's own line breaks kept intact.
func PlainText(htmlBody string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return "", err
	}

	var blocks []string
	doc.Find("body h1, body p, body .letter").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if s.HasClass("letter") {
			blocks = append(blocks, text)
			return
		}
		if text != "" {
			blocks = append(blocks, strings.Join(strings.Fields(text), " "))
		}
	})
	return strings.Join(blocks, "\n\n"), nil
}
