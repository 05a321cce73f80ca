package mailbox

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"github.com/xkilldash9x/regwizard/api/schemas"
)

// codePattern matches six digits that are not part of a longer digit run.
var codePattern = regexp.MustCompile(`(?:^|\D)(\d{6})(?:\D|$)`)

// ExtractCode returns the first standalone six-digit run in text.
func ExtractCode(text string) (schemas.VerificationCode, bool) {
	m := codePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return schemas.VerificationCode(m[1]), true
}

// HTMLToText renders the visible text of an HTML document or fragment.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	doc.Find("script, style, head").Remove()
	// Block boundaries would otherwise glue adjacent numbers together.
	doc.Find("br, p, div, td, tr, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// MessageText reads an RFC 5322 message and returns its readable text. Plain
// parts are preferred; HTML parts are converted when no plain part exists.
func MessageText(r io.Reader) (string, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return "", fmt.Errorf("reading message: %w", err)
	}
	defer mr.Close()

	var plain, html []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", fmt.Errorf("reading message part: %w", err)
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		b, err := io.ReadAll(p.Body)
		if err != nil {
			return "", fmt.Errorf("reading %s body: %w", contentType, err)
		}
		switch {
		case strings.HasPrefix(contentType, "text/html"):
			html = append(html, string(b))
		case contentType == "" || strings.HasPrefix(contentType, "text/"):
			plain = append(plain, string(b))
		}
	}

	if len(plain) > 0 {
		return strings.TrimSpace(strings.Join(plain, "\n")), nil
	}
	var texts []string
	for _, h := range html {
		t, err := HTMLToText(h)
		if err != nil {
			return "", err
		}
		texts = append(texts, t)
	}
	return strings.Join(texts, "\n"), nil
}
