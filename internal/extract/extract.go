package extract

import (
	"io"
	"mime/quotedprintable"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"inbox-rpa/internal/mailbox"
)

// qpMarker is the raw quoted-printable escape for '='. Its presence in an
// undeclared body is treated as evidence of QP encoding.
const qpMarker = "=3D"

// Extractor finds the actionable link inside a link-action message.
type Extractor struct {
	// PathSubstring must appear in a candidate URL for it to be authoritative;
	// it filters out tracking, unsubscribe and footer links.
	PathSubstring string
	// URLPattern matches URL-shaped substrings in plain-text bodies.
	URLPattern *regexp.Regexp
}

// NewExtractor compiles the plain-text URL pattern.
func NewExtractor(pathSubstring, urlPattern string) (*Extractor, error) {
	re, err := regexp.Compile(urlPattern)
	if err != nil {
		return nil, err
	}
	return &Extractor{PathSubstring: pathSubstring, URLPattern: re}, nil
}

// Extract returns the first authoritative link in the message, preferring the
// HTML body's anchors over plain-text pattern matches. Decoding or parse
// failures are logged with the subject and reported as "no link".
func (e *Extractor) Extract(msg mailbox.Message) (string, bool) {
	if msg.HTML != "" {
		body := decodeIfQuotedPrintable(msg.HTML, msg.RawHeaders)
		if link, ok := e.firstMatchingAnchor(body, msg.Subject); ok {
			logrus.Infof("Link found in HTML body: %s", link)
			return link, true
		}
	}

	if msg.Text != "" {
		text := decodeIfQuotedPrintable(msg.Text, msg.RawHeaders)
		for _, candidate := range e.URLPattern.FindAllString(text, -1) {
			if strings.Contains(candidate, e.PathSubstring) {
				logrus.Infof("Link found in plain text body: %s", candidate)
				return candidate, true
			}
		}
	}

	logrus.Warnf("No valid link found in message: %s", msg.Subject)
	return "", false
}

// firstMatchingAnchor scans anchors in document order and returns the href of
// the first one containing the path substring.
func (e *Extractor) firstMatchingAnchor(body, subject string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		logrus.Errorf("Failed to parse HTML body of %q: %v", subject, err)
		return "", false
	}

	var walk func(*html.Node) (string, bool)
	walk = func(n *html.Node) (string, bool) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && strings.Contains(attr.Val, e.PathSubstring) {
					return attr.Val, true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if link, ok := walk(c); ok {
				return link, true
			}
		}
		return "", false
	}

	return walk(doc)
}

// decodeIfQuotedPrintable decodes body when the headers declare a
// quoted-printable transfer encoding or the body carries the raw =3D escape.
// Undecodable input falls back to whatever decoded cleanly plus the remainder.
func decodeIfQuotedPrintable(body, rawHeaders string) string {
	declared := strings.Contains(strings.ToLower(rawHeaders), "quoted-printable")
	if !declared && !strings.Contains(body, qpMarker) {
		return body
	}

	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(body)))
	if err != nil && len(decoded) == 0 {
		logrus.Warnf("Failed to decode quoted-printable body: %v", err)
		return body
	}
	// Partial output on error is best-effort replacement of the bad tail.
	return string(decoded)
}
