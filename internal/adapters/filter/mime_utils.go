package filter

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/jaytaylor/html2text"
	"github.com/mikey/llm-mail-triage/internal/core"
	"golang.org/x/text/encoding/htmlindex"
)

// maxMIMEDepth bounds multipart nesting
const maxMIMEDepth = 10

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

type headerGetter interface {
	Get(key string) string
}

// ParseMessage reads an RFC 822 message into an Email whose body is the
// decoded text content
func ParseMessage(r io.Reader) (*core.Email, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	body, err := extractText(msg.Header, msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text content: %w", err)
	}

	return &core.Email{
		ID:      strings.Trim(msg.Header.Get("Message-Id"), "<> "),
		Subject: decodeHeader(msg.Header.Get("Subject")),
		From:    parseAddress(msg.Header.Get("From")),
		To:      parseAddressList(msg.Header.Get("To")),
		Body:    body,
		Headers: map[string][]string(msg.Header),
	}, nil
}

// extractText prefers text/plain content and falls back to rendering HTML
func extractText(h headerGetter, body io.Reader) (string, error) {
	plain, html, err := walkPart(h, body, 0)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(plain) != "" {
		return plain, nil
	}
	if html == "" {
		return "", nil
	}

	text, err := html2text.FromString(html, html2text.Options{OmitLinks: true})
	if err != nil {
		return html, nil
	}
	return text, nil
}

func walkPart(h headerGetter, body io.Reader, depth int) (plain, html string, err error) {
	mediaType, params, perr := mime.ParseMediaType(h.Get("Content-Type"))
	if perr != nil {
		// RFC 2045 default
		mediaType, params = "text/plain", map[string]string{}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" || depth >= maxMIMEDepth {
			return "", "", nil
		}
		return walkMultipart(multipart.NewReader(body, boundary), depth)
	}

	if isAttachment(h) || (mediaType != "text/plain" && mediaType != "text/html") {
		return "", "", nil
	}

	content, err := decodeBody(h, params["charset"], body)
	if err != nil {
		return "", "", err
	}
	if mediaType == "text/html" {
		return "", content, nil
	}
	return content, "", nil
}

func walkMultipart(mr *multipart.Reader, depth int) (string, string, error) {
	var plainParts, htmlParts []string
	for {
		// raw parts keep Content-Transfer-Encoding for decodeBody
		part, err := mr.NextRawPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(plainParts) > 0 || len(htmlParts) > 0 {
				break
			}
			return "", "", fmt.Errorf("failed to read multipart body: %w", err)
		}

		plain, html, err := walkPart(part.Header, part, depth+1)
		if err != nil {
			continue
		}
		if plain != "" {
			plainParts = append(plainParts, plain)
		}
		if html != "" {
			htmlParts = append(htmlParts, html)
		}
	}
	return strings.Join(plainParts, "\n"), strings.Join(htmlParts, "\n"), nil
}

func decodeBody(h headerGetter, charset string, body io.Reader) (string, error) {
	r := body
	switch strings.ToLower(strings.TrimSpace(h.Get("Content-Transfer-Encoding"))) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		r = quotedprintable.NewReader(body)
	}

	if charset != "" && !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "us-ascii") {
		decoded, err := charsetReader(charset, r)
		if err == nil {
			r = decoded
		}
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("failed to decode body: %w", err)
	}
	return buf.String(), nil
}

func isAttachment(h headerGetter) bool {
	disposition, _, err := mime.ParseMediaType(h.Get("Content-Disposition"))
	return err == nil && disposition == "attachment"
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(input), nil
}

// decodeHeader decodes RFC 2047 encoded words, returning value unchanged on failure
func decodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

func parseAddress(value string) string {
	if value == "" {
		return ""
	}
	parser := mail.AddressParser{WordDecoder: wordDecoder}
	addr, err := parser.Parse(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return addr.Address
}

func parseAddressList(value string) []string {
	if value == "" {
		return nil
	}
	parser := mail.AddressParser{WordDecoder: wordDecoder}
	list, err := parser.ParseList(value)
	if err != nil {
		return []string{strings.TrimSpace(value)}
	}
	addrs := make([]string, 0, len(list))
	for _, a := range list {
		addrs = append(addrs, a.Address)
	}
	return addrs
}
