// Package webpage reads bounded prefixes of HTML responses as text.
package webpage

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// Page is a response prefix. Raw holds the bytes as received, Text the
// bytes decoded to UTF-8. They are equal when no decoding was needed.
type Page struct {
	Raw  string
	Text string
}

// Contains reports whether marker occurs in either form of the page.
func (p Page) Contains(marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(p.Text, marker) || strings.Contains(p.Raw, marker)
}

// Searchable returns text that contains every marker found by Contains.
func (p Page) Searchable() string {
	if p.Raw == p.Text {
		return p.Text
	}
	return p.Text + "\n" + p.Raw
}

// Read reads at most limit bytes of the body.
//
// A charset from the Content-Type header or a byte order mark is always
// honoured. Otherwise bytes that are valid UTF-8 are kept as they are, a
// <meta> charset is used when present, and anything else is read as
// GB18030, the superset of the GBK pages served by portal firmware.
func Read(resp *http.Response, limit int64) (Page, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return Page{}, fmt.Errorf("read body: %w", err)
	}
	return Decode(raw, resp.Header.Get("Content-Type")), nil
}

// Decode converts raw to a Page using contentType as described on Read.
func Decode(raw []byte, contentType string) Page {
	page := Page{Raw: string(raw), Text: string(raw)}

	enc, name, certain := charset.DetermineEncoding(raw, contentType)
	switch {
	case certain:
	case validUTF8Prefix(raw):
		return page
	case name == "windows-1252" && !declaresCharset(raw):
		enc = simplifiedchinese.GB18030
	}
	if name == "utf-8" {
		return page
	}

	decoded, err := decode(enc, raw)
	if err != nil {
		return page
	}
	page.Text = decoded
	return page
}

func decode(enc encoding.Encoding, raw []byte) (string, error) {
	out, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(raw)))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// validUTF8Prefix accepts a multi-byte sequence cut by the read limit.
func validUTF8Prefix(raw []byte) bool {
	if utf8.Valid(raw) {
		return true
	}
	last := len(raw) - 1
	for last > 0 && len(raw)-last < utf8.UTFMax && !utf8.RuneStart(raw[last]) {
		last--
	}
	if utf8.FullRune(raw[last:]) {
		return false
	}
	return utf8.Valid(raw[:last])
}

func declaresCharset(raw []byte) bool {
	head := raw
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("charset"))
}
