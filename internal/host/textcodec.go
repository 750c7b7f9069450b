package host

import (
	"bytes"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var textApplicationTypes = []string{
	"application/json",
	"application/xml",
	"application/javascript",
	"application/x-sh",
	"application/x-ndjson",
}

// decodeText returns the UTF-8 text of data or ErrNotText.
func decodeText(name string, data []byte, extensions []string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if !hasTextExtension(name, extensions) && !isTextMIME(mimetype.Detect(data)) {
		return "", ErrNotText
	}
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM)), nil
	}
	decoded, err := detectEncoding(data).NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimPrefix(decoded, utf8BOM)), nil
}

// detectEncoding guesses the charset of non UTF-8 data, defaulting to windows-1252.
func detectEncoding(data []byte) encoding.Encoding {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return charmap.Windows1252
	}
	enc, _ := charset.Lookup(strings.ToLower(result.Charset))
	if enc == nil {
		return charmap.Windows1252
	}
	return enc
}

func isTextMIME(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		value := m.String()
		if strings.HasPrefix(value, "text/") {
			return true
		}
		for _, candidate := range textApplicationTypes {
			if m.Is(candidate) {
				return true
			}
		}
	}
	return false
}

func hasTextExtension(name string, extensions []string) bool {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return false
	}
	for _, candidate := range extensions {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if !strings.HasPrefix(candidate, ".") {
			candidate = "." + candidate
		}
		if candidate == ext {
			return true
		}
	}
	return false
}
