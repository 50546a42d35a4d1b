package lrc

import (
	"fmt"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

// Detector guesses the charset name of raw lyrics bytes. An empty name
// means unknown.
type Detector func(raw []byte) string

var textDetector = chardet.NewTextDetector()

// DetectCharset is the default Detector.
func DetectCharset(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	res, err := textDetector.DetectBest(raw)
	if err != nil || res == nil {
		return ""
	}
	return res.Charset
}

// chardet 与 WHATWG 命名不一致的别名
var charsetAliases = map[string]string{
	"gb-18030": "gb18030",
}

func decode(raw []byte, charset string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	if alias, ok := charsetAliases[name]; ok {
		name = alias
	}
	if name == "" || name == "utf-8" || name == "utf8" {
		return string(raw), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		logger.Debug().Str("charset", charset).Msg("Unknown charset, falling back to UTF-8")
		return string(raw), nil
	}

	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s lyrics: %w", name, err)
	}
	return string(out), nil
}
