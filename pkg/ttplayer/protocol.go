package ttplayer

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	uni "golang.org/x/text/encoding/unicode"
)

var utf16le = uni.UTF16(uni.LittleEndian, uni.IgnoreBOM)

// EncodeQueryTerm turns an artist or title into the search form the
// lyrics server expects: punctuation and spaces removed, lower-cased,
// UTF-16LE bytes as uppercase hex.
func EncodeQueryTerm(source string) string {
	normalized := strings.ToLower(strings.Map(func(r rune) rune {
		if r == ' ' || unicode.IsPunct(r) {
			return -1
		}
		return r
	}, source))
	if normalized == "" {
		return ""
	}

	encoded, err := utf16le.NewEncoder().String(normalized)
	if err != nil {
		return ""
	}
	return strings.ToUpper(hex.EncodeToString([]byte(encoded)))
}

// VerificationCode computes the download code the server recomputes on its
// side. All arithmetic is 32-bit signed with wraparound. Input that is not
// valid UTF-8 yields "".
func VerificationCode(artist, title string, id int32) string {
	song := artist + title
	if !utf8.ValidString(song) {
		return ""
	}
	data := []byte(song)

	v1 := (id >> 8) & 0xFF
	var v3 int32
	if id&0xFF0000 == 0 {
		v3 = 0xFF & ^v1
	} else {
		v3 = 0xFF & (id >> 16)
	}
	v3 |= (id & 0xFF) << 8
	v3 <<= 8
	v3 |= 0xFF & v1
	v3 <<= 8
	if uint32(id)&0xFF000000 == 0 {
		v3 |= 0xFF & ^id
	} else {
		v3 |= 0xFF & (id >> 24)
	}

	var acc1, acc2 int32
	for i := len(data) - 1; i >= 0; i-- {
		b := int32(int8(data[i]))
		acc1 = b + acc2
		acc2 = (acc2 << (uint(i%2) + 4)) + acc1
	}

	var acc1b int32
	for i := 0; i < len(data); i++ {
		b := int32(int8(data[i]))
		tmp := b + acc1b
		acc1b = (acc1b << (uint(i%2) + 3)) + tmp
	}

	v5 := acc2 ^ v3
	v5 += acc1b | id
	v5 *= acc1b | v3
	v5 *= acc2 ^ id
	return strconv.FormatInt(int64(v5), 10)
}
