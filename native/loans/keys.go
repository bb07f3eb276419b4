package loans

import "strings"

var assetPrefix = []byte("loans/asset/")

func assetKey(symbol string) []byte {
	trimmed := strings.TrimSpace(symbol)
	buf := make([]byte, len(assetPrefix)+len(trimmed))
	copy(buf, assetPrefix)
	copy(buf[len(assetPrefix):], trimmed)
	return buf
}
