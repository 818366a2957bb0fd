// Package qr はセッションコードをQR画像にするコーデック境界。
// スキャン側（decode）はクライアントの仕事なのでここには無い。
package qr

import (
	"encoding/base64"

	qrcode "github.com/skip2/go-qrcode"
)

type Codec interface {
	Encode(text string, size int) ([]byte, error)
}

const DefaultSize = 256

// PNGCodec: go-qrcode によるPNGエンコーダ。誤り訂正レベルはQ。
type PNGCodec struct{}

func NewPNGCodec() *PNGCodec { return &PNGCodec{} }

func (PNGCodec) Encode(text string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.Encode(text, qrcode.High, size)
}

// DataURL: <img src=...> にそのまま入れられる形式
func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
