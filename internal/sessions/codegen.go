package sessions

import "crypto/rand"

// newSessionCode: 128bitのCSPRNG出力から length 文字のコードを作る。
// owner や subject には一切依存させない（コードから何も推測できないこと）。
func newSessionCode(length int) (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = CodeAlphabet[int(buf[i])%len(CodeAlphabet)]
	}
	return string(out), nil
}
