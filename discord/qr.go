package discord

import (
	"bytes"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// walletQR renders a scannable payment QR for the configured wallet as
// a PNG.
func walletQR(wallet string) (*bytes.Reader, error) {
	png, err := qrcode.Encode("bitcoin:"+wallet, qrcode.Medium, 300)
	if err != nil {
		return nil, fmt.Errorf("encode wallet qr: %w", err)
	}
	return bytes.NewReader(png), nil
}
