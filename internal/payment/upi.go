// internal/payment/upi.go
package payment

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"mandir-fund/internal/util"
)

// CurrencyINR is the only currency UPI collects in.
const CurrencyINR = "INR"

// UPILinkBuilder builds upi://pay deep links for a fixed payee.
// The link carries no callback: completion is never reported back.
type UPILinkBuilder struct {
	payeeAddress string
	payeeName    string
	note         string
}

// NewUPILinkBuilder creates a builder for the given payee VPA and display name.
// note prefixes every transaction note.
func NewUPILinkBuilder(payeeAddress, payeeName, note string) *UPILinkBuilder {
	return &UPILinkBuilder{
		payeeAddress: strings.TrimSpace(payeeAddress),
		payeeName:    strings.TrimSpace(payeeName),
		note:         strings.TrimSpace(note),
	}
}

// Build returns upi://pay?pa=..&pn=..&am=..&cu=INR&tn=.. for a whole-rupee
// amount. reference is appended to the transaction note so the credit can be
// matched against its payment intent.
func (b *UPILinkBuilder) Build(amount int64, reference string) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("%w: amount must be positive", util.ErrInvalidInput)
	}
	if b.payeeAddress == "" {
		return "", fmt.Errorf("%w: payee address not configured", util.ErrInvalidInput)
	}

	tn := b.note
	if reference != "" {
		tn = strings.TrimSpace(tn + " " + reference)
	}

	var sb strings.Builder
	sb.WriteString("upi://pay?pa=")
	sb.WriteString(b.payeeAddress)
	sb.WriteString("&pn=")
	sb.WriteString(encodeURIComponent(b.payeeName))
	sb.WriteString("&am=")
	sb.WriteString(strconv.FormatInt(amount, 10))
	sb.WriteString("&cu=")
	sb.WriteString(CurrencyINR)
	sb.WriteString("&tn=")
	sb.WriteString(encodeURIComponent(tn))
	return sb.String(), nil
}

// encodeURIComponent percent-encodes s with spaces as %20; UPI apps do not
// decode '+' in query values.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
