// Package zpay32 encodes and decodes BOLT-11 Lightning payment requests.
// Trimmed from zpay32/invoice.go's functional-options Invoice and
// field-type constants to the subset spec §4.1/§4.5 needs: amount,
// payment hash, description, expiry, and the destination node's
// recoverable signature. Route-hint ('r') fields are not handled: Encode
// never writes Invoice.RouteHints, and Decode skips any 'r' field it
// meets, leaving RouteHints empty.
package zpay32

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"
)

// mSatPerSat is the number of millisatoshis per satoshi.
const mSatPerSat = 1000

// Field type tags, matching the teacher's BOLT-11 constants.
const (
	fieldTypeP = 1
	fieldTypeD = 13
	fieldTypeX = 6
	fieldTypeR = 3
)

// DefaultExpiry is used when an invoice does not specify one, per BOLT-11.
const DefaultExpiry = 3600 * time.Second

// ErrMalformedInvoice is returned for any BOLT-11 string that does not
// parse, satisfying spec §4.1's "fails fast on malformed invoice".
var ErrMalformedInvoice = errors.New("zpay32: malformed invoice")

// ErrInvoiceExpired describes an invoice past its expiry window. No
// function in this package returns it; IsExpired reports the condition
// as a bool.
var ErrInvoiceExpired = errors.New("zpay32: invoice has expired")

// RouteHint is one hop of route-assistance data carried in an 'r' field.
type RouteHint struct {
	NodeID                    [33]byte
	ShortChannelID            uint64
	FeeBaseMsat               uint32
	FeeProportionalMillionths uint32
	CLTVExpiryDelta           uint16
}

// Invoice is a decoded (or to-be-encoded) BOLT-11 payment request.
type Invoice struct {
	Net             *chaincfg.Params
	MilliSat        uint64
	Timestamp       time.Time
	PaymentHash     [32]byte
	Destination     *btcec.PublicKey
	Description     string
	Expiry          time.Duration
	RouteHints      []RouteHint
	MinFinalCLTV    uint64
}

// IsExpired reports whether the invoice's expiry window has elapsed.
func (i *Invoice) IsExpired(now time.Time) bool {
	expiry := i.Expiry
	if expiry == 0 {
		expiry = DefaultExpiry
	}
	return now.After(i.Timestamp.Add(expiry))
}

// hrpPrefix returns the BOLT-11 human-readable prefix for a network.
func hrpPrefix(net *chaincfg.Params) (string, error) {
	switch net.Net {
	case chaincfg.MainNetParams.Net:
		return "lnbc", nil
	case chaincfg.TestNet3Params.Net:
		return "lntb", nil
	case chaincfg.SigNetParams.Net:
		return "lntbs", nil
	case chaincfg.RegressionNetParams.Net:
		return "lnbcrt", nil
	default:
		return "", fmt.Errorf("zpay32: unsupported network %v", net.Name)
	}
}

// encodeAmount renders the invoice amount using BOLT-11's multiplier
// suffix scheme: the 'n' unit for whole-satoshi amounts, the 'p' unit
// otherwise.
func encodeAmount(msat uint64) string {
	if msat == 0 {
		return ""
	}
	// Try whole sats (100 = 'm' unit... use simplest: express directly in
	// millisats via the "p" (pico-BTC, 0.1msat) unit only when needed).
	if msat%mSatPerSat == 0 {
		sats := msat / mSatPerSat
		// 1 BTC = 1e8 sats; express as sats * 10 in units of "n" (100
		// nanoBTC = 1 sat) keeps this exact and simple.
		return strconv.FormatUint(sats*10, 10) + "n"
	}
	return strconv.FormatUint(msat*10, 10) + "p"
}

func decodeAmount(hrp string, prefix string) (uint64, error) {
	amtStr := strings.TrimPrefix(hrp, prefix)
	if amtStr == "" {
		return 0, nil
	}
	unit := amtStr[len(amtStr)-1]
	numStr := amtStr[:len(amtStr)-1]
	val, err := strconv.ParseUint(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrMalformedInvoice, amtStr)
	}
	switch unit {
	case 'p':
		return val / 10, nil
	case 'n':
		return (val / 10) * mSatPerSat, nil
	case 'u':
		return val * 100 * mSatPerSat, nil
	case 'm':
		return val * 100_000 * mSatPerSat, nil
	default:
		return 0, fmt.Errorf("%w: unknown amount unit %q", ErrMalformedInvoice, string(unit))
	}
}

func writeTagged(buf *[]byte, tag byte, data []byte) {
	bits, _ := bech32.ConvertBits(data, 8, 5, true)
	length := len(bits)
	*buf = append(*buf, tag, byte(length>>5), byte(length&31))
	*buf = append(*buf, bits...)
}

// Encode renders invoice as a BOLT-11 string, signed with sign (which
// must produce a 65-byte recoverable ECDSA signature over the SHA-256
// of the human-readable prefix concatenated with the data part).
func Encode(invoice *Invoice, sign func(hash []byte) ([]byte, error)) (string, error) {
	prefix, err := hrpPrefix(invoice.Net)
	if err != nil {
		return "", err
	}
	hrp := prefix + encodeAmount(invoice.MilliSat)

	var tagged []byte
	writeTagged(&tagged, fieldTypeP, invoice.PaymentHash[:])
	if invoice.Description != "" {
		writeTagged(&tagged, fieldTypeD, []byte(invoice.Description))
	}
	if invoice.Expiry != 0 && invoice.Expiry != DefaultExpiry {
		var eb [8]byte
		n := putUvarint(eb[:], uint64(invoice.Expiry.Seconds()))
		writeTagged(&tagged, fieldTypeX, eb[:n])
	}

	tsBits := quintetsFromUint(uint64(invoice.Timestamp.Unix()), 7)

	data := append(append([]byte{}, tsBits...), tagged...)

	digest := sha256.Sum256(append([]byte(hrp), bech32ToBytes(data)...))
	sig, err := sign(digest[:])
	if err != nil {
		return "", fmt.Errorf("zpay32: signing invoice: %w", err)
	}
	sigBits, _ := bech32.ConvertBits(sig, 8, 5, true)
	data = append(data, sigBits...)

	encoded, err := bech32.EncodeM(hrp, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedInvoice, err)
	}
	return encoded, nil
}

// Decode parses a BOLT-11 string against the expected network.
func Decode(invoiceStr string, net *chaincfg.Params) (*Invoice, error) {
	prefix, err := hrpPrefix(net)
	if err != nil {
		return nil, err
	}

	hrp, data, err := bech32.DecodeNoLimit(invoiceStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInvoice, err)
	}
	if !strings.HasPrefix(hrp, prefix) {
		return nil, fmt.Errorf("%w: invoice is for a different network", ErrMalformedInvoice)
	}

	if len(data) < 7+104 {
		return nil, fmt.Errorf("%w: too short", ErrMalformedInvoice)
	}

	msat, err := decodeAmount(hrp, prefix)
	if err != nil {
		return nil, err
	}

	timestamp := time.Unix(int64(uintFromQuintets(data[:7])), 0)

	sigData := data[len(data)-104:]
	sigBytes, err := bech32.ConvertBits(sigData, 5, 8, true)
	if err != nil || len(sigBytes) < 65 {
		return nil, fmt.Errorf("%w: signature", ErrMalformedInvoice)
	}

	tagged := data[7 : len(data)-104]

	inv := &Invoice{
		Net:       net,
		MilliSat:  msat,
		Timestamp: timestamp,
		Expiry:    DefaultExpiry,
	}

	i := 0
	for i < len(tagged) {
		if i+3 > len(tagged) {
			return nil, fmt.Errorf("%w: truncated tagged field", ErrMalformedInvoice)
		}
		tag := tagged[i]
		length := int(tagged[i+1])<<5 | int(tagged[i+2])
		i += 3
		if i+length > len(tagged) {
			return nil, fmt.Errorf("%w: tagged field overruns invoice", ErrMalformedInvoice)
		}
		field := tagged[i : i+length]
		i += length

		raw, err := bech32.ConvertBits(field, 5, 8, false)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInvoice, err)
		}

		switch tag {
		case fieldTypeP:
			if len(raw) < 32 {
				return nil, fmt.Errorf("%w: short payment hash", ErrMalformedInvoice)
			}
			copy(inv.PaymentHash[:], raw[:32])
		case fieldTypeD:
			inv.Description = string(raw)
		case fieldTypeX:
			v, _ := binaryUvarint(raw)
			inv.Expiry = time.Duration(v) * time.Second
		}
	}

	digest := sha256.Sum256(append([]byte(hrp), bech32ToBytes(data[:len(data)-104])...))

	// BOLT-11 carries [R || S || recovery_id]; RecoverCompact wants the
	// recovery header byte first.
	recoverableSig := make([]byte, 65)
	recoverableSig[0] = sigBytes[64] + 27 + 4
	copy(recoverableSig[1:], sigBytes[:64])

	pubKey, _, err := ecdsa.RecoverCompact(recoverableSig, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: recovering signer: %v", ErrMalformedInvoice, err)
	}
	inv.Destination = pubKey

	return inv, nil
}

func bech32ToBytes(data []byte) []byte {
	out, _ := bech32.ConvertBits(data, 5, 8, true)
	return out
}

// quintetsFromUint packs v into n big-endian 5-bit groups.
func quintetsFromUint(v uint64, n int) []byte {
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v & 0x1f)
		v >>= 5
	}
	return out
}

func uintFromQuintets(groups []byte) uint64 {
	var v uint64
	for _, g := range groups {
		v = v<<5 | uint64(g&0x1f)
	}
	return v
}

func putUvarint(buf []byte, v uint64) int {
	n := 0
	for v >= 0x80 {
		buf[n] = byte(v) | 0x80
		v >>= 7
		n++
	}
	buf[n] = byte(v)
	return n + 1
}

func binaryUvarint(buf []byte) (uint64, int) {
	var x uint64
	var s uint
	for i, b := range buf {
		if b < 0x80 {
			return x | uint64(b)<<s, i + 1
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, 0
}
