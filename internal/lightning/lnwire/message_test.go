package lnwire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, msg))

	got, err := ReadMessage(&buf)
	require.NoError(t, err)
	return got
}

func TestFundingLocked_RoundTrip(t *testing.T) {
	in := &FundingLocked{ChannelID: ChannelID{1, 2, 3}}
	out := roundTrip(t, in).(*FundingLocked)
	assert.Equal(t, in.ChannelID, out.ChannelID)
}

func TestChannelReestablish_RoundTrip(t *testing.T) {
	in := &ChannelReestablish{ChannelID: ChannelID{9}, NextLocalCommitNum: 5, NextRemoteRevokeNum: 4}
	out := roundTrip(t, in).(*ChannelReestablish)
	assert.Equal(t, in.NextLocalCommitNum, out.NextLocalCommitNum)
	assert.Equal(t, in.NextRemoteRevokeNum, out.NextRemoteRevokeNum)
}

func TestCommitmentSigned_RoundTripWithHtlcSigs(t *testing.T) {
	in := &CommitmentSigned{
		ChannelID: ChannelID{1},
		CommitSig: []byte{0xAA, 0xBB},
		HtlcSigs:  [][]byte{{0x01}, {0x02, 0x03}},
	}
	out := roundTrip(t, in).(*CommitmentSigned)
	assert.Equal(t, in.CommitSig, out.CommitSig)
	assert.Equal(t, in.HtlcSigs, out.HtlcSigs)
}

func TestRevokeAndAck_RoundTrip(t *testing.T) {
	in := &RevokeAndAck{ChannelID: ChannelID{2}, Revocation: [32]byte{7}}
	out := roundTrip(t, in).(*RevokeAndAck)
	assert.Equal(t, in.Revocation, out.Revocation)
}

func TestUpdateAddHTLC_RoundTrip(t *testing.T) {
	in := &UpdateAddHTLC{
		ChannelID:   ChannelID{3},
		ID:          42,
		AmountMsat:  10_000_000,
		PaymentHash: [32]byte{5},
		Expiry:      700_000,
		OnionBlob:   make([]byte, 1300),
	}
	out := roundTrip(t, in).(*UpdateAddHTLC)
	assert.Equal(t, in.AmountMsat, out.AmountMsat)
	assert.Equal(t, in.PaymentHash, out.PaymentHash)
	assert.Len(t, out.OnionBlob, 1300)
}

func TestUpdateFulfillHTLC_RoundTrip(t *testing.T) {
	in := &UpdateFulfillHTLC{ChannelID: ChannelID{4}, ID: 1, PaymentPreimage: [32]byte{9}}
	out := roundTrip(t, in).(*UpdateFulfillHTLC)
	assert.Equal(t, in.PaymentPreimage, out.PaymentPreimage)
}

func TestUpdateFailHTLC_RoundTrip(t *testing.T) {
	in := &UpdateFailHTLC{ChannelID: ChannelID{5}, ID: 2, Reason: []byte("expired")}
	out := roundTrip(t, in).(*UpdateFailHTLC)
	assert.Equal(t, in.Reason, out.Reason)
}

func TestShutdown_RoundTrip(t *testing.T) {
	in := &Shutdown{ChannelID: ChannelID{6}, ScriptPubkey: []byte{0x00, 0x14}}
	out := roundTrip(t, in).(*Shutdown)
	assert.Equal(t, in.ScriptPubkey, out.ScriptPubkey)
}

func TestReadMessage_UnknownTypeErrors(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF})
	_, err := ReadMessage(&buf)
	assert.Error(t, err)
}
