package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageSerializePreservesOrder(t *testing.T) {
	msg := NewMessage().
		Set("Mode", "approval").
		Set("ServiceId", "SVC001").
		Set("OrderNo", "ORDER1").
		Set("Amount", "43000")

	assert.Equal(t, "Mode=approval&ServiceId=SVC001&OrderNo=ORDER1&Amount=43000", msg.Serialize())
}

func TestMessageOmitsEmptyValues(t *testing.T) {
	msg := NewMessage().
		Set("Mode", "approval").
		Set("AuthType", "").
		Set("Iden", "").
		Set("OrderNo", "ORDER1")

	assert.Equal(t, "Mode=approval&OrderNo=ORDER1", msg.Serialize())

	_, ok := msg.Get("AuthType")
	assert.False(t, ok)
}

func TestMessageRoundTrip(t *testing.T) {
	msg := NewMessage().
		Set("ResultCode", "0000").
		Set("ResultMsg", "정상승인").
		Set("ApprovalNo", "A123456")

	parsed, err := ParseMessage(msg.Serialize())
	require.NoError(t, err)
	assert.Equal(t, msg.Fields(), parsed.Fields())
	assert.Equal(t, msg.Map(), parsed.Map())
}

func TestParseMessageSplitsOnFirstEquals(t *testing.T) {
	parsed, err := ParseMessage("Memo=a=b=c&Code=0000")
	require.NoError(t, err)

	memo, ok := parsed.Get("Memo")
	assert.True(t, ok)
	assert.Equal(t, "a=b=c", memo)
}

func TestParseMessageRejectsPairWithoutSeparator(t *testing.T) {
	_, err := ParseMessage("ResultCode=0000&garbage")
	assert.ErrorIs(t, err, ErrCipherDecode)
}

func TestParseMessageEmpty(t *testing.T) {
	parsed, err := ParseMessage("")
	require.NoError(t, err)
	assert.Empty(t, parsed.Fields())
}

func TestMessageGetFirstWins(t *testing.T) {
	parsed, err := ParseMessage("K=first&K=second")
	require.NoError(t, err)

	v, ok := parsed.Get("K")
	assert.True(t, ok)
	assert.Equal(t, "first", v)

	// the audit map keeps the later duplicate
	assert.Equal(t, "second", parsed.Map()["K"])
}
