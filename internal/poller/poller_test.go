package poller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripQuotes(t *testing.T) {
	assert.Equal(t, "noble1abc", stripQuotes(`"noble1abc"`))
	assert.Equal(t, "noble1abc", stripQuotes("noble1abc"))
	assert.Equal(t, `"unbalanced`, stripQuotes(`"unbalanced`))
}

func TestDecodePacketData_Direct(t *testing.T) {
	m, ok := decodePacketData(`{"receiver":"noble1abc","amount":"1000000"}`)
	assert.True(t, ok)
	assert.Equal(t, "noble1abc", attrString(m, "receiver"))
}

func TestDecodePacketData_ValueWrapper(t *testing.T) {
	m, ok := decodePacketData(`{"value":"{\"receiver\":\"noble1abc\"}"}`)
	assert.True(t, ok)
	assert.Equal(t, "noble1abc", attrString(m, "receiver"))
}

func TestDecodePacketData_Base64(t *testing.T) {
	// base64 of {"receiver":"noble1abc"}
	m, ok := decodePacketData("eyJyZWNlaXZlciI6Im5vYmxlMWFiYyJ9")
	assert.True(t, ok)
	assert.Equal(t, "noble1abc", attrString(m, "receiver"))
}

func TestDecodePacketData_Unparseable(t *testing.T) {
	_, ok := decodePacketData("not json at all")
	assert.False(t, ok)
}

func TestAttrString_NumericField(t *testing.T) {
	m := map[string]interface{}{"amount": float64(1000000)}
	assert.Equal(t, "1000000", attrString(m, "amount"))
	assert.Equal(t, "", attrString(m, "missing"))
}

func TestNumericEqual(t *testing.T) {
	assert.True(t, numericEqual("1000000uusdc", "1000000", "uusdc"))
	assert.True(t, numericEqual("1000000", "1000000.0", ""))
	assert.False(t, numericEqual("1000000", "1000001", "uusdc"))
	assert.True(t, numericEqual("abc", "abc", ""), "falls back to string equality when not numeric")
}
