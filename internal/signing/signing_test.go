package signing

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampFormat(t *testing.T) {
	ts := Timestamp(time.Date(2024, 3, 7, 9, 5, 42, 123_000_000, time.UTC))
	assert.Equal(t, "20240307T090542.123Z", ts)
}

func TestTimestampIsUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	local := time.Date(2024, 3, 7, 9, 5, 42, 0, loc)
	assert.Equal(t, Timestamp(local.UTC()), Timestamp(local))
}

func TestNowMatchesFixedWidthForm(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^\d{8}T\d{6}\.\d{3}Z$`), Now())
}

func TestSignHMACSHA256Deterministic(t *testing.T) {
	key := []byte("signing-secret")
	msg := []byte(`login20240307T090542.123Z{"amount":100}`)

	first := SignHMACSHA256(key, msg)
	second := SignHMACSHA256(key, msg)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64, "hex encoded sha256 digest")
}

func TestSignHMACSHA256SensitiveToEveryInput(t *testing.T) {
	base := SignHMACSHA256([]byte("secret"), []byte("login"+"20240307T090542.123Z"+"body"))

	changedKey := SignHMACSHA256([]byte("secret2"), []byte("login"+"20240307T090542.123Z"+"body"))
	changedDate := SignHMACSHA256([]byte("secret"), []byte("login"+"20240307T090542.124Z"+"body"))
	changedBody := SignHMACSHA256([]byte("secret"), []byte("login"+"20240307T090542.123Z"+"body2"))

	assert.NotEqual(t, base, changedKey)
	assert.NotEqual(t, base, changedDate)
	assert.NotEqual(t, base, changedBody)
}
