package cryptobox_test

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelwatch/backend/internal/cryptobox"
)

type payload struct {
	Description string `json:"description"`
	Location    string `json:"location"`
}

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, cryptobox.KeySize)
}

func TestNew_RejectsBadKeySize(t *testing.T) {
	_, err := cryptobox.New([]byte("too short"))
	assert.Error(t, err)

	_, err = cryptobox.New(bytes.Repeat([]byte{1}, 64))
	assert.Error(t, err)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	box, err := cryptobox.New(testKey())
	require.NoError(t, err)

	in := payload{Description: "water leakage on floor 3", Location: "Block A, room 312"}
	blob, err := box.Seal(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, box.Open(blob, &out))
	assert.Equal(t, in, out)
}

func TestSeal_FreshNoncePerCall(t *testing.T) {
	box, err := cryptobox.New(testKey())
	require.NoError(t, err)

	a, err := box.Seal(payload{Description: "same input"})
	require.NoError(t, err)
	b, err := box.Seal(payload{Description: "same input"})
	require.NoError(t, err)

	// Identical plaintext must never produce identical blobs.
	assert.NotEqual(t, a, b)
}

func TestOpen_BitFlipFailsCleanly(t *testing.T) {
	box, err := cryptobox.New(testKey())
	require.NoError(t, err)

	blob, err := box.Seal(payload{Description: "original content here"})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	for i := 0; i < len(raw); i++ {
		raw[i] ^= 0x01
		tampered := base64.StdEncoding.EncodeToString(raw)

		var out payload
		openErr := box.Open(tampered, &out)
		assert.ErrorIs(t, openErr, cryptobox.ErrDecrypt, "flipped byte %d must not decrypt", i)
		assert.Empty(t, out.Description, "failed open must not leak data")

		raw[i] ^= 0x01
	}
}

func TestOpen_TruncatedAndGarbage(t *testing.T) {
	box, err := cryptobox.New(testKey())
	require.NoError(t, err)

	var out payload
	assert.ErrorIs(t, box.Open("", &out), cryptobox.ErrDecrypt)
	assert.ErrorIs(t, box.Open("AAAA", &out), cryptobox.ErrDecrypt)
	assert.ErrorIs(t, box.Open("not base64 at all!!!", &out), cryptobox.ErrDecrypt)
}

func TestOpen_WrongKey(t *testing.T) {
	box1, err := cryptobox.New(testKey())
	require.NoError(t, err)
	box2, err := cryptobox.New(bytes.Repeat([]byte{0x99}, cryptobox.KeySize))
	require.NoError(t, err)

	blob, err := box1.Seal(payload{Description: "sealed under key one"})
	require.NoError(t, err)

	var out payload
	assert.ErrorIs(t, box2.Open(blob, &out), cryptobox.ErrDecrypt)
}

func TestOpenMaybe(t *testing.T) {
	box, err := cryptobox.New(testKey())
	require.NoError(t, err)

	blob, err := box.Seal(payload{Description: "readable"})
	require.NoError(t, err)

	var out payload
	assert.True(t, box.OpenMaybe(blob, &out))
	assert.Equal(t, "readable", out.Description)

	var out2 payload
	assert.False(t, box.OpenMaybe("broken blob", &out2))
}
