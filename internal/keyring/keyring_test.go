package keyring

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strongbridge/pkg/core"
)

func testKeys() []*APIKey {
	return []*APIKey{
		{ID: "a", Key: "key-a-0123456789", Secret: "c2VjcmV0LWE=", Passphrase: "pass-a"},
		{ID: "b", Key: "key-b-0123456789", Secret: "c2VjcmV0LWI=", Passphrase: "pass-b"},
	}
}

func TestNewKeyRing_CopiesKeys(t *testing.T) {
	keys := testKeys()
	kr := NewKeyRing(keys, RotationNone)

	keys[0].Key = "mutated"
	require.NotNil(t, kr.Current())
	assert.Equal(t, "key-a-0123456789", kr.Current().Key)
	assert.Equal(t, 2, kr.Len())
}

func TestFromCredentials(t *testing.T) {
	kr := FromCredentials(&core.Credentials{APIKey: "k", SecretKey: "s", Passphrase: "p"})
	key := kr.Current()
	require.NotNil(t, key)
	assert.Equal(t, &core.Credentials{APIKey: "k", SecretKey: "s", Passphrase: "p"}, key.Credentials())

	assert.Nil(t, FromCredentials(nil).Current())
}

func TestKeyRing_RotateSkipsDisabled(t *testing.T) {
	keys := append(testKeys(), &APIKey{ID: "c", Key: "key-c"})
	kr := NewKeyRing(keys, RotationNone)
	kr.Disable("b")

	kr.Rotate()
	assert.Equal(t, "c", kr.Current().ID)

	kr.Rotate()
	assert.Equal(t, "a", kr.Current().ID)
}

func TestKeyRing_AllDisabled(t *testing.T) {
	kr := NewKeyRing(testKeys(), RotationNone)
	kr.Disable("a")
	kr.Disable("b")

	assert.Nil(t, kr.Current())

	kr.Enable("b")
	assert.Equal(t, "b", kr.Current().ID)
}

func TestKeyRing_OnError_RotatesOnAuthFailure(t *testing.T) {
	kr := NewKeyRing(testKeys(), RotationOnError)

	authErr := core.NewExchangeErrorWithCode("stronghold", core.ErrorTypeAuthentication, 401, "SIGNATURE_INVALID", "body")
	kr.OnError("a", authErr)

	assert.Equal(t, "b", kr.Current().ID)
}

func TestKeyRing_OnError_NoRotationWithoutStrategy(t *testing.T) {
	kr := NewKeyRing(testKeys(), RotationNone)

	authErr := core.NewExchangeError("stronghold", core.ErrorTypeAuthentication, 401, "body")
	kr.OnError("a", authErr)

	assert.Equal(t, "a", kr.Current().ID)
	assert.Equal(t, 1, kr.Current().ErrorCount)
}

func TestKeyRing_OnError_NonceResync(t *testing.T) {
	var mu sync.Mutex
	now := time.Unix(5000, 0)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	kr := NewKeyRing(testKeys(), RotationOnError, WithClock(clock))
	key := kr.Current()
	assert.Equal(t, int64(5000), key.Nonce())

	mu.Lock()
	now = time.Unix(4000, 0)
	mu.Unlock()
	assert.Equal(t, int64(5000), key.Nonce(), "nonce must not go backwards")

	kr.OnError("a", core.NewExchangeError("stronghold", core.ErrorTypeInvalidNonce, 400, "TIME_INVALID"))
	assert.Equal(t, int64(5001), key.Nonce(), "resync steps past the rejected nonce")
	assert.Equal(t, "a", kr.Current().ID, "nonce errors do not rotate")
}

func TestKeyRing_NoncesArePerKey(t *testing.T) {
	var mu sync.Mutex
	now := time.Unix(100, 0)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	kr := NewKeyRing(testKeys(), RotationNone, WithClock(clock))
	a := kr.Current()
	a.Nonce()

	mu.Lock()
	now = time.Unix(50, 0)
	mu.Unlock()

	kr.Rotate()
	b := kr.Current()
	assert.Equal(t, int64(50), b.Nonce())
	assert.Equal(t, int64(100), a.Nonce())
}

func TestKeyRing_AddRemove(t *testing.T) {
	kr := NewKeyRing(nil, RotationNone)
	assert.Nil(t, kr.Current())

	kr.Add(&APIKey{ID: "x", Key: "key-x"})
	kr.Add(&APIKey{ID: "x", Key: "dup"})
	assert.Equal(t, 1, kr.Len())
	assert.Equal(t, "key-x", kr.Current().Key)

	kr.Remove("x")
	assert.Equal(t, 0, kr.Len())
}

func TestKeyRing_MarkUsed(t *testing.T) {
	kr := NewKeyRing(testKeys(), RotationNone)
	kr.MarkUsed("a")
	assert.False(t, kr.Current().LastUsed.IsZero())
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", MaskKey("short"))
	assert.Equal(t, "key-****6789", MaskKey("key-a-0123456789"))
	assert.Equal(t, "APIKey{ID:a, Key:key-****6789}", testKeys()[0].String())
}
