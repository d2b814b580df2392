package lock

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestKeyLock_CaseInsensitive(t *testing.T) {
	kl := NewKeyLock()

	assert.True(t, kl.TryLock("Steve"))
	assert.False(t, kl.TryLock("steve"))
	assert.False(t, kl.TryLock("  STEVE "))

	kl.Unlock("STEVE")
	assert.True(t, kl.TryLock("steve"))

	// releasing a key nobody holds changes nothing
	kl.Unlock("never-seen")
	assert.False(t, kl.TryLock("steve"))
}

func TestKeyLock_ReleaseFromOtherGoroutine(t *testing.T) {
	kl := NewKeyLock()
	assert.True(t, kl.TryLock("alex"))

	done := make(chan struct{})
	go func() {
		kl.Unlock("alex")
		close(done)
	}()
	<-done

	assert.True(t, kl.TryLock("alex"))
}

// TestTryLockSingleWinnerProperty checks that concurrent claims on one key
// while it is held never succeed more than once.
func TestTryLockSingleWinnerProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringMatching(`[A-Za-z0-9_]{3,16}`).Draw(t, "key")
		numAttempts := rapid.IntRange(2, 20).Draw(t, "numAttempts")

		kl := NewKeyLock()

		var successCount atomic.Int32
		var wg sync.WaitGroup
		wg.Add(numAttempts)
		startCh := make(chan struct{})

		for i := 0; i < numAttempts; i++ {
			variant := key
			if i%2 == 1 {
				variant = strings.ToUpper(key)
			}
			go func(k string) {
				defer wg.Done()
				<-startCh
				if kl.TryLock(k) {
					successCount.Add(1)
				}
			}(variant)
		}

		close(startCh)
		wg.Wait()

		if successCount.Load() != 1 {
			t.Fatalf("expected exactly one claim, got %d", successCount.Load())
		}
		kl.Unlock(key)
		if !kl.TryLock(key) {
			t.Fatal("key should be free after release")
		}
	})
}

// TestReleasedKeysAreForgottenProperty checks that claiming and releasing
// any number of distinct identifiers leaves nothing behind.
func TestReleasedKeysAreForgottenProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z0-9_]{1,16}`), 1, 50).Draw(t, "keys")

		kl := NewKeyLock()
		for _, k := range keys {
			if kl.TryLock(k) {
				kl.Unlock(k)
			}
		}

		if n := len(kl.held); n != 0 {
			t.Fatalf("expected no held keys, got %d", n)
		}
	})
}
