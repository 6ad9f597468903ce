package origin

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appkit/appkit/internal/config"
)

func TestMergeAddsCallerOrigins(t *testing.T) {
	list, err := Merge([]string{"https://example.com"})
	require.NoError(t, err)
	require.Equal(t, len(Defaults())+1, list.Len())
	require.Equal(t, 5, list.Len())
	require.True(t, list.Contains("https://example.com"))
	for _, o := range Defaults() {
		require.True(t, list.Contains(o), "default %s missing", o)
	}
}

func TestMergeDoesNotMutateDefaults(t *testing.T) {
	_, err := Merge([]string{"https://example.com", "https://other.example.com"})
	require.NoError(t, err)
	require.Len(t, Defaults(), 4)

	defaults := Defaults()
	defaults[0] = "https://tampered.example.com"
	require.Equal(t, "http://localhost:4000", Defaults()[0])
}

func TestMergeDeduplicates(t *testing.T) {
	list, err := Merge([]string{"http://localhost:3000", "https://example.com", "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, 5, list.Len())
	require.Equal(t, "https://example.com", list.List()[4])
}

func TestIsAllowed(t *testing.T) {
	list, err := Merge([]string{"https://example.com"})
	require.NoError(t, err)

	testCases := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{"absent origin", "", true},
		{"caller origin", "https://example.com", true},
		{"default origin", "http://127.0.0.1:3000", true},
		{"unknown origin", "https://evil.example.com", false},
		{"scheme differs", "http://example.com", false},
		{"trailing slash is not normalized", "https://example.com/", false},
		{"case is not normalized", "https://EXAMPLE.com", false},
		{"port differs", "http://localhost:5000", false},
		{"null origin", "null", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.allowed, IsAllowed(tc.origin, list))
		})
	}
}

func TestIsAllowedNilList(t *testing.T) {
	require.True(t, IsAllowed("", nil))
	require.False(t, IsAllowed("http://localhost:3000", nil))
}

func TestValidate(t *testing.T) {
	valid := []string{
		"https://example.com",
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://[::1]:3000",
		"https://bücher.example",
		"chrome-extension://abcdefghijklmnop",
		"tauri://localhost",
		"capacitor://localhost",
		"ftp://example.com",
		"null",
	}
	for _, o := range valid {
		require.NoError(t, Validate(o), o)
	}

	invalid := []string{
		"",
		"example.com",
		"mailto:someone@example.com",
		"Null",
		"tauri://",
		"https://",
		"https://example.com/",
		"https://example.com/path",
		"https://example.com?x=1",
		"https://user@example.com",
		"https://exa mple.com",
		"https://example.com\n",
	}
	for _, o := range invalid {
		err := Validate(o)
		require.Error(t, err, o)
		var invalidErr *InvalidOriginError
		require.True(t, errors.As(err, &invalidErr), o)
		require.ErrorIs(t, err, config.ErrConfiguration)
	}
}

func TestMergeRejectsInvalidOrigin(t *testing.T) {
	list, err := Merge([]string{"https://example.com", "not-an-origin"})
	require.Error(t, err)
	require.Nil(t, list)
}

func TestPolicySwap(t *testing.T) {
	initial, err := Merge(nil)
	require.NoError(t, err)
	policy := NewPolicy(initial)
	require.False(t, policy.Allows("https://example.com"))

	next, err := Merge([]string{"https://example.com"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snapshot := policy.Snapshot()
			assert.GreaterOrEqual(t, snapshot.Len(), 4)
		}()
	}
	policy.Swap(next)
	wg.Wait()

	require.True(t, policy.Allows("https://example.com"))
	require.Equal(t, 4, initial.Len())
}
