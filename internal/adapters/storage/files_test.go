package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alejandrodnm/autotrade/internal/adapters/storage"
	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieFile_MissingFileIsEmpty(t *testing.T) {
	f := storage.NewCookieFile(filepath.Join(t.TempDir(), "cookies.json"))
	cookies, err := f.LoadCookies()
	require.NoError(t, err)
	assert.Empty(t, cookies)
}

func TestCookieFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cookies.json")
	f := storage.NewCookieFile(path)

	in := []domain.SessionCookie{{Name: "steamLoginSecure", Value: "abc"}, {Name: "sessionid", Value: "sid"}}
	require.NoError(t, f.SaveCookies(in))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err := f.LoadCookies()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCookieFile_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := storage.NewCookieFile(path).LoadCookies()
	assert.Error(t, err)
}

func TestProcessedFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_trades.json")
	f := storage.NewProcessedFile(path)

	set, err := f.Load()
	require.NoError(t, err)
	assert.Zero(t, set.Len())

	set.Add("903", "901", "902")
	require.True(t, set.Dirty())
	require.NoError(t, f.Save(set))
	assert.False(t, set.Dirty())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["901","902","903"]`, string(raw))

	again, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"901", "902", "903"}, again.IDs())
}

func TestProcessedFile_OverwriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f := storage.NewProcessedFile(filepath.Join(dir, "processed_trades.json"))

	set := domain.NewProcessedSet([]string{"1"})
	require.NoError(t, f.Save(set))
	set.Retain(nil)
	require.NoError(t, f.Save(set))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	again, err := f.Load()
	require.NoError(t, err)
	assert.Zero(t, again.Len())
}

func TestProcessedFile_CorruptFileStillReturnsSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_trades.json")
	require.NoError(t, os.WriteFile(path, []byte("oops"), 0o600))

	set, err := storage.NewProcessedFile(path).Load()
	assert.Error(t, err)
	require.NotNil(t, set)
	assert.Zero(t, set.Len())
}
