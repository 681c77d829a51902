package csvsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexpulse/pkg/contracts/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestMembershipFiles(t *testing.T) {
	dir := t.TempDir()
	memberPath := writeFile(t, dir, "membership.csv", "ticker\nAAA\nBBB\nCCC\n")
	changePath := writeFile(t, dir, "changes.csv",
		"date,added,removed\n"+
			"2021-06-15,\"BBB\",\"\"\n"+
			"2020-03-02,\"AAA\",\"ZZZ, YYY\"\n")

	source := NewMembershipFiles(memberPath, changePath)
	ctx := context.Background()

	current, err := source.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Ticker{"AAA", "BBB", "CCC"}, current)

	events, err := source.ChangeLog(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Chronological regardless of file order.
	assert.Equal(t, time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC), events[0].Date)
	assert.Equal(t, []domain.Ticker{"AAA"}, events[0].Added)
	assert.Equal(t, []domain.Ticker{"ZZZ", "YYY"}, events[0].Removed)

	assert.Equal(t, []domain.Ticker{"BBB"}, events[1].Added)
	assert.Empty(t, events[1].Removed)
}

func TestMembershipFilesErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty membership file", func(t *testing.T) {
		memberPath := writeFile(t, dir, "empty.csv", "ticker\n")
		source := NewMembershipFiles(memberPath, "")
		_, err := source.Current(context.Background())
		assert.Error(t, err)
	})

	t.Run("malformed change date", func(t *testing.T) {
		memberPath := writeFile(t, dir, "m.csv", "AAA\n")
		changePath := writeFile(t, dir, "bad.csv", "date,added,removed\nyesterday,AAA,\n")
		source := NewMembershipFiles(memberPath, changePath)
		_, err := source.ChangeLog(context.Background())
		assert.Error(t, err)
	})
}

func TestOverrideFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "DLST.csv", "date,shares\n2020-01-15,500000\n2019-10-01,480000\n")
	writeFile(t, dir, "notes.txt", "ignored")

	source := NewOverrideFiles(dir)
	overrides, err := source.SharesOverrides(context.Background())
	require.NoError(t, err)
	require.Len(t, overrides, 1)

	observations := overrides["DLST"]
	require.Len(t, observations, 2)
	// Sorted oldest first.
	assert.Equal(t, 480000.0, observations[0].Shares)
	assert.Equal(t, 500000.0, observations[1].Shares)
}

func TestOverrideFilesRejectNegativeShares(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "DLST.csv", "date,shares\n2020-01-15,-500000\n")

	source := NewOverrideFiles(dir)
	_, err := source.SharesOverrides(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DLST.csv")
}

func TestOverrideFilesMissingDir(t *testing.T) {
	source := NewOverrideFiles(filepath.Join(t.TempDir(), "nope"))
	overrides, err := source.SharesOverrides(context.Background())
	require.NoError(t, err)
	assert.Empty(t, overrides)
}
