package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortSnapshotsDesc(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	t1 := base
	t2 := base.Add(time.Hour)
	t3 := base.Add(2 * time.Hour)

	snapshots := []ChannelSnapshot{
		{ChannelID: 1, ScrapedAt: t2},
		{ChannelID: 1, ScrapedAt: t3},
		{ChannelID: 1, ScrapedAt: t1},
	}

	sortSnapshotsDesc(snapshots)

	require.Len(t, snapshots, 3)
	assert.Equal(t, t3, snapshots[0].ScrapedAt)
	assert.Equal(t, t2, snapshots[1].ScrapedAt)
	assert.Equal(t, t1, snapshots[2].ScrapedAt)
}

func TestSortSnapshotsDesc_StableOnTies(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	snapshots := []ChannelSnapshot{
		{Title: "first", ScrapedAt: at},
		{Title: "second", ScrapedAt: at},
	}

	sortSnapshotsDesc(snapshots)

	assert.Equal(t, "first", snapshots[0].Title)
	assert.Equal(t, "second", snapshots[1].Title)
}

func TestSortSnapshotsDesc_Empty(t *testing.T) {
	sortSnapshotsDesc(nil)
	sortSnapshotsDesc([]ChannelSnapshot{})
}
