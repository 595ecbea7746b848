package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionRoundTrip(t *testing.T) {
	cases := []string{
		"0.11.0",
		"0.12.1",
		"0.9.0-dev.3+aaaaaaaaa",
		"0.12.0-dev.17+deadbee",
	}
	for _, s := range cases {
		v, err := ParseVersion(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, v.String())

		roundTripped, err := ParseVersion(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, roundTripped)
	}
}

func TestParseVersionRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"1",
		"1.2",
		"1.2.3.4",
		"1.2.3-dev.a+abcdefg",
		"1.2.3-dev.1+AB",
		"v1.2.3",
	}
	for _, s := range cases {
		_, err := ParseVersion(s)
		assert.ErrorIs(t, err, ErrMalformedVersion, s)
	}
}

func TestCompareVersionsTaggedBeatsDevAtSameTriple(t *testing.T) {
	tagged, err := ParseVersion("0.12.0")
	require.NoError(t, err)
	dev, err := ParseVersion("0.12.0-dev.99+aaaaaaaaa")
	require.NoError(t, err)

	assert.Equal(t, GT, CompareVersions(tagged, dev))
	assert.Equal(t, LT, CompareVersions(dev, tagged))
	assert.False(t, tagged.Less(dev))
}

func TestCompareVersionsDevOrdersByCommitHeight(t *testing.T) {
	a, err := ParseVersion("0.12.0-dev.5+aaaaaaaaa")
	require.NoError(t, err)
	b, err := ParseVersion("0.12.0-dev.7+bbbbbbbbb")
	require.NoError(t, err)

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, a.Equal(a))
}

func TestCompareVersionsIgnoresCommitID(t *testing.T) {
	a, err := ParseVersion("0.12.0-dev.5+aaaaaaaaa")
	require.NoError(t, err)
	b, err := ParseVersion("0.12.0-dev.5+bbbbbbbbb")
	require.NoError(t, err)

	assert.Equal(t, EQ, CompareVersions(a, b))
}

func TestCompareVersionsTotalOrder(t *testing.T) {
	raw := []string{
		"0.9.0-dev.3+aaaaaaaaa",
		"0.11.0",
		"0.12.0-dev.1+aaaaaaaaa",
		"0.12.0-dev.2+bbbbbbbbb",
		"0.12.0",
		"0.12.1",
		"0.13.0",
	}
	versions := make([]Version, len(raw))
	for i, s := range raw {
		v, err := ParseVersion(s)
		require.NoError(t, err)
		versions[i] = v
	}

	// Strict ordering in both directions over every adjacent pair in the
	// already-sorted-by-construction list above.
	for i := 0; i < len(versions)-1; i++ {
		assert.True(t, versions[i].Less(versions[i+1]), "%s should be less than %s", versions[i], versions[i+1])
		assert.False(t, versions[i+1].Less(versions[i]))
	}
}

func TestMaxVersion(t *testing.T) {
	a, err := ParseVersion("0.11.0")
	require.NoError(t, err)
	b, err := ParseVersion("0.12.0")
	require.NoError(t, err)

	assert.Equal(t, b, MaxVersion(a, b))
	assert.Equal(t, b, MaxVersion(b, a))
}

func TestIsTagged(t *testing.T) {
	tagged, err := ParseVersion("0.11.0")
	require.NoError(t, err)
	dev, err := ParseVersion("0.11.0-dev.1+aaaaaaaaa")
	require.NoError(t, err)

	assert.True(t, tagged.IsTagged())
	assert.False(t, dev.IsTagged())
}
