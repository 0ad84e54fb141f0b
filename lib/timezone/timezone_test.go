package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestYesterday(t *testing.T) {
	y := Yesterday()
	require.Equal(t, Location, y.Location())
	require.Equal(t, 0, y.Hour())
	require.Equal(t, 0, y.Minute())

	today := Now()
	require.True(t, y.Before(today))
	require.True(t, today.Sub(y) < time.Hour*48)
}

func TestYesterdayYMD(t *testing.T) {
	year, month, day := YesterdayYMD()
	require.Len(t, year, 4)
	require.Len(t, month, 2)
	require.Len(t, day, 2)

	parsed, err := time.ParseInLocation("2006-01-02", year+"-"+month+"-"+day, Location)
	require.NoError(t, err)
	require.Equal(t, Yesterday(), parsed)
}
