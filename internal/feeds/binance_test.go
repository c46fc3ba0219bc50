package feeds

import (
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKlineToBar(t *testing.T) {
	openTime := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	bar, err := klineToBar(&binance.Kline{
		OpenTime: openTime.UnixMilli(),
		Open:     "43250.10",
		High:     "44100.00",
		Low:      "42800.50",
		Close:    "43900.25",
		Volume:   "1523.42",
	})
	require.NoError(t, err)

	assert.Equal(t, openTime, bar.Timestamp)
	assert.Equal(t, 43250.10, bar.Open)
	assert.Equal(t, 44100.00, bar.High)
	assert.Equal(t, 42800.50, bar.Low)
	assert.Equal(t, 43900.25, bar.Close)
	assert.Equal(t, 1523.42, bar.Volume)
}

func TestKlineToBar_Malformed(t *testing.T) {
	_, err := klineToBar(&binance.Kline{
		Open:  "not-a-number",
		High:  "1",
		Low:   "1",
		Close: "1",
	})
	assert.Error(t, err)
}
