package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/newthinker/polydash/internal/core"
)

// File name prefixes
const (
	SignalsPrefix = "polydash-signals"
	FullPrefix    = "polydash-full"
)

// Header is the fixed first row of a signals CSV
var Header = []string{"Timestamp", "Direction", "Score", "Confidence", "BTC Price", "Delta %", "ROI %", "PnL", "Won"}

// Row formats one signal. A pending signal exports 0.00 ROI and PnL and NO.
// The timestamp is written as the backend sent it when known.
func Row(s core.Signal) []string {
	won := "NO"
	if s.Won() {
		won = "YES"
	}
	ts := s.TimestampRaw
	if ts == "" {
		ts = s.Timestamp.Format(time.RFC3339Nano)
	}
	return []string{
		ts,
		string(s.Direction),
		strconv.FormatFloat(s.Score, 'f', 3, 64),
		strconv.FormatFloat(s.Confidence*100, 'f', 0, 64),
		strconv.FormatFloat(s.BTCPrice, 'f', -1, 64),
		strconv.FormatFloat(s.DeltaPct, 'f', 2, 64),
		strconv.FormatFloat(s.ROI(), 'f', 2, 64),
		strconv.FormatFloat(s.NetProfit(), 'f', 2, 64),
		won,
	}
}

// WriteCSV writes the header and one row per signal in the given order.
func WriteCSV(w io.Writer, signals []core.Signal) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return core.WrapError(core.ErrExportFailed, err)
	}
	for _, s := range signals {
		if err := cw.Write(Row(s)); err != nil {
			return core.WrapError(core.ErrExportFailed, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return core.WrapError(core.ErrExportFailed, err)
	}
	return nil
}

// FileName is "<prefix>-YYYY-MM-DD.<ext>" using the UTC date of now.
func FileName(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", prefix, now.UTC().Format("2006-01-02"), ext)
}
