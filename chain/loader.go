package chain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"option-analytics-go/pricing"
)

// chainColumns 是 NSE 期权链导出的固定列数：10 列 call + strike + 10 列 put。
const chainColumns = 21

// chainRow maps the NSE layout positionally; the header row of the export is
// skipped, so only column order matters here.
type chainRow struct {
	CallOI     string `csv:"calls_oi"`
	CallChngOI string `csv:"calls_chng_oi"`
	CallVolume string `csv:"calls_volume"`
	CallIV     string `csv:"calls_iv"`
	CallLTP    string `csv:"calls_ltp"`
	CallChng   string `csv:"calls_chng"`
	CallBidQty string `csv:"calls_bid_qty"`
	CallBid    string `csv:"calls_bid"`
	CallAsk    string `csv:"calls_ask"`
	CallAskQty string `csv:"calls_ask_qty"`
	Strike     string `csv:"strike"`
	PutBidQty  string `csv:"puts_bid_qty"`
	PutBid     string `csv:"puts_bid"`
	PutAsk     string `csv:"puts_ask"`
	PutAskQty  string `csv:"puts_ask_qty"`
	PutChng    string `csv:"puts_chng"`
	PutLTP     string `csv:"puts_ltp"`
	PutIV      string `csv:"puts_iv"`
	PutVolume  string `csv:"puts_volume"`
	PutChngOI  string `csv:"puts_chng_oi"`
	PutOI      string `csv:"puts_oi"`
}

// LoaderConfig 描述整条期权链共享的市场参数。
type LoaderConfig struct {
	Symbol       string
	Spot         float64
	Expiry       time.Time
	RiskFreeRate float64
	Today        time.Time // 零值表示使用当前日期
}

func (c LoaderConfig) today() time.Time {
	if c.Today.IsZero() {
		return time.Now()
	}
	return c.Today
}

// LoadFile opens path and delegates to Load.
func LoadFile(path string, cfg LoaderConfig) ([]Quote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chain csv: %w", err)
	}
	defer f.Close()
	return Load(f, cfg)
}

// Load parses an option-chain export. A row yields a call quote when its call
// LTP parses and is positive, then a put quote likewise; rows without a
// parseable strike are dropped. An empty or header-only input returns no quotes.
func Load(r io.Reader, cfg LoaderConfig) ([]Quote, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read chain header: %w", err)
	}

	var rows []chainRow
	if err := gocsv.UnmarshalCSVWithoutHeaders(cappedReader{reader, chainColumns}, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode chain rows: %w", err)
	}

	ttm := TimeToMaturity(cfg.Expiry, cfg.today())
	quotes := make([]Quote, 0, 2*len(rows))
	for _, row := range rows {
		strike, ok := ParseNumber(row.Strike)
		if !ok {
			continue
		}
		base := Quote{
			Symbol:         cfg.Symbol,
			Spot:           cfg.Spot,
			Strike:         strike,
			Expiry:         cfg.Expiry,
			RiskFreeRate:   cfg.RiskFreeRate,
			TimeToMaturity: ttm,
		}
		if ltp, ok := ParseNumber(row.CallLTP); ok && ltp > 0 {
			q := base
			q.Kind, q.LTP = pricing.Call, ltp
			quotes = append(quotes, q)
		}
		if ltp, ok := ParseNumber(row.PutLTP); ok && ltp > 0 {
			q := base
			q.Kind, q.LTP = pricing.Put, ltp
			quotes = append(quotes, q)
		}
	}
	return quotes, nil
}

// cappedReader drops cells beyond the chain layout so trailing blank columns
// in exports do not overflow the row struct.
type cappedReader struct {
	r     *csv.Reader
	width int
}

func (c cappedReader) Read() ([]string, error) {
	rec, err := c.r.Read()
	if err != nil {
		return nil, err
	}
	if len(rec) > c.width {
		rec = rec[:c.width]
	}
	return rec, nil
}

func (c cappedReader) ReadAll() ([][]string, error) {
	var out [][]string
	for {
		rec, err := c.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}
