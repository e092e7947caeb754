// Package air4thai fetches the Air4Thai station snapshot and per-station
// hourly history, parsing the loosely-typed upstream JSON into typed
// entities at the boundary.
package air4thai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/srwpaibong/PM25-alert-system/internal/httputil"
	"github.com/srwpaibong/PM25-alert-system/internal/metrics"
	"github.com/srwpaibong/PM25-alert-system/internal/models"
)

const (
	defaultSnapshotURL = "http://air4thai.pcd.go.th/services/getNewAQI_JSON.php"
	defaultHistoryURL  = "http://air4thai.com/forweb/getHistoryData.php"
)

type Client struct {
	snapshotURL string
	historyURL  string
	client      *http.Client
	loc         *time.Location
}

func New(loc *time.Location, timeout time.Duration) *Client {
	return &Client{
		snapshotURL: defaultSnapshotURL,
		historyURL:  defaultHistoryURL,
		client:      httputil.NewClientWithTimeout(timeout),
		loc:         loc,
	}
}

// SetBaseURLs overrides the upstream endpoints, used by tests.
func (c *Client) SetBaseURLs(snapshot, history string) {
	c.snapshotURL = snapshot
	c.historyURL = history
}

// looseFloat accepts a JSON number, a numeric string, or one of the
// upstream's absent-value spellings ("", "-", "N/A", null).
type looseFloat struct {
	v *float64
}

func (f *looseFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || s == "N/A" || s == "n/a" {
		return nil
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Unparseable readings count as missing, not as errors.
		return nil
	}
	f.v = &val
	return nil
}

type paramValue struct {
	AQI   looseFloat `json:"aqi"`
	Value looseFloat `json:"value"`
}

type snapshotStation struct {
	StationID   string     `json:"stationID"`
	NameTH      string     `json:"nameTH"`
	NameEN      string     `json:"nameEN"`
	AreaTH      string     `json:"areaTH"`
	StationType string     `json:"stationType"`
	Lat         looseFloat `json:"lat"`
	Long        looseFloat `json:"long"`
	AQILast     struct {
		Date string     `json:"date"`
		Time string     `json:"time"`
		PM25 paramValue `json:"PM25"`
		WS   paramValue `json:"WS"`
		WD   paramValue `json:"WD"`
		TEMP paramValue `json:"TEMP"`
		RH   paramValue `json:"RH"`
	} `json:"AQILast"`
}

type snapshotResponse struct {
	Stations []snapshotStation `json:"stations"`
}

// FetchSnapshot returns the current reading for every station that
// reports a numeric PM2.5 value and coordinates.
func (c *Client) FetchSnapshot(ctx context.Context) ([]models.StationReading, error) {
	body, err := c.get(ctx, c.snapshotURL)
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues("air4thai", "error").Inc()
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	metrics.UpstreamCallsTotal.WithLabelValues("air4thai", "ok").Inc()

	var data snapshotResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	var readings []models.StationReading
	for _, st := range data.Stations {
		if st.AQILast.PM25.Value.v == nil || st.Lat.v == nil || st.Long.v == nil {
			continue
		}

		r := models.StationReading{
			StationID:   st.StationID,
			NameTH:      st.NameTH,
			NameEN:      st.NameEN,
			AreaTH:      st.AreaTH,
			Province:    models.ProvinceFromArea(st.AreaTH),
			StationType: st.StationType,
			Latitude:    *st.Lat.v,
			Longitude:   *st.Long.v,
			PM25:        *st.AQILast.PM25.Value.v,
			ObservedAt:  c.parseObsTime(st.AQILast.Date, st.AQILast.Time),
			WindSpeed:   st.AQILast.WS.Value.v,
			WindBearing: st.AQILast.WD.Value.v,
			Temp:        st.AQILast.TEMP.Value.v,
			Humidity:    st.AQILast.RH.Value.v,
		}
		readings = append(readings, r)
	}

	return readings, nil
}

// parseObsTime combines the feed's date and time fields, falling back
// to now when they are absent or unparseable.
func (c *Client) parseObsTime(date, tm string) time.Time {
	if date == "" {
		return time.Now().In(c.loc)
	}
	if tm == "" {
		tm = "00:00"
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+tm, c.loc)
	if err != nil {
		return time.Now().In(c.loc)
	}
	return t
}

// FetchHistory returns the ordered hourly samples for one station and
// parameter over the trailing window. Absent or non-numeric samples
// have a nil Value.
func (c *Client) FetchHistory(ctx context.Context, stationID, param string, hours int) ([]models.HistorySample, error) {
	now := time.Now().In(c.loc)
	start := now.Add(-time.Duration(hours) * time.Hour)

	q := url.Values{}
	q.Set("stationID", stationID)
	q.Set("param", param)
	q.Set("type", "hr")
	q.Set("sdate", start.Format("2006-01-02"))
	q.Set("edate", now.Format("2006-01-02"))
	q.Set("stime", start.Format("15"))
	q.Set("etime", now.Format("15"))

	body, err := c.get(ctx, c.historyURL+"?"+q.Encode())
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues("air4thai_history", "error").Inc()
		return nil, fmt.Errorf("fetch history %s: %w", stationID, err)
	}
	metrics.UpstreamCallsTotal.WithLabelValues("air4thai_history", "ok").Inc()

	var data struct {
		Stations []struct {
			Data []map[string]json.RawMessage `json:"data"`
		} `json:"stations"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal history %s: %w", stationID, err)
	}
	if len(data.Stations) == 0 {
		return nil, nil
	}

	var samples []models.HistorySample
	for _, row := range data.Stations[0].Data {
		var ts string
		if raw, ok := row["DATETIMEDATA"]; ok {
			json.Unmarshal(raw, &ts)
		}
		at, err := time.ParseInLocation("2006-01-02 15:04:05", ts, c.loc)
		if err != nil {
			continue
		}

		sample := models.HistorySample{Time: at}
		if raw, ok := row[param]; ok {
			var lf looseFloat
			if err := lf.UnmarshalJSON(raw); err == nil {
				sample.Value = lf.v
			}
		}
		samples = append(samples, sample)
	}

	return samples, nil
}

// get performs a GET with retry. Rate-limit style statuses retry;
// other failures are permanent.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return backoff.Permanent(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 90 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
