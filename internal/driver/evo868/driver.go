package evo868

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rkotulan/wmbus-parser/internal/driver"
	"github.com/rkotulan/wmbus-parser/internal/driver/wmbus"
	"github.com/rkotulan/wmbus-parser/internal/frame"
	"github.com/rkotulan/wmbus-parser/internal/records"
)

const (
	// Name is the registry key of this driver.
	Name = "evo868"

	minTelegramLength = 20
	timestampFormat   = "2006-01-02T15:04:05Z"
	historyBase       = 8

	vifVolumeLiters   = 0x13
	vifMaxFlow        = 0x3B
	vifDate           = 0x6C
	vifDateTime       = 0x6D
	vifFabrication    = 0x78
	vifManufacturer   = 0xFD
	vifeStatus        = 0x17
	vifeHistoryPeriod = 0x28
)

// Register adds the driver to reg.
func Register(reg *driver.Registry) error {
	return reg.Register(Name, Driver{})
}

// Driver decodes Maddalena EVO868 water meter telegrams.
type Driver struct {
	// Now stamps the timestamp attribute; time.Now when nil.
	Now func() time.Time
	// Log receives diagnostics; the logrus standard logger when nil.
	Log logrus.FieldLogger
}

// readings collects decoded values during one record walk. Nil pointers and
// empty strings mark fields absent from the telegram.
type readings struct {
	total          *float64
	setDateVolume  *float64
	setDate2Volume *float64
	maxFlow        *float64
	history        map[int]float64
	intervalMonths int

	deviceDateTime  string
	maxFlowDateTime string
	setDate         string
	setDate2        string
	historyRefDate  string
	fabricationNo   string
	status          *uint64
}

// Decode implements driver.Decoder.
func (d Driver) Decode(raw []byte) (driver.Result, error) {
	if len(raw) < minTelegramLength {
		return driver.Result{}, fmt.Errorf("%s: %w: %d bytes", Name, frame.ErrTooShort, len(raw))
	}
	t, err := frame.Parse(raw)
	if err != nil {
		return driver.Result{}, fmt.Errorf("%s: %w", Name, err)
	}

	r := readings{history: make(map[int]float64), intervalMonths: 1}
	rd := records.NewReader(raw, t.PayloadOffset)
	for rd.Next() {
		r.apply(rd.Record())
	}
	walkErr := rd.Err()

	if r.total == nil {
		if walkErr != nil {
			return driver.Result{}, fmt.Errorf("%s: %w: %w", Name, driver.ErrMissingTotal, walkErr)
		}
		return driver.Result{}, fmt.Errorf("%s: %w", Name, driver.ErrMissingTotal)
	}
	if walkErr != nil {
		d.logger().WithError(walkErr).WithField("meter_id", t.MeterIDString()).Debug("evo868: record walk stopped early")
	}

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return driver.Result{
		Attributes: driver.NewAttributes(r.attributes(now().UTC())),
		Value:      *r.total,
	}, nil
}

func (d Driver) logger() logrus.FieldLogger {
	if d.Log != nil {
		return d.Log
	}
	return logrus.StandardLogger()
}

func (r *readings) apply(rec records.Record) {
	data := rec.Data
	switch base := rec.VIFBase(); {
	case base == vifVolumeLiters:
		volume := float64(wmbus.DecodeUint(data)) / 1000
		switch {
		case rec.Storage == 0:
			if r.total == nil {
				r.total = &volume
			}
		case rec.Storage == 1:
			r.setDateVolume = &volume
		case rec.Storage == 2:
			r.setDate2Volume = &volume
		case rec.Storage >= historyBase:
			r.history[rec.Storage] = volume
		}
	case base == vifDate:
		date, ok := wmbus.DecodeTypeGDate(data)
		if !ok {
			return
		}
		switch rec.Storage {
		case 1:
			r.setDate = date.String()
		case 2:
			r.setDate2 = date.String()
		case historyBase:
			r.historyRefDate = date.String()
		}
	case base == vifDateTime:
		dt, ok := wmbus.DecodeTypeFDateTime(data)
		if !ok {
			return
		}
		switch rec.Storage {
		case 0:
			r.deviceDateTime = dt.String()
		case 3:
			r.maxFlowDateTime = dt.String()
		}
	case base == vifMaxFlow && len(data) >= 3:
		flow := float64(wmbus.DecodeUint(data[:3])) / 1000
		r.maxFlow = &flow
	case base == vifFabrication:
		r.fabricationNo = wmbus.DecodeBCDString(data)
	case rec.VIF == vifManufacturer:
		ext, ok := rec.Extension()
		if !ok {
			return
		}
		switch {
		case ext == vifeStatus && len(data) >= 2:
			flags := wmbus.DecodeUint(data)
			r.status = &flags
		case ext == vifeHistoryPeriod && len(data) >= 1:
			r.intervalMonths = int(data[0])
			if r.intervalMonths == 0 {
				r.intervalMonths = 1
			}
		}
	}
}

func (r *readings) attributes(now time.Time) map[string]string {
	attrs := map[string]string{
		"total_m3":  wmbus.FormatFloat(*r.total),
		"timestamp": now.Format(timestampFormat),
	}
	setFloat := func(key string, v *float64) {
		if v != nil {
			attrs[key] = wmbus.FormatFloat(*v)
		}
	}
	setString := func(key, v string) {
		if v != "" {
			attrs[key] = v
		}
	}

	setString("device_date_time", r.deviceDateTime)
	setString("fabrication_no", r.fabricationNo)
	if r.status != nil {
		attrs["current_status"] = wmbus.FormatStatus(*r.status)
	}
	setFloat("consumption_at_set_date_m3", r.setDateVolume)
	setString("set_date", r.setDate)
	setFloat("consumption_at_set_date_2_m3", r.setDate2Volume)
	setString("set_date_2", r.setDate2)
	setFloat("max_flow_since_datetime_m3h", r.maxFlow)
	setString("max_flow_datetime", r.maxFlowDateTime)
	setString("history_reference_date", r.historyRefDate)

	if len(r.history) > 0 {
		storages := make([]int, 0, len(r.history))
		for s := range r.history {
			storages = append(storages, s)
		}
		sort.Ints(storages)
		for _, s := range storages {
			key := fmt.Sprintf("consumption_at_history_%d_m3", s-historyBase+1)
			attrs[key] = wmbus.FormatFloat(r.history[s])
		}
		attrs["history_interval_months"] = strconv.Itoa(r.intervalMonths)
	}
	return attrs
}
