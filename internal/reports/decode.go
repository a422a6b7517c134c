package reports

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"transstats/internal/core"
)

//go:embed report.schema.json
var reportSchema []byte

// maxSchemaErrors caps how many violations are quoted in an error message.
const maxSchemaErrors = 5

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(reportSchema))
	})
	return compiledSchema, schemaErr
}

// Decode validates data against the report schema and parses it.
// Reports missing the Month or Total aggregates are rejected with
// ErrInvalidReport rather than decoded as zero. Counts written as integral
// floats such as 5.0 are accepted, since the schema treats them as integers.
func Decode(data []byte) (core.RawReport, error) {
	if err := Validate(data); err != nil {
		return core.RawReport{}, err
	}

	var wire wireReport
	if err := json.Unmarshal(data, &wire); err != nil {
		return core.RawReport{}, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	raw, err := wire.report()
	if err != nil {
		return core.RawReport{}, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	return raw, nil
}

type wireCounts struct {
	ToJP json.Number `json:"toJP"`
	ToEN json.Number `json:"toEN"`
}

type wireChannel struct {
	Channel string `json:"channel"`
	wireCounts
}

type wireReport struct {
	ChannelList []string      `json:"channellist"`
	PerChannel  []wireChannel `json:"perChannel"`
	Month       wireCounts    `json:"Month"`
	Total       wireCounts    `json:"Total"`
}

func (w wireReport) report() (core.RawReport, error) {
	raw := core.RawReport{
		ChannelList: w.ChannelList,
		PerChannel:  make([]core.ChannelStat, 0, len(w.PerChannel)),
	}
	for i, ch := range w.PerChannel {
		c, err := ch.counts(fmt.Sprintf("perChannel[%d]", i))
		if err != nil {
			return core.RawReport{}, err
		}
		raw.PerChannel = append(raw.PerChannel, core.ChannelStat{Channel: ch.Channel, ToJP: c.ToJP, ToEN: c.ToEN})
	}
	var err error
	if raw.Month, err = w.Month.counts("Month"); err != nil {
		return core.RawReport{}, err
	}
	if raw.Total, err = w.Total.counts("Total"); err != nil {
		return core.RawReport{}, err
	}
	return raw, nil
}

func (w wireCounts) counts(field string) (core.Counts, error) {
	jp, err := count(w.ToJP)
	if err != nil {
		return core.Counts{}, fmt.Errorf("%s.toJP: %w", field, err)
	}
	en, err := count(w.ToEN)
	if err != nil {
		return core.Counts{}, fmt.Errorf("%s.toEN: %w", field, err)
	}
	return core.Counts{ToJP: jp, ToEN: en}, nil
}

// count converts a JSON number to an int64. Absent values are zero.
func count(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, fmt.Errorf("%s is not an integer count", n)
	}
	return int64(f), nil
}

// Validate checks data against the embedded report schema.
func Validate(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("compile report schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, maxSchemaErrors)
	for i, e := range result.Errors() {
		if i == maxSchemaErrors {
			violations = append(violations, fmt.Sprintf("and %d more", len(result.Errors())-maxSchemaErrors))
			break
		}
		violations = append(violations, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidReport, strings.Join(violations, "; "))
}
