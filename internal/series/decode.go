package series

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"keepa-tools/internal/model"
)

// Epoch is the origin of provider minute timestamps (unix minute 21,564,000).
var Epoch = time.Date(2011, time.January, 1, 0, 0, 0, 0, time.UTC)

const minuteMillis = int64(60_000)

// FromKeepaMinutes converts provider minutes to wall-clock time.
func FromKeepaMinutes(minutes int) time.Time {
	return time.UnixMilli(Epoch.UnixMilli() + int64(minutes)*minuteMillis).UTC()
}

// ToKeepaMinutes converts wall-clock time to provider minutes, truncating seconds.
func ToKeepaMinutes(t time.Time) int {
	return int((t.UnixMilli() - Epoch.UnixMilli()) / minuteMillis)
}

// FromUnixMillis converts the provider's millisecond timestamps.
func FromUnixMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// FromKeepaMinutesOpt is FromKeepaMinutes but maps non-positive values to the zero time.
func FromKeepaMinutesOpt(minutes int) time.Time {
	if minutes <= 0 {
		return time.Time{}
	}
	return FromKeepaMinutes(minutes)
}

// Decode turns one raw series into ordered samples. Sentinel and otherwise
// invalid values are dropped; a series with no valid values decodes to an
// empty, non-nil slice.
func Decode(t model.SeriesType, raw model.RawSeries) ([]model.TimeSample, error) {
	if !t.Valid() {
		return nil, &model.DecodeError{Field: t.String(), Reason: "unknown series type"}
	}
	stride := t.Stride()
	if len(raw)%stride != 0 {
		return nil, &model.DecodeError{
			Field:  t.String(),
			Reason: fmt.Sprintf("length %d is not a multiple of %d", len(raw), stride),
		}
	}

	out := make([]model.TimeSample, 0, len(raw)/stride)
	prev := 0
	for i := 0; i < len(raw); i += stride {
		minutes := raw[i]
		if i > 0 && minutes < prev {
			return nil, &model.DecodeError{
				Field:  t.String(),
				Reason: fmt.Sprintf("timestamp %d precedes %d at offset %d", minutes, prev, i),
			}
		}
		prev = minutes

		value, ok := sampleValue(t, raw[i+1:i+stride])
		if !ok {
			continue
		}
		out = append(out, model.TimeSample{Time: FromKeepaMinutes(minutes), Value: value})
	}
	return out, nil
}

// Value applies the unit semantics of t to a single statistics value.
func Value(t model.SeriesType, v int) (float64, bool) {
	return sampleValue(t, []int{v})
}

func sampleValue(t model.SeriesType, fields []int) (float64, bool) {
	v := fields[0]
	if v < 0 {
		return 0, false
	}
	switch t.Kind() {
	case model.KindRating:
		return model.RatingFromWire(v), true
	case model.KindPrice:
		if len(fields) > 1 && fields[1] > 0 {
			v += fields[1]
		}
		return float64(v), true
	default:
		return float64(v), true
	}
}

// DecodeExtremum decodes one interval-extremum entry. JSON null (or an
// absent entry) means no extremum is known and yields nil; a [time, value]
// pair yields a sample. Any other shape is a DecodeError.
func DecodeExtremum(t model.SeriesType, raw json.RawMessage) (*model.TimeSample, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var pair []*int
	if err := json.Unmarshal(trimmed, &pair); err != nil {
		return nil, &model.DecodeError{Field: t.String(), Reason: "extremum is neither null nor a [time, value] pair"}
	}
	if len(pair) != 2 || pair[0] == nil || pair[1] == nil {
		return nil, &model.DecodeError{
			Field:  t.String(),
			Reason: fmt.Sprintf("extremum must be a [time, value] pair, got %s", string(trimmed)),
		}
	}

	value, ok := Value(t, *pair[1])
	if !ok {
		return nil, nil
	}
	return &model.TimeSample{Time: FromKeepaMinutes(*pair[0]), Value: value}, nil
}

// DecodeExtrema decodes an extrema array whose index i is series type i.
func DecodeExtrema(field string, raws []json.RawMessage) ([]*model.TimeSample, error) {
	if raws == nil {
		return nil, nil
	}
	out := make([]*model.TimeSample, len(raws))
	for i, raw := range raws {
		sample, err := DecodeExtremum(model.SeriesType(i), raw)
		if err != nil {
			return nil, &model.DecodeError{Field: fmt.Sprintf("%s[%d]", field, i), Reason: err.(*model.DecodeError).Reason}
		}
		out[i] = sample
	}
	return out, nil
}

// Latest returns the last sample of a decoded series.
func Latest(samples []model.TimeSample) (model.TimeSample, bool) {
	if len(samples) == 0 {
		return model.TimeSample{}, false
	}
	return samples[len(samples)-1], true
}

// Since returns the samples at or after from. The input must be ordered.
func Since(samples []model.TimeSample, from time.Time) []model.TimeSample {
	for i, s := range samples {
		if !s.Time.Before(from) {
			return samples[i:]
		}
	}
	return samples[len(samples):]
}
