package utils

import (
	"encoding/json"
	"time"
)

// ToInstant converts the timestamp shapes found in listing documents to
// a time.Time. Imported and hand-edited documents carry a mix of native
// timestamps, RFC3339 strings, epoch numbers (seconds or millis) and
// serialized {seconds,nanos} maps; everything the store can hand us goes
// through this one function instead of per-call-site shape sniffing.
// The second return value is false when the value has no usable time.
func ToInstant(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case string:
		return parseTimeString(t)
	case int64:
		return fromEpoch(float64(t)), true
	case int:
		return fromEpoch(float64(t)), true
	case float64:
		return fromEpoch(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromEpoch(f), true
	case map[string]interface{}:
		return fromSecondsMap(t)
	default:
		return time.Time{}, false
	}
}

func parseTimeString(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// fromEpoch treats values above 1e12 as milliseconds, everything else
// as seconds.
func fromEpoch(v float64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(int64(v))
	}
	return time.Unix(int64(v), 0)
}

func fromSecondsMap(m map[string]interface{}) (time.Time, bool) {
	for _, key := range []string{"seconds", "_seconds"} {
		if raw, ok := m[key]; ok {
			secs, secsOK := ToInstant(raw)
			if !secsOK {
				return time.Time{}, false
			}
			return secs, true
		}
	}
	return time.Time{}, false
}
