// Package formats provides string and number formats beyond the ones built
// into the validation engine: the OpenAPI data type formats and the relaxed
// ISO time formats.
//
// Every checker ignores instances of a type it does not apply to.
package formats

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Checker validates a decoded json value.
type Checker func(v any) error

var checkers = map[string]Checker{
	"byte":          checkByte,
	"int32":         checkInt(math.MinInt32, math.MaxInt32),
	"int64":         checkInt(math.MinInt64, math.MaxInt64),
	"float":         checkNumber,
	"double":        checkNumber,
	"password":      func(any) error { return nil },
	"binary":        func(any) error { return nil },
	"url":           checkURL,
	"iso-time":      checkISOTime,
	"iso-date-time": checkISODateTime,
}

// Names returns the names of the provided formats.
func Names() []string {
	names := make([]string, 0, len(checkers))
	for name := range checkers {
		names = append(names, name)
	}
	return names
}

// Get returns the checker for the named format.
func Get(name string) (Checker, bool) {
	c, ok := checkers[name]
	return c, ok
}

// Formats returns the provided formats for registration with a
// jsonschema.Compiler.
func Formats() []*jsonschema.Format {
	var list []*jsonschema.Format
	for name, c := range checkers {
		list = append(list, &jsonschema.Format{Name: name, Validate: c})
	}
	return list
}

func checkByte(v any) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if len(s)%4 != 0 {
		return errors.New("base64 length must be a multiple of 4")
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return err
}

func toRat(v any) (*big.Rat, bool) {
	var s string
	switch v := v.(type) {
	case json.Number:
		s = v.String()
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		s = fmt.Sprint(v)
	default:
		return nil, false
	}
	r, ok := new(big.Rat).SetString(s)
	return r, ok
}

func checkInt(min, max int64) Checker {
	lo, hi := big.NewRat(min, 1), big.NewRat(max, 1)
	return func(v any) error {
		r, ok := toRat(v)
		if !ok {
			return nil
		}
		if !r.IsInt() {
			return errors.New("not an integer")
		}
		if r.Cmp(lo) < 0 || r.Cmp(hi) > 0 {
			return fmt.Errorf("out of range [%d, %d]", min, max)
		}
		return nil
	}
}

// checkNumber accepts every number: float and double only document the
// intended precision.
func checkNumber(v any) error {
	return nil
}

func checkURL(v any) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

var isoTime = regexp.MustCompile(`^(\d\d):(\d\d):(\d\d(?:\.\d+)?)([zZ]|([+-])(\d\d)(?::?(\d\d))?)?$`)

// iso-time is hh:mm:ss with optional seconds fraction and optional offset,
// written as Z, +hh, +hhmm or +hh:mm. A leap second is accepted at 23:59
// UTC.
func checkISOTime(v any) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return parseISOTime(s)
}

func parseISOTime(s string) error {
	m := isoTime.FindStringSubmatch(s)
	if m == nil {
		return errors.New("not hh:mm:ss[.fraction][offset]")
	}
	hr, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.ParseFloat(m[3], 64)
	sign := 1
	if m[5] == "-" {
		sign = -1
	}
	tzH, tzM := 0, 0
	if m[6] != "" {
		tzH, _ = strconv.Atoi(m[6])
	}
	if m[7] != "" {
		tzM, _ = strconv.Atoi(m[7])
	}
	if tzH > 23 || tzM > 59 {
		return errors.New("offset out of range")
	}
	if hr <= 23 && min <= 59 && sec < 60 {
		return nil
	}
	utcMin := min - tzM*sign
	utcHr := hr - tzH*sign
	if utcMin < 0 {
		utcHr--
	}
	if (utcHr == 23 || utcHr == -1) && (utcMin == 59 || utcMin == -1) && sec < 61 {
		return nil
	}
	return errors.New("time out of range")
}

var isoDateTimeSeparator = regexp.MustCompile(`[tT\s]`)

// iso-date-time is a date and an iso-time separated by T, t or a space.
func checkISODateTime(v any) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	parts := isoDateTimeSeparator.Split(s, -1)
	if len(parts) != 2 {
		return errors.New("not date and time")
	}
	if _, err := time.Parse("2006-01-02", parts[0]); err != nil {
		return err
	}
	return parseISOTime(parts[1])
}
