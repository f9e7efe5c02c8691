package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// GB is the number of bytes in a gigabyte as reported by the cluster.
const GB = 1024 * 1024 * 1024

// ErrNoValues is returned when none of the samples carries a usable value.
var ErrNoValues = errors.New("no values")

// ToGB formats bytes as gigabytes with one decimal.
func ToGB(bytes float64) string {
	return strconv.FormatFloat(bytes/GB, 'f', 1, 64)
}

// ToKops formats ops/sec as Kops/sec with one decimal.
func ToKops(ops float64) string {
	return strconv.FormatFloat(ops/1000, 'f', 1, 64)
}

func ToPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func ToMs(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Usage summarizes a series of samples.
type Usage struct {
	Min    float64
	Avg    float64
	Max    float64
	StdDev float64
}

// CalcUsage computes the usage of key across interval samples. Samples where
// key is missing, null, zero or not a number are ignored.
func CalcUsage(samples []map[string]any, key string) (Usage, error) {
	return CalcUsageFunc(samples, key, nil)
}

// CalcUsageFunc is CalcUsage with every accepted value passed through fn first.
func CalcUsageFunc(samples []map[string]any, key string, fn func(float64) float64) (Usage, error) {
	values := make([]float64, 0, len(samples))

	for _, s := range samples {
		v, ok := s[key].(float64)
		if !ok || v == 0 {
			continue
		}

		if fn != nil {
			v = fn(v)
		}

		values = append(values, v)
	}

	u, err := Summarize(values)
	if err != nil {
		return Usage{}, fmt.Errorf("%w for %q", err, key)
	}

	return u, nil
}

// Summarize returns min, average, max and population standard deviation of values.
func Summarize(values []float64) (Usage, error) {
	if len(values) == 0 {
		return Usage{}, ErrNoValues
	}

	u := Usage{Min: values[0], Max: values[0]}

	var sum float64
	for _, v := range values {
		u.Min = math.Min(u.Min, v)
		u.Max = math.Max(u.Max, v)
		sum += v
	}

	u.Avg = sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - u.Avg) * (v - u.Avg)
	}

	u.StdDev = math.Sqrt(sq / float64(len(values)))

	return u, nil
}

// Format renders u as "min/avg/max/dev" using conv for each figure.
func (u Usage) Format(conv func(float64) string) string {
	return conv(u.Min) + "/" + conv(u.Avg) + "/" + conv(u.Max) + "/" + conv(u.StdDev)
}
