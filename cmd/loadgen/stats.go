package main

import (
	"sort"
	"time"
)

type result struct {
	Total      int64
	Errors     int64
	Routes     int64
	Hits       int64
	Updates    int64
	Throughput float64
	AvgLatency float64
	P50        float64
	P95        float64
	P99        float64
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func average(l []time.Duration) float64 {
	if len(l) == 0 {
		return 0
	}
	var sum time.Duration
	for _, x := range l {
		sum += x
	}
	return ms(sum) / float64(len(l))
}

func percentiles(l []time.Duration) (p50, p95, p99 float64) {
	if len(l) == 0 {
		return 0, 0, 0
	}
	tmp := make([]time.Duration, len(l))
	copy(tmp, l)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })

	idx := func(p float64) int {
		i := int(float64(len(tmp)) * p)
		if i >= len(tmp) {
			i = len(tmp) - 1
		}
		return i
	}

	return ms(tmp[idx(0.50)]), ms(tmp[idx(0.95)]), ms(tmp[idx(0.99)])
}
