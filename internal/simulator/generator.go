package simulator

import (
	"math"
	"math/rand/v2"
)

// Reading is one set of sensor values.
type Reading struct {
	Temperature float64
	Humidity    float64
	SmokeLevel  float64
	GasLevel    float64
}

// Alert is a threshold breach a device reports.
type Alert struct {
	Type     string
	Value    float64
	MaxValue float64
}

// Limits are the values above which a device raises an alert.
type Limits struct {
	Temperature float64
	Humidity    float64
	SmokeLevel  float64
	GasLevel    float64
}

// DefaultLimits suits an indoor sensor.
var DefaultLimits = Limits{
	Temperature: 45,
	Humidity:    90,
	SmokeLevel:  60,
	GasLevel:    60,
}

// Generator produces readings. Values drift from their previous level and
// jump towards the top of their range with probability Anomaly.
//
// A Generator is not safe for concurrent use.
type Generator struct {
	Anomaly float64

	rng  *rand.Rand
	last Reading
}

// NewGenerator creates a generator seeded with seed, so runs can be replayed.
func NewGenerator(seed uint64, anomaly float64) *Generator {
	return &Generator{
		Anomaly: anomaly,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // simulation data, not secrets
		last:    Reading{Temperature: 22, Humidity: 45, SmokeLevel: 5, GasLevel: 10},
	}
}

// Next returns the next reading. Temperature stays within [0, 50] and the
// other values within [0, 100], rounded to two decimals.
func (g *Generator) Next() Reading {
	r := Reading{
		Temperature: g.step(g.last.Temperature, 1.5, 50),
		Humidity:    g.step(g.last.Humidity, 3, 100),
		SmokeLevel:  g.step(g.last.SmokeLevel, 2, 100),
		GasLevel:    g.step(g.last.GasLevel, 2, 100),
	}
	g.last = r

	if g.rng.Float64() < g.Anomaly {
		spike := r
		switch g.rng.IntN(4) {
		case 0:
			spike.Temperature = round2(40 + g.rng.Float64()*10)
		case 1:
			spike.Humidity = round2(85 + g.rng.Float64()*15)
		case 2:
			spike.SmokeLevel = round2(55 + g.rng.Float64()*45)
		default:
			spike.GasLevel = round2(55 + g.rng.Float64()*45)
		}
		// Spikes are not remembered, so the series returns to its level.
		return spike
	}
	return r
}

func (g *Generator) step(prev, spread, upper float64) float64 {
	v := prev + (g.rng.Float64()*2-1)*spread
	return round2(math.Max(0, math.Min(upper, v)))
}

// Check returns an alert for every value of r above its limit, using the
// alert type names the server accepts.
func Check(r Reading, limits Limits) []Alert {
	var alerts []Alert
	add := func(kind string, value, limit float64) {
		if value > limit {
			alerts = append(alerts, Alert{Type: kind, Value: value, MaxValue: limit})
		}
	}
	add("Temperature", r.Temperature, limits.Temperature)
	add("Humidity", r.Humidity, limits.Humidity)
	add("SmokeLevel", r.SmokeLevel, limits.SmokeLevel)
	add("GasLevel", r.GasLevel, limits.GasLevel)
	return alerts
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
