package report

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

// Timing is the blackout and recovery duration measured for a fault zone.
type Timing struct {
	Blackout float64 `json:"BlackoutSeconds"`
	Recovery float64 `json:"RecoverySeconds"`
}

// ZoneScore is the resilience score of one fault zone, out of 10.
type ZoneScore struct {
	Zone     int     `json:"Zone"`
	Name     string  `json:"Name"`
	Blackout float64 `json:"BlackoutSeconds"`
	Recovery float64 `json:"RecoverySeconds"`
	Score    float64 `json:"Score"`
}

// Resilience scores every fault zone and their mean.
type Resilience struct {
	Zones   []ZoneScore `json:"Zones"`
	Overall float64     `json:"Overall"`
}

// Score rates a zone by how much faster it recovers than it blacked out.
// The result is clamped to [0, 10]. A zone without a blackout scores 0.
func Score(t Timing) float64 {
	if t.Blackout <= 0 || math.IsNaN(t.Recovery) {
		return 0
	}
	s := (1 - t.Recovery/t.Blackout) * 10
	return scalar.Round(math.Max(0, math.Min(10, s)), 2)
}

// Resilience scores the fault zones of r from timings keyed by zone id.
// Fault zones without timings score 0; the overall score is the mean over
// the zones that have timings.
func (r Report) Resilience(timings map[int]Timing) Resilience {
	var res Resilience
	var scored []float64
	for _, s := range r.Zones {
		if s.FaultNodes == 0 {
			continue
		}
		zs := ZoneScore{Zone: s.Zone, Name: s.Name}
		if t, ok := timings[s.Zone]; ok {
			zs.Blackout, zs.Recovery = t.Blackout, t.Recovery
			zs.Score = Score(t)
			scored = append(scored, zs.Score)
		}
		res.Zones = append(res.Zones, zs)
	}

	if len(scored) > 0 {
		res.Overall = scalar.Round(stat.Mean(scored, nil), 2)
	}
	return res
}
