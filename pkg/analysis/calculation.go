package analysis

import (
	"fmt"
	"math"
	"strings"
)

// CalculationKind selects which of an ROI's voxels enter the statistics.
type CalculationKind int

const (
	// AllVoxels uses every overlapping voxel.
	AllVoxels CalculationKind = iota
	// HighestFraction keeps the highest-valued voxels carrying Param (0,1]
	// of the total weight.
	HighestFraction
	// NearMax keeps voxels within Param percent of the maximum value.
	NearMax
	// AboveValue keeps voxels whose value is at least Param.
	AboveValue
)

func (k CalculationKind) String() string {
	switch k {
	case AllVoxels:
		return "all"
	case HighestFraction:
		return "highest_fraction"
	case NearMax:
		return "near_max"
	case AboveValue:
		return "above_value"
	default:
		return fmt.Sprintf("CalculationKind(%d)", int(k))
	}
}

// Calculation is a voxel selection applied before computing statistics.
type Calculation struct {
	Kind  CalculationKind
	Param float64
}

// ParseCalculation builds a Calculation from its kind name and parameter.
func ParseCalculation(kind string, param float64) (Calculation, error) {
	var c Calculation
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "all":
		c.Kind = AllVoxels
	case "highest_fraction", "fraction":
		c.Kind = HighestFraction
	case "near_max", "max_percent":
		c.Kind = NearMax
	case "above_value", "threshold":
		c.Kind = AboveValue
	default:
		return c, fmt.Errorf("unknown calculation %q", kind)
	}
	c.Param = param
	return c, c.Validate()
}

// Validate checks the parameter range for the kind.
func (c Calculation) Validate() error {
	switch c.Kind {
	case AllVoxels, AboveValue:
		if math.IsNaN(c.Param) {
			return fmt.Errorf("%s: parameter is NaN", c.Kind)
		}
	case HighestFraction:
		if !(c.Param > 0 && c.Param <= 1) {
			return fmt.Errorf("%s: fraction %g not in (0,1]", c.Kind, c.Param)
		}
	case NearMax:
		if !(c.Param >= 0 && c.Param <= 100) {
			return fmt.Errorf("%s: percent %g not in [0,100]", c.Kind, c.Param)
		}
	default:
		return fmt.Errorf("unknown calculation kind %d", int(c.Kind))
	}
	return nil
}

// filter selects from samples sorted by ascending value. The result shares
// the input's backing array.
func (c Calculation) filter(sorted []Sample) []Sample {
	if len(sorted) == 0 {
		return sorted
	}
	switch c.Kind {
	case HighestFraction:
		total := 0.0
		for _, s := range sorted {
			total += s.Weight
		}
		want := c.Param * total
		kept := 0.0
		i := len(sorted)
		for i > 0 && kept < want {
			i--
			kept += sorted[i].Weight
		}
		return sorted[i:]
	case NearMax:
		hi := sorted[len(sorted)-1].Value
		return above(sorted, hi-c.Param/100*math.Abs(hi))
	case AboveValue:
		return above(sorted, c.Param)
	default:
		return sorted
	}
}

func above(sorted []Sample, lo float64) []Sample {
	for i, s := range sorted {
		if s.Value >= lo {
			return sorted[i:]
		}
	}
	return sorted[len(sorted):]
}
