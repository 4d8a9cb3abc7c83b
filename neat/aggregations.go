package neat

import (
	"fmt"
	"math"
)

// AggregationType is the signature of a node aggregation function, applied to
// the weighted inputs of a node before activation.
type AggregationType func(inputs []float64) float64

// AggregationFunctions maps names to aggregation functions.
var AggregationFunctions = map[string]AggregationType{
	"sum":     AggregateSum,
	"product": AggregateProduct,
	"min":     AggregateMin,
	"max":     AggregateMax,
	"maxabs":  AggregateMaxAbs,
	"mean":    AggregateMean,
	"average": AggregateMean,
	"median":  AggregateMedian,
}

// GetAggregation retrieves an aggregation function by name.
func GetAggregation(name string) (AggregationType, error) {
	if fn, ok := AggregationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown aggregation function: %s", name)
}

func AggregateSum(inputs []float64) float64 {
	return Sum(inputs)
}

func AggregateProduct(inputs []float64) float64 {
	product := 1.0
	for _, v := range inputs {
		product *= v
	}
	return product
}

func AggregateMin(inputs []float64) float64 {
	return MinFloat(inputs)
}

func AggregateMax(inputs []float64) float64 {
	return MaxFloat(inputs)
}

// AggregateMaxAbs returns the input with the largest magnitude, sign kept.
func AggregateMaxAbs(inputs []float64) float64 {
	result := 0.0
	maxAbs := -1.0
	for _, v := range inputs {
		if abs := math.Abs(v); abs > maxAbs {
			maxAbs = abs
			result = v
		}
	}
	return result
}

func AggregateMean(inputs []float64) float64 {
	return Mean(inputs)
}

func AggregateMedian(inputs []float64) float64 {
	return Median(inputs)
}
