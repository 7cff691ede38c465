package matrix

import (
	"fmt"
	"strconv"
)

// Any matches any size in DimensionError.Want
const Any = -1

// DimensionError is returned when matrix or vector shapes do not match.
type DimensionError struct {
	// Op is the operation or operand which failed the check
	Op string
	// Got are the offending [rows, cols]
	Got [2]int
	// Want are the expected [rows, cols]
	Want [2]int
}

// Error implements error interface
func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: invalid dimensions: [%d x %d], expected: [%s x %s]",
		e.Op, e.Got[0], e.Got[1], dimStr(e.Want[0]), dimStr(e.Want[1]))
}

func dimStr(d int) string {
	if d == Any {
		return "_"
	}
	return strconv.Itoa(d)
}

// SingularMatrixError is returned when a matrix can not be inverted
// or a linear system can not be solved reliably.
type SingularMatrixError struct {
	// Op is the operation which failed
	Op string
	// Cond is the estimated condition number
	Cond float64
}

// Error implements error interface
func (e *SingularMatrixError) Error() string {
	return fmt.Sprintf("%s: matrix is singular or ill-conditioned: cond=%g", e.Op, e.Cond)
}
