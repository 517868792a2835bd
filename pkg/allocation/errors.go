package allocation

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for non-positive resolutions, non-positive
	// allocations and malformed data points.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyDataset is returned when a statistic or allocation is requested
	// before any data point was added.
	ErrEmptyDataset = errors.New("no data points")

	// ErrDegenerateRatio is returned by WastePercentage when both waste and
	// usage are zero. Valid data never triggers it.
	ErrDegenerateRatio = errors.New("waste and usage are both zero")

	// ErrUnsupportedMode wraps ErrInvalidArgument for unknown optimization modes.
	ErrUnsupportedMode = fmt.Errorf("%w: unsupported mode", ErrInvalidArgument)
)
