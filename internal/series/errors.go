package series

import "fmt"

// InsufficientHistoryError reports that a computation needed more bars or
// observations than the input provides. It always carries the required and
// available counts so the caller can see exactly how short the series is.
type InsufficientHistoryError struct {
	Op        string
	Required  int
	Available int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("%s: insufficient history: need %d observations, have %d",
		e.Op, e.Required, e.Available)
}

// MisalignmentError reports a timestamp mismatch between series that were
// expected to share the same index domain.
type MisalignmentError struct {
	Op     string
	Detail string
}

func (e *MisalignmentError) Error() string {
	return fmt.Sprintf("%s: series misalignment: %s", e.Op, e.Detail)
}

// InsufficientOverlapError reports too few overlapping observations for a
// pairwise statistic.
type InsufficientOverlapError struct {
	Op        string
	Required  int
	Available int
}

func (e *InsufficientOverlapError) Error() string {
	return fmt.Sprintf("%s: insufficient overlap: need %d common observations, have %d",
		e.Op, e.Required, e.Available)
}

// ConfigError reports an invalid analysis configuration, such as portfolio
// weights that do not sum to one or an unknown strategy name.
type ConfigError struct {
	Op     string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: invalid configuration: %s", e.Op, e.Detail)
}
