package logs

import (
	"strconv"
	"time"
)

// DeviceTimeLayout is how timestamps are written into predicates.
const DeviceTimeLayout = "2006-01-02 15:04:05"

// Where builds a device-side filter predicate. Each added clause is ANDed
// onto the previous expression, which is parenthesized first so the
// grouping never depends on which filters happen to be present.
type Where struct {
	expr string
}

// And conjoins a raw clause.
func (w Where) And(clause string) Where {
	if clause == "" {
		return w
	}
	if w.expr == "" {
		return Where{expr: clause}
	}
	return Where{expr: "(" + w.expr + ") and " + clause}
}

// Contains adds a substring match on the message text.
func (w Where) Contains(s string) Where {
	return w.And("message contains " + strconv.Quote(s))
}

// Since keeps lines at or after t.
func (w Where) Since(t time.Time) Where {
	return w.And("time >= " + strconv.Quote(t.Format(DeviceTimeLayout)))
}

// Until keeps lines at or before t.
func (w Where) Until(t time.Time) Where {
	return w.And("time <= " + strconv.Quote(t.Format(DeviceTimeLayout)))
}

func (w Where) String() string {
	return w.expr
}

func (w Where) Empty() bool {
	return w.expr == ""
}
