// Package workflowdebug helps follow the data handed between the stages of
// the mobile estimate workflow: work selection, the navigation context and
// the estimate summary.
package workflowdebug

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"

	"github.com/sirupsen/logrus"
)

// DefaultMarker tags messages that get framed once debugging is enabled.
const DefaultMarker = "🔧"

type Stage string

const (
	StageWorkSelection     Stage = "work-selection"
	StageNavigationContext Stage = "navigation-context"
	StageEstimateSummary   Stage = "estimate-summary"
)

// Work is a work item as passed between the workflow stages.
type Work struct {
	ID                int     `json:"id,omitempty"`
	WorkTypeID        int     `json:"work_type_id,omitempty"`
	Name              string  `json:"name,omitempty"`
	WorkName          string  `json:"work_name,omitempty"`
	Unit              string  `json:"unit,omitempty"`
	UnitOfMeasurement string  `json:"unit_of_measurement,omitempty"`
	Quantity          float64 `json:"quantity,omitempty"`
	CostPrice         float64 `json:"cost_price,omitempty"`
	ClientPrice       float64 `json:"client_price,omitempty"`
	CategoryID        int     `json:"category_id,omitempty"`
}

func (w Work) identified() bool { return w.ID != 0 || w.WorkTypeID != 0 }
func (w Work) named() bool      { return w.Name != "" || w.WorkName != "" }

// NavigationState is what the work selection screen hands to the navigation
// context.
type NavigationState struct {
	SelectedWorks []Work `json:"selectedWorks"`
}

// Logger writes workflow traces. The zero value is not usable; use New.
type Logger struct {
	*logrus.Logger
}

// New returns a Logger writing plain text to out. Framing stays off until
// Enable is called.
func New(out io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableQuote: true})
	return &Logger{Logger: l}
}

// Enable turns on verbose workflow logging: messages containing marker are
// framed and their details printed as JSON.
func (l *Logger) Enable(marker string) {
	inner := l.Formatter
	if ff, ok := inner.(*FramingFormatter); ok {
		inner = ff.Inner
	}
	l.SetFormatter(&FramingFormatter{Marker: marker, Inner: inner})
	l.Info("WorkflowDebug: verbose workflow logging enabled")
}

// Step logs a framed workflow step with optional details.
func (l *Logger) Step(marker, msg string, details any) {
	entry := logrus.NewEntry(l.Logger)
	if details != nil {
		entry = entry.WithField(DetailsKey, details)
	}
	entry.Info(marker + " " + msg)
}

// CreateTestWorks returns a fixed pair of works for exercising the workflow.
func CreateTestWorks() []Work {
	return []Work{
		{
			ID:                1,
			WorkTypeID:        1,
			Name:              "Тестовая работа 1",
			WorkName:          "Тестовая работа 1",
			Unit:              "м²",
			UnitOfMeasurement: "м²",
			Quantity:          10,
			CostPrice:         100,
			ClientPrice:       150,
			CategoryID:        1,
		},
		{
			ID:                2,
			WorkTypeID:        2,
			Name:              "Тестовая работа 2",
			WorkName:          "Тестовая работа 2",
			Unit:              "шт",
			UnitOfMeasurement: "шт",
			Quantity:          5,
			CostPrice:         50,
			ClientPrice:       75,
			CategoryID:        1,
		},
	}
}

// ValidateWorkflowData checks that data has the shape expected at stage.
// Nil data never validates; unknown stages always do.
func (l *Logger) ValidateWorkflowData(stage Stage, data any) bool {
	l.Debugf("WorkflowDebug: validating data at stage %q", stage)

	if isNil(data) {
		l.Errorf("WorkflowDebug: no data at stage %q", stage)
		return false
	}

	var valid bool
	switch stage {
	case StageWorkSelection:
		works, ok := data.([]Work)
		valid = ok && len(works) > 0 && all(works, Work.identified)
	case StageNavigationContext:
		switch state := data.(type) {
		case NavigationState:
			valid = state.SelectedWorks != nil
		case *NavigationState:
			valid = state.SelectedWorks != nil
		}
	case StageEstimateSummary:
		works, ok := data.([]Work)
		valid = ok && all(works, func(w Work) bool { return w.identified() && w.named() })
	default:
		return true
	}

	if valid {
		l.Infof("WorkflowDebug: %s data valid", stage)
	} else {
		l.Warnf("WorkflowDebug: %s data invalid", stage)
	}
	return valid
}

// TraceDataFlow logs the shape of data moving from one stage to another.
func (l *Logger) TraceDataFlow(from, to string, data any) {
	kind, count, keys := describe(data)

	l.WithFields(logrus.Fields{
		"type":  kind,
		"count": count,
		"keys":  keys,
	}).Infof("WorkflowDebug: data flow %s → %s", from, to)

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Slice && v.Len() > 0 {
		l.WithField("first", v.Index(0).Interface()).Debug("WorkflowDebug: first element")
	}
}

// MonitorStateChanges logs a component's state transition and, for slices,
// the change in length.
func (l *Logger) MonitorStateChanges(component string, prev, next any) {
	l.WithFields(logrus.Fields{
		"before": prev,
		"after":  next,
	}).Infof("WorkflowDebug: state change in %s", component)

	pv, nv := reflect.ValueOf(prev), reflect.ValueOf(next)
	if pv.Kind() == reflect.Slice && nv.Kind() == reflect.Slice {
		l.Infof("WorkflowDebug: item count change: %+d", nv.Len()-pv.Len())
	}
}

// describe reports a JSON-ish kind, the element count for slices (-1
// otherwise) and the keys of objects.
func describe(data any) (kind string, count int, keys []string) {
	count = -1

	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Invalid:
		return "null", count, nil
	case reflect.Slice, reflect.Array:
		return "array", v.Len(), nil
	case reflect.String:
		return "string", count, nil
	case reflect.Bool:
		return "boolean", count, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number", count, nil
	}

	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%T", data), count, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Sprintf("%T", data), count, nil
	}
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "object", count, keys
}

func isNil(data any) bool {
	if data == nil {
		return true
	}
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func all(works []Work, pred func(Work) bool) bool {
	for _, w := range works {
		if !pred(w) {
			return false
		}
	}
	return true
}
