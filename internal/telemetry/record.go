package telemetry

import "sync"

// Event is a single report captured by RecordAPI.
type Event struct {
	Level  string
	Id     string
	Params []any
	Count  int64
}

// RecordAPI implements API by recording every report in memory, so tests can
// assert that a given warning or anomaly was emitted.
type RecordAPI struct {
	mu     sync.Mutex
	events []Event
}

func (r *RecordAPI) append(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *RecordAPI) ReportBroken(id string, params ...any) {
	r.append(Event{Level: "broken", Id: id, Params: params})
}

func (r *RecordAPI) ReportWarning(id string, params ...any) {
	r.append(Event{Level: "warning", Id: id, Params: params})
}

func (r *RecordAPI) ReportDebug(message string, params ...any) {
	r.append(Event{Level: "debug", Id: message, Params: params})
}

func (r *RecordAPI) ReportCount(id string, count int64) {
	r.append(Event{Level: "count", Id: id, Count: count})
}

// Events returns a snapshot of everything reported so far.
func (r *RecordAPI) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// CountByLevel tallies the recorded events for a level.
func (r *RecordAPI) CountByLevel(level string) int {
	var n int
	for _, e := range r.Events() {
		if e.Level == level {
			n++
		}
	}
	return n
}
