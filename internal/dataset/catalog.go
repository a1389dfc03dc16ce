package dataset

// EventType is an event category and its inclusive attendee range.
type EventType struct {
	Name         string
	MinAttendees int
	MaxAttendees int
}

var catalog = []EventType{
	{Name: "Wedding", MinAttendees: 100, MaxAttendees: 500},
	{Name: "Corporate Event", MinAttendees: 50, MaxAttendees: 200},
	{Name: "Birthday Party", MinAttendees: 20, MaxAttendees: 100},
	{Name: "Festival", MinAttendees: 200, MaxAttendees: 1000},
	{Name: "Small Gathering", MinAttendees: 10, MaxAttendees: 50},
}

// Catalog returns the fixed event categories in generation order.
func Catalog() []EventType {
	out := make([]EventType, len(catalog))
	copy(out, catalog)
	return out
}

// LookupEventType finds a category by name.
func LookupEventType(name string) (EventType, bool) {
	for _, et := range catalog {
		if et.Name == name {
			return et, true
		}
	}
	return EventType{}, false
}
